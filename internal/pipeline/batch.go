// Batch analysis: pairing precomputed enhancement outputs with their
// originals and tabulating evaluation results.
package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"histeq/internal/imageio"
	"histeq/internal/metrics"
)

// Row is one evaluated original/enhanced pair.
type Row struct {
	Image  string
	Method string
	Report *metrics.Report
}

// Analyzer pairs enhanced images with originals by filename convention and
// evaluates each pair. Enhanced files are named "<stem>_<method>[suffix]"
// (e.g. "pier_ghe.png", "pier_clahe_clip2.0_tile8.png"); the original is
// the file in the originals directory whose stem matches.
type Analyzer struct {
	logger    *logrus.Logger
	loader    *imageio.Loader
	evaluator *metrics.Evaluator
}

func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{
		logger:    logger,
		loader:    imageio.NewLoader(logger),
		evaluator: metrics.NewEvaluator(),
	}
}

// Run evaluates every enhanced image under enhancedDir against its original
// under originalsDir. Unpaired files are logged and skipped; an evaluation
// error aborts the run.
func (a *Analyzer) Run(originalsDir, enhancedDir string) ([]Row, error) {
	originals, err := indexOriginals(originalsDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(enhancedDir)
	if err != nil {
		return nil, fmt.Errorf("reading enhanced directory: %w", err)
	}

	var rows []Row
	for _, entry := range entries {
		if entry.IsDir() || !imageio.IsSupportedFormat(entry.Name()) {
			continue
		}

		stem, method, ok := splitEnhancedName(entry.Name())
		if !ok {
			continue
		}

		originalPath, found := originals[stem]
		if !found {
			a.logger.WithFields(logrus.Fields{
				"enhanced": entry.Name(),
				"stem":     stem,
			}).Warn("No matching original, skipping")
			continue
		}

		original, err := a.loader.Load(originalPath)
		if err != nil {
			return nil, err
		}
		enhanced, err := a.loader.Load(filepath.Join(enhancedDir, entry.Name()))
		if err != nil {
			original.Close()
			return nil, err
		}

		report, err := a.evaluator.Evaluate(original, enhanced, method)
		original.Close()
		enhanced.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}

		rows = append(rows, Row{Image: stem, Method: method, Report: report})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Image != rows[j].Image {
			return rows[i].Image < rows[j].Image
		}
		return rows[i].Method < rows[j].Method
	})

	a.logger.WithField("pairs", len(rows)).Info("Batch analysis complete")
	return rows, nil
}

func indexOriginals(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading originals directory: %w", err)
	}

	index := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !imageio.IsSupportedFormat(entry.Name()) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		index[stem] = filepath.Join(dir, entry.Name())
	}
	return index, nil
}

// splitEnhancedName extracts the original stem and method from an enhanced
// filename. Anything after the method token (parameter suffixes) is ignored.
func splitEnhancedName(name string) (stem, method string, ok bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, m := range []string{"clahe", "ghe"} {
		marker := "_" + m
		idx := strings.Index(base, marker)
		if idx <= 0 {
			continue
		}
		rest := base[idx+len(marker):]
		if rest == "" || strings.HasPrefix(rest, "_") {
			return base[:idx], m, true
		}
	}
	return "", "", false
}

// WriteCSV emits one row per evaluated pair with the full stable metric key
// set. Non-finite values are written as "inf"/"-inf"/"nan".
func WriteCSV(rows []Row, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"image", "method"}, metrics.ReportKeys...)
	header = append(header, "over_enhanced")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Image, row.Method)
		for _, key := range metrics.ReportKeys {
			record = append(record, formatValue(row.Report.Values[key]))
		}
		record = append(record, strconv.FormatBool(row.Report.OverEnhanced))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// PrintSummary writes an aligned table of the headline metrics.
func PrintSummary(rows []Row, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "IMAGE\tMETHOD\tPSNR\tSSIM\tENTROPY RATIO\tCONTRAST RATIO\tBLOCKING\tOVER-ENHANCED")
	for _, row := range rows {
		v := row.Report.Values
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.3f\t%.3f\t%.4f\t%t\n",
			row.Image,
			row.Method,
			formatValue(v["psnr"]),
			v["ssim"],
			v["entropy_improvement"],
			v["contrast_improvement"],
			v["blocking_artifacts"],
			row.Report.OverEnhanced,
		)
	}
	return tw.Flush()
}

func formatValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	default:
		return strconv.FormatFloat(v, 'f', 6, 64)
	}
}
