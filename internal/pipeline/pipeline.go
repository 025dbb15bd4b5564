// Enhancement pipeline: channel adaptation, equalization, reassembly and
// evaluation, with stage-labeled errors for the CLI.
package pipeline

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"histeq/internal/equalize"
	"histeq/internal/imaging"
	"histeq/internal/metrics"
)

// Options carries the per-invocation enhancement settings.
type Options struct {
	ColorSpace imaging.ColorSpace
	ClipLimit  float64
	TileSize   int
}

// DefaultOptions mirrors the reference defaults: LAB color space, clip
// limit 2.0, 8x8 tile grid.
func DefaultOptions() Options {
	return Options{
		ColorSpace: imaging.ColorSpaceLab,
		ClipLimit:  2.0,
		TileSize:   8,
	}
}

// Pipeline orchestrates a single enhancement run. It holds no image state;
// every call is self-contained.
type Pipeline struct {
	logger    *logrus.Logger
	evaluator *metrics.Evaluator
}

func New(logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		logger:    logger,
		evaluator: metrics.NewEvaluator(),
	}
}

// Evaluator exposes the aggregator so callers can tune the
// over-enhancement policy or block size.
func (p *Pipeline) Evaluator() *metrics.Evaluator {
	return p.evaluator
}

// Enhance applies the named method ("ghe" or "clahe") to the image's
// luminance channel and returns the reassembled result. The input is never
// modified.
func (p *Pipeline) Enhance(img gocv.Mat, method string, opts Options) (gocv.Mat, error) {
	if !equalize.IsValidAlgorithm(method) {
		return gocv.NewMat(), fmt.Errorf("enhancement stage: unknown method %q", method)
	}

	start := time.Now()

	working, side, err := imaging.Extract(img, opts.ColorSpace)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("channel adaptation stage: %w", err)
	}
	defer side.Close()
	defer working.Close()

	params := map[string]interface{}{
		"clip_limit": opts.ClipLimit,
		"tile_rows":  opts.TileSize,
		"tile_cols":  opts.TileSize,
	}
	enhanced, err := equalize.Apply(method, working, params)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("enhancement stage: %w", err)
	}
	defer enhanced.Close()

	result, err := imaging.Reassemble(side, enhanced)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("channel adaptation stage: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"method":      method,
		"layout":      side.Layout().String(),
		"color_space": opts.ColorSpace.String(),
		"elapsed":     time.Since(start),
	}).Debug("Enhancement complete")

	return result, nil
}

// Evaluate scores an enhanced image against its original.
func (p *Pipeline) Evaluate(original, enhanced gocv.Mat, method string) (*metrics.Report, error) {
	report, err := p.evaluator.Evaluate(original, enhanced, method)
	if err != nil {
		return nil, fmt.Errorf("metric computation stage: %w", err)
	}
	return report, nil
}
