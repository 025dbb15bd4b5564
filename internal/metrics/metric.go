// Comprehensive evaluation of image enhancement quality
package metrics

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Evaluator aggregates the quantitative and qualitative metric suites into
// one report per enhancement method.
type Evaluator struct {
	Policy    OverEnhancementPolicy
	BlockSize int
}

// NewEvaluator creates an evaluator with the standard over-enhancement
// policy and block size.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		Policy:    DefaultOverEnhancementPolicy,
		BlockSize: DefaultBlockSize,
	}
}

// Evaluate compares an enhanced image against its original and merges all
// metrics into a single report labeled with the method name. The
// computation is pure; identical inputs always produce identical reports.
func (e *Evaluator) Evaluate(original, enhanced gocv.Mat, method string) (*Report, error) {
	if err := checkPair(original, enhanced); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", method, err)
	}

	values := make(map[string]float64, len(ReportKeys))

	psnr, err := PSNR(original, enhanced)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", method, err)
	}
	values["psnr"] = psnr

	ssim, err := SSIM(original, enhanced)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", method, err)
	}
	values["ssim"] = ssim

	pairs := []struct {
		key string
		fn  func(gocv.Mat) (float64, error)
	}{
		{"entropy", Entropy},
		{"contrast", Contrast},
		{"brightness", Brightness},
		{"sharpness", Sharpness},
		{"naturalness", Naturalness},
		{"colorfulness", Colorfulness},
	}
	for _, p := range pairs {
		orig, err := p.fn(original)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %s: %w", method, p.key, err)
		}
		enh, err := p.fn(enhanced)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %s: %w", method, p.key, err)
		}
		values[p.key+"_original"] = orig
		values[p.key+"_enhanced"] = enh
	}

	entropyRatio, err := ImprovementRatio(values["entropy_enhanced"], values["entropy_original"])
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: entropy improvement: %w", method, err)
	}
	values["entropy_improvement"] = entropyRatio

	contrastRatio, err := ImprovementRatio(values["contrast_enhanced"], values["contrast_original"])
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: contrast improvement: %w", method, err)
	}
	values["contrast_improvement"] = contrastRatio

	blocking, err := BlockingArtifacts(enhanced, e.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", method, err)
	}
	values["blocking_artifacts"] = blocking

	over, err := DetectOverEnhancement(original, enhanced, e.Policy)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", method, err)
	}
	values["brightness_change"] = over.BrightnessChangeRatio
	values["contrast_change"] = over.ContrastChangeRatio
	values["saturation_ratio"] = over.SaturationRatio
	values["edge_strength"] = over.EdgeStrength

	return &Report{
		Method:       method,
		Values:       values,
		OverEnhanced: over.OverEnhanced,
	}, nil
}

// MetricInfo provides presentation metadata for a report key.
type MetricInfo struct {
	Name         string
	Description  string
	HigherBetter bool
}

// Info describes the report keys that have an unambiguous quality
// direction; improvement ratios and raw statistics are context-dependent
// and are not listed.
func Info() map[string]MetricInfo {
	return map[string]MetricInfo{
		"psnr": {
			Name:         "PSNR",
			Description:  "Peak signal-to-noise ratio in dB; +Inf for identical images",
			HigherBetter: true,
		},
		"ssim": {
			Name:         "SSIM",
			Description:  "Structural similarity; 1.0 is a perfect match",
			HigherBetter: true,
		},
		"naturalness_enhanced": {
			Name:         "Naturalness",
			Description:  "Histogram-statistics naturalness score in [0,1]",
			HigherBetter: true,
		},
		"blocking_artifacts": {
			Name:         "Blocking artifacts",
			Description:  "Tile-seam visibility in [0,1]",
			HigherBetter: false,
		},
		"saturation_ratio": {
			Name:         "Saturation ratio",
			Description:  "Fraction of pixels clipped to the intensity extremes",
			HigherBetter: false,
		},
	}
}
