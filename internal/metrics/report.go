// Metrics report with a stable key set
package metrics

import (
	"encoding/json"
	"math"
)

// ReportKeys is the complete, stable set of numeric keys every report
// carries, in presentation order. Batch tabulation relies on the set being
// identical for every method and for grayscale and color input alike.
var ReportKeys = []string{
	"psnr",
	"ssim",
	"entropy_original",
	"entropy_enhanced",
	"entropy_improvement",
	"contrast_original",
	"contrast_enhanced",
	"contrast_improvement",
	"brightness_original",
	"brightness_enhanced",
	"sharpness_original",
	"sharpness_enhanced",
	"naturalness_original",
	"naturalness_enhanced",
	"colorfulness_original",
	"colorfulness_enhanced",
	"blocking_artifacts",
	"brightness_change",
	"contrast_change",
	"saturation_ratio",
	"edge_strength",
}

// Report is the immutable evaluation result for one enhancement method.
type Report struct {
	Method       string             `json:"method"`
	Values       map[string]float64 `json:"metrics"`
	OverEnhanced bool               `json:"over_enhanced"`
}

// Get returns the named metric value.
func (r *Report) Get(key string) (float64, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// MarshalJSON renders non-finite values (the PSNR +Inf sentinel for
// identical images) as strings, since JSON has no representation for them.
func (r *Report) MarshalJSON() ([]byte, error) {
	values := make(map[string]interface{}, len(r.Values))
	for key, v := range r.Values {
		switch {
		case math.IsInf(v, 1):
			values[key] = "inf"
		case math.IsInf(v, -1):
			values[key] = "-inf"
		case math.IsNaN(v):
			values[key] = "nan"
		default:
			values[key] = v
		}
	}
	return json.Marshal(struct {
		Method       string                 `json:"method"`
		Values       map[string]interface{} `json:"metrics"`
		OverEnhanced bool                   `json:"over_enhanced"`
	}{
		Method:       r.Method,
		Values:       values,
		OverEnhanced: r.OverEnhanced,
	})
}
