// Global Histogram Equalization
package equalize

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ApplyGHE remaps every pixel through the normalized cumulative histogram
// of the whole channel: v -> round(cdf[v] * 255). A channel holding a single
// distinct intensity passes through unchanged. The input is not modified;
// the result is a freshly allocated single-channel Mat.
func ApplyGHE(channel gocv.Mat) (gocv.Mat, error) {
	if err := validateChannel(channel); err != nil {
		return gocv.NewMat(), fmt.Errorf("ghe: %w", err)
	}

	data := channel.ToBytes()
	hist := computeHistogram(data)
	lut := buildLUT(hist, float64(len(data)))

	out := make([]byte, len(data))
	for i, v := range data {
		out[i] = lut[v]
	}

	result, err := gocv.NewMatFromBytes(channel.Rows(), channel.Cols(), gocv.MatTypeCV8UC1, out)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("ghe: result allocation failed: %w", err)
	}
	return result, nil
}

// GHE wraps global histogram equalization as a registry algorithm.
type GHE struct{}

func NewGHE() *GHE {
	return &GHE{}
}

func (g *GHE) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	return ApplyGHE(input)
}

func (g *GHE) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (g *GHE) GetName() string {
	return "GHE"
}

func (g *GHE) GetDescription() string {
	return "Global histogram equalization via a single CDF remap over the whole channel"
}

func (g *GHE) Validate(params map[string]interface{}) error {
	return nil
}

func (g *GHE) GetParameterInfo() []ParameterInfo {
	return nil
}
