// Enhancement algorithm registry
package equalize

import (
	"fmt"

	"gocv.io/x/gocv"

	"histeq/internal/imaging"
)

// Algorithm defines the interface for intensity-remapping enhancement
// algorithms. Apply operates on a single-channel 8-bit Mat; color dispatch
// happens one layer up via the channel adapter.
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a tunable parameter for help text and sweeps.
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "int", "float"
	Min         interface{} `json:"min,omitempty"`
	Max         interface{} `json:"max,omitempty"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

func Names() []string {
	return []string{"ghe", "clahe"}
}

// Apply runs the named algorithm with the given parameters, falling back to
// its defaults for any missing key.
func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}
	if err := algorithm.Validate(params); err != nil {
		return gocv.NewMat(), err
	}
	return algorithm.Apply(input, params)
}

func init() {
	Register("ghe", NewGHE())
	Register("clahe", NewCLAHE())
}

// validateChannel checks that a Mat is a usable single-channel 8-bit image.
func validateChannel(channel gocv.Mat) error {
	if channel.Empty() {
		return fmt.Errorf("%w: empty channel", imaging.ErrInvalidShape)
	}
	if channel.Channels() != 1 || channel.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("%w: expected single-channel 8-bit input, got %d channels (type %d)",
			imaging.ErrInvalidShape, channel.Channels(), int(channel.Type()))
	}
	return nil
}

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return fallback
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return fallback
}
