package imaging

import "errors"

// Sentinel errors shared by the enhancement core. Callers match them with
// errors.Is; every layer wraps them with call-site context via fmt.Errorf.
var (
	// ErrInvalidShape reports an image that is neither single-channel nor
	// 3-channel 8-bit, or an empty Mat.
	ErrInvalidShape = errors.New("invalid image shape")

	// ErrUnsupportedColorSpace reports an unrecognized color space token.
	ErrUnsupportedColorSpace = errors.New("unsupported color space")

	// ErrInvalidParameter reports an out-of-range algorithm parameter such as
	// a negative clip limit or a non-positive tile grid dimension.
	ErrInvalidParameter = errors.New("invalid parameter")
)
