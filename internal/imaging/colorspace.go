// Color space selection for luminance-channel enhancement
package imaging

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// ColorSpace identifies which 3-channel representation carries the
// luminance-like channel that enhancement operates on.
type ColorSpace int

const (
	ColorSpaceYCrCb ColorSpace = iota
	ColorSpaceHSV
	ColorSpaceLab
)

// Layout distinguishes single-channel input from 3-channel color input.
type Layout int

const (
	LayoutGrayscale Layout = iota
	LayoutColor
)

func (l Layout) String() string {
	if l == LayoutGrayscale {
		return "grayscale"
	}
	return "color"
}

// ParseColorSpace resolves a color space token. Accepted tokens are
// "YCrCb", "HSV" and "LAB" (case-insensitive).
func ParseColorSpace(name string) (ColorSpace, error) {
	switch strings.ToLower(name) {
	case "ycrcb":
		return ColorSpaceYCrCb, nil
	case "hsv":
		return ColorSpaceHSV, nil
	case "lab":
		return ColorSpaceLab, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedColorSpace, name)
	}
}

func (cs ColorSpace) String() string {
	switch cs {
	case ColorSpaceYCrCb:
		return "YCrCb"
	case ColorSpaceHSV:
		return "HSV"
	case ColorSpaceLab:
		return "LAB"
	default:
		return "unknown"
	}
}

// forwardCode returns the BGR-to-target conversion code.
func (cs ColorSpace) forwardCode() gocv.ColorConversionCode {
	switch cs {
	case ColorSpaceHSV:
		return gocv.ColorBGRToHSV
	case ColorSpaceLab:
		return gocv.ColorBGRToLab
	default:
		return gocv.ColorBGRToYCrCb
	}
}

// inverseCode returns the target-to-BGR conversion code.
func (cs ColorSpace) inverseCode() gocv.ColorConversionCode {
	switch cs {
	case ColorSpaceHSV:
		return gocv.ColorHSVToBGR
	case ColorSpaceLab:
		return gocv.ColorLabToBGR
	default:
		return gocv.ColorYCrCbToBGR
	}
}

// luminanceIndex returns the channel index that carries luminance in the
// converted representation: Y for YCrCb, V for HSV, L for Lab.
func (cs ColorSpace) luminanceIndex() int {
	if cs == ColorSpaceHSV {
		return 2
	}
	return 0
}
