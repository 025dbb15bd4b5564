package pipeline

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"histeq/internal/equalize"
	"histeq/internal/imaging"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func grayRamp(t *testing.T, size int) gocv.Mat {
	t.Helper()
	data := make([]byte, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			data[y*size+x] = uint8(32 + (x*3)%192)
		}
	}
	mat, err := gocv.NewMatFromBytes(size, size, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	return mat
}

// lowChromaScene is a near-gray gradient: chroma offsets stay small so the
// YCrCb and Lab round trips suffer minimal gamut clamping at the range ends.
func lowChromaScene(t *testing.T, size int) gocv.Mat {
	t.Helper()
	data := make([]byte, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(100 + (x*3+y)%80)
			i := (y*size + x) * 3
			data[i] = v + 2
			data[i+1] = v
			data[i+2] = v - 2
		}
	}
	mat, err := gocv.NewMatFromBytes(size, size, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	return mat
}

// blueScene is saturated and blue-dominant: hue sits far from the wrap
// point, and half the pixels share the lowest value so equalization keeps V
// well above zero where hue and saturation turn numerically unstable.
func blueScene(t *testing.T, size int) gocv.Mat {
	t.Helper()
	data := make([]byte, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			b := uint8(180)
			if x >= size/2 {
				b = uint8(181 + (x-size/2)*2)
			}
			i := (y*size + x) * 3
			data[i] = b
			data[i+1] = 60
			data[i+2] = 40
		}
	}
	mat, err := gocv.NewMatFromBytes(size, size, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	return mat
}

func TestEnhanceColorTouchesOnlyLuminancePlane(t *testing.T) {
	const size = 48
	cases := []struct {
		space     imaging.ColorSpace
		code      gocv.ColorConversionCode
		lumIdx    int
		tolerance int
		scene     func(t *testing.T, size int) gocv.Mat
	}{
		{imaging.ColorSpaceYCrCb, gocv.ColorBGRToYCrCb, 0, 5, lowChromaScene},
		{imaging.ColorSpaceLab, gocv.ColorBGRToLab, 0, 5, lowChromaScene},
		{imaging.ColorSpaceHSV, gocv.ColorBGRToHSV, 2, 5, blueScene},
	}

	p := New(testLogger())
	for _, tc := range cases {
		for _, method := range []string{"ghe", "clahe"} {
			name := tc.space.String() + "/" + method

			img := tc.scene(t, size)
			opts := DefaultOptions()
			opts.ColorSpace = tc.space

			out, err := p.Enhance(img, method, opts)
			require.NoError(t, err, name)
			require.Equal(t, 3, out.Channels(), name)

			origSpace := gocv.NewMat()
			require.NoError(t, gocv.CvtColor(img, &origSpace, tc.code), name)
			outSpace := gocv.NewMat()
			require.NoError(t, gocv.CvtColor(out, &outSpace, tc.code), name)

			origPlanes := gocv.Split(origSpace)
			outPlanes := gocv.Split(outSpace)

			lumChanged := false
			for c := 0; c < 3; c++ {
				for y := 0; y < size; y++ {
					for x := 0; x < size; x++ {
						diff := int(outPlanes[c].GetUCharAt(y, x)) - int(origPlanes[c].GetUCharAt(y, x))
						if diff < 0 {
							diff = -diff
						}
						if c == tc.lumIdx {
							if diff > 0 {
								lumChanged = true
							}
							continue
						}
						// Non-luminance planes drift only by conversion
						// rounding, plus the gamut clamp where the remapped
						// luminance reaches the range ends.
						require.LessOrEqual(t, diff, tc.tolerance,
							"%s: plane %d at (%d,%d)", name, c, x, y)
					}
				}
			}
			assert.True(t, lumChanged, "%s: luminance plane untouched", name)

			for i := range origPlanes {
				origPlanes[i].Close()
				outPlanes[i].Close()
			}
			origSpace.Close()
			outSpace.Close()
			out.Close()
			img.Close()
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, imaging.ColorSpaceLab, opts.ColorSpace)
	assert.Equal(t, 2.0, opts.ClipLimit)
	assert.Equal(t, 8, opts.TileSize)
}

func TestEnhanceGrayscaleGHEMatchesEngine(t *testing.T) {
	img := grayRamp(t, 64)
	defer img.Close()

	direct, err := equalize.ApplyGHE(img)
	require.NoError(t, err)
	defer direct.Close()

	p := New(testLogger())
	result, err := p.Enhance(img, "ghe", DefaultOptions())
	require.NoError(t, err)
	defer result.Close()

	// Grayscale input bypasses color conversion entirely.
	assert.Equal(t, direct.ToBytes(), result.ToBytes())
}

func TestEnhanceGrayscaleCLAHE(t *testing.T) {
	img := grayRamp(t, 64)
	defer img.Close()

	p := New(testLogger())
	result, err := p.Enhance(img, "clahe", DefaultOptions())
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, img.Rows(), result.Rows())
	assert.Equal(t, img.Cols(), result.Cols())
	assert.Equal(t, 1, result.Channels())
}

func TestEnhanceUnknownMethod(t *testing.T) {
	img := grayRamp(t, 16)
	defer img.Close()

	p := New(testLogger())
	_, err := p.Enhance(img, "retinex", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")
}

func TestEnhanceInvalidParams(t *testing.T) {
	img := grayRamp(t, 16)
	defer img.Close()

	opts := DefaultOptions()
	opts.ClipLimit = -1

	p := New(testLogger())
	_, err := p.Enhance(img, "clahe", opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, imaging.ErrInvalidParameter)
}

func TestEnhanceDoesNotModifyInput(t *testing.T) {
	img := grayRamp(t, 32)
	defer img.Close()
	before := img.ToBytes()

	p := New(testLogger())
	result, err := p.Enhance(img, "ghe", DefaultOptions())
	require.NoError(t, err)
	result.Close()

	assert.Equal(t, before, img.ToBytes())
}

func TestEnhanceThenEvaluate(t *testing.T) {
	img := grayRamp(t, 64)
	defer img.Close()

	p := New(testLogger())
	enhanced, err := p.Enhance(img, "clahe", DefaultOptions())
	require.NoError(t, err)
	defer enhanced.Close()

	report, err := p.Evaluate(img, enhanced, "clahe")
	require.NoError(t, err)
	assert.Equal(t, "clahe", report.Method)

	ssim, ok := report.Get("ssim")
	assert.True(t, ok)
	assert.Greater(t, ssim, 0.0)
	assert.LessOrEqual(t, ssim, 1.0)
}
