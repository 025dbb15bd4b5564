package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func grayMat(t *testing.T, rows, cols int, fill func(y, x int) uint8) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			data[y*cols+x] = fill(y, x)
		}
	}
	mat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	return mat
}

func colorMat(t *testing.T, rows, cols int, b, g, r uint8) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols*3)
	for i := 0; i < rows*cols; i++ {
		data[i*3] = b
		data[i*3+1] = g
		data[i*3+2] = r
	}
	mat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	return mat
}

func TestPSNRIdenticalImagesIsInfinite(t *testing.T) {
	img := grayMat(t, 16, 16, func(y, x int) uint8 { return uint8(x * 7 % 256) })
	defer img.Close()

	psnr, err := PSNR(img, img)
	require.NoError(t, err)
	assert.True(t, math.IsInf(psnr, 1))
}

func TestPSNRKnownValue(t *testing.T) {
	a := grayMat(t, 8, 8, func(y, x int) uint8 { return 100 })
	defer a.Close()
	b := grayMat(t, 8, 8, func(y, x int) uint8 { return 110 })
	defer b.Close()

	// MSE is exactly 100, so PSNR = 20*log10(255/10).
	psnr, err := PSNR(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(25.5), psnr, 1e-9)
}

func TestPSNRShapeMismatch(t *testing.T) {
	a := grayMat(t, 8, 8, func(y, x int) uint8 { return 0 })
	defer a.Close()
	b := grayMat(t, 8, 16, func(y, x int) uint8 { return 0 })
	defer b.Close()

	_, err := PSNR(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestPSNRChannelMismatch(t *testing.T) {
	a := grayMat(t, 8, 8, func(y, x int) uint8 { return 0 })
	defer a.Close()
	b := colorMat(t, 8, 8, 0, 0, 0)
	defer b.Close()

	_, err := PSNR(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSSIMIdenticalImagesIsOne(t *testing.T) {
	img := grayMat(t, 32, 32, func(y, x int) uint8 { return uint8((x*8 + y*3) % 256) })
	defer img.Close()

	ssim, err := SSIM(img, img)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ssim, 1e-4)
}

func TestSSIMColorIdenticalImagesIsOne(t *testing.T) {
	img := colorMat(t, 32, 32, 40, 120, 200)
	defer img.Close()

	ssim, err := SSIM(img, img)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ssim, 1e-4)
}

func TestSSIMDissimilarImagesBelowOne(t *testing.T) {
	a := grayMat(t, 32, 32, func(y, x int) uint8 { return uint8(x * 8 % 256) })
	defer a.Close()
	b := grayMat(t, 32, 32, func(y, x int) uint8 { return uint8(y * 8 % 256) })
	defer b.Close()

	ssim, err := SSIM(a, b)
	require.NoError(t, err)
	assert.Less(t, ssim, 0.99)
}

func TestEntropyConstantImageIsZero(t *testing.T) {
	img := grayMat(t, 16, 16, func(y, x int) uint8 { return 77 })
	defer img.Close()

	entropy, err := Entropy(img)
	require.NoError(t, err)
	assert.Equal(t, 0.0, entropy)
}

func TestEntropyTwoValueImageIsOneBit(t *testing.T) {
	img := grayMat(t, 16, 16, func(y, x int) uint8 {
		if x < 8 {
			return 0
		}
		return 255
	})
	defer img.Close()

	entropy, err := Entropy(img)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, entropy, 1e-9)
}

func TestContrastConstantImageIsZero(t *testing.T) {
	img := grayMat(t, 16, 16, func(y, x int) uint8 { return 77 })
	defer img.Close()

	contrast, err := Contrast(img)
	require.NoError(t, err)
	assert.Equal(t, 0.0, contrast)
}

func TestBrightnessConstantImage(t *testing.T) {
	img := grayMat(t, 16, 16, func(y, x int) uint8 { return 77 })
	defer img.Close()

	brightness, err := Brightness(img)
	require.NoError(t, err)
	assert.InDelta(t, 77.0, brightness, 1e-9)
}

func TestImprovementRatio(t *testing.T) {
	ratio, err := ImprovementRatio(6.4, 3.2)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, ratio, 1e-9)

	_, err = ImprovementRatio(6.4, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}
