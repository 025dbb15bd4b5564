package equalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"histeq/internal/imaging"
)

// rampMat builds a size x size single-channel image whose pixel value equals
// its column index, so every intensity 0..size-1 appears equally often.
func rampMat(t *testing.T, size int) gocv.Mat {
	t.Helper()
	data := make([]byte, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			data[y*size+x] = uint8(x)
		}
	}
	mat, err := gocv.NewMatFromBytes(size, size, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	return mat
}

func constantMat(t *testing.T, rows, cols int, value uint8) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols)
	for i := range data {
		data[i] = value
	}
	mat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	return mat
}

func TestApplyGHEUniformRampNearIdentity(t *testing.T) {
	img := rampMat(t, 256)
	defer img.Close()

	out, err := ApplyGHE(img)
	require.NoError(t, err)
	defer out.Close()

	require.Equal(t, img.Rows(), out.Rows())
	require.Equal(t, img.Cols(), out.Cols())

	// A uniform histogram already has a linear CDF, so equalization moves
	// every value by at most one level.
	in := img.ToBytes()
	result := out.ToBytes()
	for i := range in {
		diff := int(result[i]) - int(in[i])
		require.LessOrEqual(t, abs(diff), 1, "pixel %d moved from %d to %d", i, in[i], result[i])
	}
}

func TestApplyGHEConstantImageUnchanged(t *testing.T) {
	img := constantMat(t, 16, 16, 42)
	defer img.Close()

	out, err := ApplyGHE(img)
	require.NoError(t, err)
	defer out.Close()

	// A single-intensity channel has nothing to equalize; the constant value
	// passes through rather than being pushed to 255 by its unit CDF.
	for _, v := range out.ToBytes() {
		require.Equal(t, uint8(42), v)
	}
}

func TestApplyGHEIdempotent(t *testing.T) {
	img := rampMat(t, 256)
	defer img.Close()

	once, err := ApplyGHE(img)
	require.NoError(t, err)
	defer once.Close()

	twice, err := ApplyGHE(once)
	require.NoError(t, err)
	defer twice.Close()

	a := once.ToBytes()
	b := twice.ToBytes()
	for i := range a {
		diff := int(b[i]) - int(a[i])
		require.LessOrEqual(t, abs(diff), 1, "pixel %d drifted from %d to %d on second pass", i, a[i], b[i])
	}
}

func TestApplyGHERejectsColorInput(t *testing.T) {
	img := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer img.Close()

	_, err := ApplyGHE(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, imaging.ErrInvalidShape)
}

func TestApplyGHERejectsEmptyInput(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	_, err := ApplyGHE(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, imaging.ErrInvalidShape)
}

func TestRegistryAppliesGHE(t *testing.T) {
	img := rampMat(t, 64)
	defer img.Close()

	direct, err := ApplyGHE(img)
	require.NoError(t, err)
	defer direct.Close()

	viaRegistry, err := Apply("ghe", img, nil)
	require.NoError(t, err)
	defer viaRegistry.Close()

	assert.Equal(t, direct.ToBytes(), viaRegistry.ToBytes())
}

func TestRegistryUnknownAlgorithm(t *testing.T) {
	img := rampMat(t, 8)
	defer img.Close()

	_, err := Apply("unsharp", img, nil)
	require.Error(t, err)
	assert.False(t, IsValidAlgorithm("unsharp"))
	assert.True(t, IsValidAlgorithm("ghe"))
	assert.True(t, IsValidAlgorithm("clahe"))
}
