// Reference-based quantitative metrics comparing enhanced images to originals
package metrics

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"histeq/internal/imaging"
)

var (
	// ErrShapeMismatch reports original/enhanced images whose dimensions or
	// channel counts differ in a reference-based comparison.
	ErrShapeMismatch = errors.New("image dimensions mismatch")

	// ErrDivisionByZero reports a degenerate denominator in an improvement
	// ratio, e.g. the contrast ratio of a perfectly flat original.
	ErrDivisionByZero = errors.New("division by zero in improvement ratio")
)

// SSIM constants for 8-bit dynamic range: (0.01*255)^2 and (0.03*255)^2.
const (
	ssimC1 = 6.5025
	ssimC2 = 58.5225
)

func checkPair(original, enhanced gocv.Mat) error {
	if original.Empty() || enhanced.Empty() {
		return fmt.Errorf("%w: empty image", imaging.ErrInvalidShape)
	}
	if original.Rows() != enhanced.Rows() || original.Cols() != enhanced.Cols() ||
		original.Channels() != enhanced.Channels() {
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrShapeMismatch,
			original.Cols(), original.Rows(), original.Channels(),
			enhanced.Cols(), enhanced.Rows(), enhanced.Channels())
	}
	return nil
}

// PSNR computes the peak signal-to-noise ratio in dB over all channels.
// Identical images have zero MSE and yield +Inf, a valid sentinel rather
// than an error.
func PSNR(original, enhanced gocv.Mat) (float64, error) {
	if err := checkPair(original, enhanced); err != nil {
		return 0, fmt.Errorf("psnr: %w", err)
	}

	sumSquaredDiff := 0.0
	rows := original.Rows()
	cols := original.Cols()
	channels := original.Channels()

	if channels == 1 {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				diff := float64(original.GetUCharAt(y, x)) - float64(enhanced.GetUCharAt(y, x))
				sumSquaredDiff += diff * diff
			}
		}
	} else {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				for c := 0; c < channels; c++ {
					diff := float64(original.GetUCharAt3(y, x, c)) - float64(enhanced.GetUCharAt3(y, x, c))
					sumSquaredDiff += diff * diff
				}
			}
		}
	}

	mse := sumSquaredDiff / float64(rows*cols*channels)
	if mse == 0 {
		return math.Inf(1), nil
	}

	maxVal := 255.0
	return 20 * math.Log10(maxVal/math.Sqrt(mse)), nil
}

// SSIM computes the mean structural similarity with an 11x11 Gaussian
// window (sigma 1.5) and a fixed dynamic range of 255. Color images are
// scored per channel and the channel scores averaged.
func SSIM(original, enhanced gocv.Mat) (float64, error) {
	if err := checkPair(original, enhanced); err != nil {
		return 0, fmt.Errorf("ssim: %w", err)
	}

	if original.Channels() == 1 {
		return ssimChannel(original, enhanced)
	}

	origPlanes := gocv.Split(original)
	enhPlanes := gocv.Split(enhanced)
	defer func() {
		for i := range origPlanes {
			origPlanes[i].Close()
		}
		for i := range enhPlanes {
			enhPlanes[i].Close()
		}
	}()

	sum := 0.0
	for i := range origPlanes {
		score, err := ssimChannel(origPlanes[i], enhPlanes[i])
		if err != nil {
			return 0, err
		}
		sum += score
	}
	return sum / float64(len(origPlanes)), nil
}

func ssimChannel(a, b gocv.Mat) (float64, error) {
	f1 := gocv.NewMat()
	defer f1.Close()
	f2 := gocv.NewMat()
	defer f2.Close()
	a.ConvertTo(&f1, gocv.MatTypeCV32F)
	b.ConvertTo(&f2, gocv.MatTypeCV32F)

	mu1 := gaussianWindow(f1)
	defer mu1.Close()
	mu2 := gaussianWindow(f2)
	defer mu2.Close()

	f1Sq := gocv.NewMat()
	defer f1Sq.Close()
	gocv.Multiply(f1, f1, &f1Sq)
	blur11 := gaussianWindow(f1Sq)
	defer blur11.Close()

	f2Sq := gocv.NewMat()
	defer f2Sq.Close()
	gocv.Multiply(f2, f2, &f2Sq)
	blur22 := gaussianWindow(f2Sq)
	defer blur22.Close()

	f1f2 := gocv.NewMat()
	defer f1f2.Close()
	gocv.Multiply(f1, f2, &f1f2)
	blur12 := gaussianWindow(f1f2)
	defer blur12.Close()

	m1, err := mu1.DataPtrFloat32()
	if err != nil {
		return 0, fmt.Errorf("ssim: %w", err)
	}
	m2, err := mu2.DataPtrFloat32()
	if err != nil {
		return 0, fmt.Errorf("ssim: %w", err)
	}
	b11, err := blur11.DataPtrFloat32()
	if err != nil {
		return 0, fmt.Errorf("ssim: %w", err)
	}
	b22, err := blur22.DataPtrFloat32()
	if err != nil {
		return 0, fmt.Errorf("ssim: %w", err)
	}
	b12, err := blur12.DataPtrFloat32()
	if err != nil {
		return 0, fmt.Errorf("ssim: %w", err)
	}

	sum := 0.0
	for i := range m1 {
		mean1 := float64(m1[i])
		mean2 := float64(m2[i])
		sigma1 := float64(b11[i]) - mean1*mean1
		sigma2 := float64(b22[i]) - mean2*mean2
		sigma12 := float64(b12[i]) - mean1*mean2

		numerator := (2*mean1*mean2 + ssimC1) * (2*sigma12 + ssimC2)
		denominator := (mean1*mean1 + mean2*mean2 + ssimC1) * (sigma1 + sigma2 + ssimC2)
		sum += numerator / denominator
	}
	return sum / float64(len(m1)), nil
}

func gaussianWindow(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.GaussianBlur(src, &dst, image.Pt(11, 11), 1.5, 1.5, gocv.BorderDefault)
	return dst
}

// Entropy computes the Shannon entropy in bits of the grayscale-converted
// image's 256-bin intensity distribution, skipping empty bins.
func Entropy(img gocv.Mat) (float64, error) {
	gray, err := toGrayscale(img)
	if err != nil {
		return 0, fmt.Errorf("entropy: %w", err)
	}
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	hist := grayHistogram(gray)
	total := float64(gray.Rows() * gray.Cols())

	entropy := 0.0
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := count / total
		entropy -= p * math.Log2(p)
	}
	return entropy, nil
}

// Contrast computes the RMS deviation from the mean intensity of the
// grayscale-converted image.
func Contrast(img gocv.Mat) (float64, error) {
	gray, err := toGrayscale(img)
	if err != nil {
		return 0, fmt.Errorf("contrast: %w", err)
	}
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	_, std := grayMeanStd(gray)
	return std, nil
}

// Brightness computes the mean intensity of the grayscale-converted image.
func Brightness(img gocv.Mat) (float64, error) {
	gray, err := toGrayscale(img)
	if err != nil {
		return 0, fmt.Errorf("brightness: %w", err)
	}
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	mean, _ := grayMeanStd(gray)
	return mean, nil
}

// ImprovementRatio guards the enhanced/original metric ratio against a zero
// denominator, which occurs only for degenerate originals (e.g. a constant
// image has zero entropy and zero contrast).
func ImprovementRatio(enhanced, original float64) (float64, error) {
	if original == 0 {
		return 0, ErrDivisionByZero
	}
	return enhanced / original, nil
}

// toGrayscale returns img itself for single-channel input, or a fresh
// grayscale conversion otherwise. Callers compare Ptr() to know whether to
// close the returned Mat.
func toGrayscale(img gocv.Mat) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: empty image", imaging.ErrInvalidShape)
	}
	if img.Channels() == 1 {
		return img, nil
	}
	if img.Channels() != 3 {
		return gocv.NewMat(), fmt.Errorf("%w: %d channels", imaging.ErrInvalidShape, img.Channels())
	}

	gray := gocv.NewMat()
	if err := gocv.CvtColor(img, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("grayscale conversion failed: %w", err)
	}
	return gray, nil
}

func grayHistogram(gray gocv.Mat) [256]float64 {
	var hist [256]float64
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			hist[gray.GetUCharAt(y, x)]++
		}
	}
	return hist
}

func grayMeanStd(gray gocv.Mat) (float64, float64) {
	total := float64(gray.Rows() * gray.Cols())

	sum := 0.0
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			sum += float64(gray.GetUCharAt(y, x))
		}
	}
	mean := sum / total

	sumSquaredDiff := 0.0
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			diff := float64(gray.GetUCharAt(y, x)) - mean
			sumSquaredDiff += diff * diff
		}
	}
	return mean, math.Sqrt(sumSquaredDiff / total)
}
