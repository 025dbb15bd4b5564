// No-reference perceptual quality metrics
package metrics

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"histeq/internal/imaging"
)

// DefaultBlockSize is the tile pitch that blocking-artifact detection
// inspects; it matches the default CLAHE tile size.
const DefaultBlockSize = 8

// Naturalness blend weights and normalization caps.
const (
	naturalnessEntropyWeight    = 0.4
	naturalnessSmoothnessWeight = 0.3
	naturalnessContrastWeight   = 0.3
	naturalnessEntropyScale     = 8.0
	naturalnessContrastScale    = 64.0
)

// blockingNormalization maps the mean boundary intensity jump onto [0,1].
const blockingNormalization = 20.0

// OverEnhancementPolicy holds the thresholds that decide when an enhancement
// is flagged as over-done. Zero values are meaningful, so callers that want
// the standard policy start from DefaultOverEnhancementPolicy.
type OverEnhancementPolicy struct {
	MaxBrightnessShift float64 // |brightness delta| / original brightness
	MaxContrastGain    float64 // (enhanced - original) / original contrast
	MaxSaturationRatio float64 // fraction of pixels at the intensity extremes
}

// DefaultOverEnhancementPolicy mirrors the reference thresholds: 30%
// brightness shift, 200% contrast gain, 5% saturated pixels.
var DefaultOverEnhancementPolicy = OverEnhancementPolicy{
	MaxBrightnessShift: 0.30,
	MaxContrastGain:    2.0,
	MaxSaturationRatio: 0.05,
}

// Saturation band: pixels at or below the low bound or at or above the high
// bound count as clipped.
const (
	saturationLowBound  = 5
	saturationHighBound = 250
)

// OverEnhancementResult carries the individual indicators alongside the
// combined flag.
type OverEnhancementResult struct {
	BrightnessChangeRatio float64 `json:"brightness_change_ratio"`
	ContrastChangeRatio   float64 `json:"contrast_change_ratio"`
	SaturationRatio       float64 `json:"saturation_ratio"`
	EdgeStrength          float64 `json:"edge_strength"`
	OverEnhanced          bool    `json:"is_over_enhanced"`
}

// Sharpness measures edge content as the variance of the Laplacian of the
// grayscale-converted image. Higher values indicate sharper images.
func Sharpness(img gocv.Mat) (float64, error) {
	gray, err := toGrayscale(img)
	if err != nil {
		return 0, fmt.Errorf("sharpness: %w", err)
	}
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	total := float64(laplacian.Rows() * laplacian.Cols())
	sum := 0.0
	for y := 0; y < laplacian.Rows(); y++ {
		for x := 0; x < laplacian.Cols(); x++ {
			sum += laplacian.GetDoubleAt(y, x)
		}
	}
	mean := sum / total

	sumSquaredDiff := 0.0
	for y := 0; y < laplacian.Rows(); y++ {
		for x := 0; x < laplacian.Cols(); x++ {
			diff := laplacian.GetDoubleAt(y, x) - mean
			sumSquaredDiff += diff * diff
		}
	}
	return sumSquaredDiff / total, nil
}

// Colorfulness implements the Hasler-Suesstrunk metric over the opponent
// channels rg = R-G and yb = (R+G)/2 - B. Single-channel images carry no
// color signal and score 0.
func Colorfulness(img gocv.Mat) (float64, error) {
	if img.Empty() {
		return 0, fmt.Errorf("colorfulness: %w: empty image", imaging.ErrInvalidShape)
	}
	if img.Channels() != 3 {
		return 0, nil
	}

	rows := img.Rows()
	cols := img.Cols()
	total := float64(rows * cols)

	var sumRG, sumYB, sumRGSq, sumYBSq float64
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			b := float64(img.GetUCharAt3(y, x, 0))
			g := float64(img.GetUCharAt3(y, x, 1))
			r := float64(img.GetUCharAt3(y, x, 2))

			rg := r - g
			yb := 0.5*(r+g) - b
			sumRG += rg
			sumYB += yb
			sumRGSq += rg * rg
			sumYBSq += yb * yb
		}
	}

	meanRG := sumRG / total
	meanYB := sumYB / total
	varRG := sumRGSq/total - meanRG*meanRG
	varYB := sumYBSq/total - meanYB*meanYB
	if varRG < 0 {
		varRG = 0
	}
	if varYB < 0 {
		varYB = 0
	}

	stdRoot := math.Sqrt(varRG + varYB)
	meanRoot := math.Sqrt(meanRG*meanRG + meanYB*meanYB)
	return stdRoot + 0.3*meanRoot, nil
}

// Naturalness scores how statistically natural the intensity distribution
// looks: a weighted blend of normalized entropy, histogram smoothness and
// normalized standard deviation. The caps keep the result in [0,1].
func Naturalness(img gocv.Mat) (float64, error) {
	gray, err := toGrayscale(img)
	if err != nil {
		return 0, fmt.Errorf("naturalness: %w", err)
	}
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	hist := grayHistogram(gray)
	total := float64(gray.Rows() * gray.Cols())
	for i := range hist {
		hist[i] /= total
	}

	entropy := 0.0
	for _, p := range hist {
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	entropyScore := math.Min(entropy/naturalnessEntropyScale, 1.0)

	// 5-bin moving average; windows truncate at the histogram edges but the
	// divisor stays 5, matching a zero-padded convolution.
	roughness := 0.0
	for i := range hist {
		window := 0.0
		for j := i - 2; j <= i+2; j++ {
			if j >= 0 && j < len(hist) {
				window += hist[j]
			}
		}
		roughness += math.Abs(hist[i] - window/5)
	}
	smoothness := 1.0 - roughness/float64(len(hist))

	_, std := grayMeanStd(gray)
	contrastScore := math.Min(std/naturalnessContrastScale, 1.0)

	return entropyScore*naturalnessEntropyWeight +
		smoothness*naturalnessSmoothnessWeight +
		contrastScore*naturalnessContrastWeight, nil
}

// BlockingArtifacts measures the mean absolute intensity jump across row and
// column boundaries at multiples of blockSize, normalized onto [0,1]. Tile
// seams left by adaptive equalization show up here.
func BlockingArtifacts(img gocv.Mat, blockSize int) (float64, error) {
	if blockSize < 1 {
		return 0, fmt.Errorf("blocking: %w: block size %d must be >= 1", imaging.ErrInvalidParameter, blockSize)
	}
	gray, err := toGrayscale(img)
	if err != nil {
		return 0, fmt.Errorf("blocking: %w", err)
	}
	defer func() {
		if gray.Ptr() != img.Ptr() {
			gray.Close()
		}
	}()

	rows := gray.Rows()
	cols := gray.Cols()
	score := 0.0
	count := 0

	for y := blockSize; y < rows; y += blockSize {
		if y >= rows-1 {
			continue
		}
		diff := 0.0
		for x := 0; x < cols; x++ {
			diff += math.Abs(float64(gray.GetUCharAt(y, x)) - float64(gray.GetUCharAt(y-1, x)))
		}
		score += diff / float64(cols)
		count++
	}

	for x := blockSize; x < cols; x += blockSize {
		if x >= cols-1 {
			continue
		}
		diff := 0.0
		for y := 0; y < rows; y++ {
			diff += math.Abs(float64(gray.GetUCharAt(y, x)) - float64(gray.GetUCharAt(y, x-1)))
		}
		score += diff / float64(rows)
		count++
	}

	if count > 0 {
		score /= float64(count)
	}
	return math.Min(score/blockingNormalization, 1.0), nil
}

// DetectOverEnhancement compares enhanced against original and flags
// excessive brightness shift, contrast gain or intensity saturation
// according to the policy thresholds.
func DetectOverEnhancement(original, enhanced gocv.Mat, policy OverEnhancementPolicy) (OverEnhancementResult, error) {
	var result OverEnhancementResult

	if err := checkPair(original, enhanced); err != nil {
		return result, fmt.Errorf("over-enhancement: %w", err)
	}

	brightnessOrig, err := Brightness(original)
	if err != nil {
		return result, err
	}
	brightnessEnh, err := Brightness(enhanced)
	if err != nil {
		return result, err
	}
	delta := math.Abs(brightnessEnh - brightnessOrig)
	switch {
	case brightnessOrig > 0:
		result.BrightnessChangeRatio = delta / brightnessOrig
	case delta > 0:
		// Black original made brighter: any shift is unbounded relative
		// change, which always trips the brightness threshold.
		result.BrightnessChangeRatio = math.Inf(1)
	}

	contrastOrig, err := Contrast(original)
	if err != nil {
		return result, err
	}
	contrastEnh, err := Contrast(enhanced)
	if err != nil {
		return result, err
	}
	if contrastOrig > 0 {
		result.ContrastChangeRatio = (contrastEnh - contrastOrig) / contrastOrig
	}

	grayEnh, err := toGrayscale(enhanced)
	if err != nil {
		return result, fmt.Errorf("over-enhancement: %w", err)
	}
	defer func() {
		if grayEnh.Ptr() != enhanced.Ptr() {
			grayEnh.Close()
		}
	}()

	saturated := 0
	for y := 0; y < grayEnh.Rows(); y++ {
		for x := 0; x < grayEnh.Cols(); x++ {
			v := grayEnh.GetUCharAt(y, x)
			if v <= saturationLowBound || v >= saturationHighBound {
				saturated++
			}
		}
	}
	result.SaturationRatio = float64(saturated) / float64(grayEnh.Rows()*grayEnh.Cols())

	result.EdgeStrength = meanGradientMagnitude(grayEnh)

	result.OverEnhanced = result.BrightnessChangeRatio > policy.MaxBrightnessShift ||
		result.ContrastChangeRatio > policy.MaxContrastGain ||
		result.SaturationRatio > policy.MaxSaturationRatio

	return result, nil
}

func meanGradientMagnitude(gray gocv.Mat) float64 {
	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()

	gocv.Sobel(gray, &gradX, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	sum := 0.0
	for y := 0; y < gray.Rows(); y++ {
		for x := 0; x < gray.Cols(); x++ {
			gx := gradX.GetDoubleAt(y, x)
			gy := gradY.GetDoubleAt(y, x)
			sum += math.Sqrt(gx*gx + gy*gy)
		}
	}
	return sum / float64(gray.Rows()*gray.Cols())
}
