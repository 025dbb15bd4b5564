// Histogram, clipping and lookup-table primitives shared by GHE and CLAHE
package equalize

import "math"

const histBins = 256

// maxRedistributePasses caps the clip/redistribute fixed-point iteration.
// Each pass truncates bins above the limit and spreads the collected excess
// uniformly; if spreading pushes bins back over the limit the next pass
// clips again. After the final pass residual mass stays where it landed so
// the histogram total is always preserved.
const maxRedistributePasses = 3

func computeHistogram(data []uint8) [histBins]float64 {
	var hist [histBins]float64
	for _, v := range data {
		hist[v]++
	}
	return hist
}

// regionHistogram computes the histogram of the rectangle [y0,y1)x[x0,x1)
// in a row-major single-channel buffer of the given width.
func regionHistogram(data []uint8, width, x0, y0, x1, y1 int) [histBins]float64 {
	var hist [histBins]float64
	for y := y0; y < y1; y++ {
		row := data[y*width : y*width+width]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
		}
	}
	return hist
}

// clipHistogram limits every bin to the given count and redistributes the
// removed excess uniformly across all bins, iterating up to
// maxRedistributePasses times when redistribution itself overflows bins.
func clipHistogram(hist [histBins]float64, limit float64) [histBins]float64 {
	for pass := 0; pass < maxRedistributePasses; pass++ {
		excess := 0.0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}
		if excess == 0 {
			break
		}
		share := excess / histBins
		for i := range hist {
			hist[i] += share
		}
	}
	return hist
}

// buildLUT derives the intensity mapping from a histogram: cumulative sum
// normalized to [0,1], scaled to [0,255] and rounded. A histogram with no
// mass, or with all mass in a single bin (a constant region), yields the
// identity mapping so degenerate inputs pass through unchanged instead of
// collapsing to the top of the range.
func buildLUT(hist [histBins]float64, total float64) [histBins]uint8 {
	var lut [histBins]uint8

	occupied := 0
	for _, count := range hist {
		if count > 0 {
			occupied++
			if occupied > 1 {
				break
			}
		}
	}
	if total <= 0 || occupied < 2 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	cum := 0.0
	for i := range hist {
		cum += hist[i]
		v := math.Round(cum / total * 255.0)
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	return lut
}
