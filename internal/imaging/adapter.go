// Channel adapter: extracts the working luminance channel and reassembles
// the enhanced result without touching the remaining channels.
package imaging

import (
	"fmt"

	"gocv.io/x/gocv"
)

// SideChannels retains everything Extract sets aside so Reassemble can
// rebuild the full image around an enhanced working channel. Close must be
// called once the enhanced image has been produced.
type SideChannels struct {
	layout Layout
	space  ColorSpace
	planes []gocv.Mat // all channel planes in target-space order (color only)
	rows   int
	cols   int
}

// Layout reports whether the extracted image was grayscale or color.
func (sc *SideChannels) Layout() Layout {
	return sc.layout
}

// Close releases the retained channel planes.
func (sc *SideChannels) Close() {
	for i := range sc.planes {
		sc.planes[i].Close()
	}
	sc.planes = nil
}

// Extract selects the single channel to equalize. Single-channel images are
// returned whole (the color space is ignored); 3-channel BGR images are
// converted to the requested color space and split, with the non-luminance
// planes retained for Reassemble. The input Mat is never modified.
func Extract(img gocv.Mat, space ColorSpace) (gocv.Mat, *SideChannels, error) {
	if img.Empty() {
		return gocv.NewMat(), nil, fmt.Errorf("extract: %w: empty image", ErrInvalidShape)
	}

	switch img.Channels() {
	case 1:
		side := &SideChannels{layout: LayoutGrayscale, rows: img.Rows(), cols: img.Cols()}
		return img.Clone(), side, nil
	case 3:
		return extractColor(img, space)
	default:
		return gocv.NewMat(), nil, fmt.Errorf("extract: %w: %d channels", ErrInvalidShape, img.Channels())
	}
}

func extractColor(img gocv.Mat, space ColorSpace) (gocv.Mat, *SideChannels, error) {
	converted := gocv.NewMat()
	defer converted.Close()

	if err := gocv.CvtColor(img, &converted, space.forwardCode()); err != nil {
		return gocv.NewMat(), nil, fmt.Errorf("extract: conversion to %s failed: %w", space, err)
	}

	planes := gocv.Split(converted)
	if len(planes) != 3 {
		for i := range planes {
			planes[i].Close()
		}
		return gocv.NewMat(), nil, fmt.Errorf("extract: %w: split produced %d planes", ErrInvalidShape, len(planes))
	}

	working := planes[space.luminanceIndex()].Clone()
	side := &SideChannels{
		layout: LayoutColor,
		space:  space,
		planes: planes,
		rows:   img.Rows(),
		cols:   img.Cols(),
	}
	return working, side, nil
}

// Reassemble substitutes the enhanced channel for the original working
// channel and converts back to BGR for color input. For grayscale input the
// enhanced channel is the whole result. The caller keeps ownership of
// enhanced; the returned Mat is freshly allocated.
func Reassemble(side *SideChannels, enhanced gocv.Mat) (gocv.Mat, error) {
	if side == nil {
		return gocv.NewMat(), fmt.Errorf("reassemble: nil side channels")
	}
	if enhanced.Empty() || enhanced.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("reassemble: %w: enhanced channel must be single-channel", ErrInvalidShape)
	}
	if enhanced.Rows() != side.rows || enhanced.Cols() != side.cols {
		return gocv.NewMat(), fmt.Errorf("reassemble: %w: enhanced channel is %dx%d, expected %dx%d",
			ErrInvalidShape, enhanced.Cols(), enhanced.Rows(), side.cols, side.rows)
	}

	if side.layout == LayoutGrayscale {
		return enhanced.Clone(), nil
	}

	idx := side.space.luminanceIndex()
	merged := gocv.NewMat()
	defer merged.Close()

	planes := make([]gocv.Mat, len(side.planes))
	copy(planes, side.planes)
	planes[idx] = enhanced

	gocv.Merge(planes, &merged)

	out := gocv.NewMat()
	if err := gocv.CvtColor(merged, &out, side.space.inverseCode()); err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("reassemble: conversion from %s failed: %w", side.space, err)
	}
	return out, nil
}
