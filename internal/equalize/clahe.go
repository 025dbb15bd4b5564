// Contrast-Limited Adaptive Histogram Equalization
package equalize

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"histeq/internal/imaging"
)

// TileGrid is the rows x cols partition of the channel into local regions.
type TileGrid struct {
	Rows int
	Cols int
}

// tileMaps holds the per-tile lookup tables and tile center coordinates.
// Tables are indexed by tileRow*cols + tileCol, computed once per invocation
// and read-only during the interpolation pass.
type tileMaps struct {
	rows     int
	cols     int
	luts     [][histBins]uint8
	centersY []float64
	centersX []float64
}

// ApplyCLAHE equalizes each tile of the channel against its own clipped
// histogram and removes tile-boundary discontinuities by bilinearly blending
// the four neighboring tile mappings at every pixel. clipLimit 0 disables
// contrast clipping; a grid of (1,1) degenerates to ApplyGHE.
func ApplyCLAHE(channel gocv.Mat, clipLimit float64, grid TileGrid) (gocv.Mat, error) {
	if err := validateChannel(channel); err != nil {
		return gocv.NewMat(), fmt.Errorf("clahe: %w", err)
	}
	if clipLimit < 0 {
		return gocv.NewMat(), fmt.Errorf("clahe: %w: clip limit %g is negative", imaging.ErrInvalidParameter, clipLimit)
	}
	if grid.Rows < 1 || grid.Cols < 1 {
		return gocv.NewMat(), fmt.Errorf("clahe: %w: tile grid %dx%d must be at least 1x1", imaging.ErrInvalidParameter, grid.Rows, grid.Cols)
	}

	height := channel.Rows()
	width := channel.Cols()
	data := channel.ToBytes()

	maps := buildTileMaps(data, width, height, clipLimit, grid)
	out := interpolate(data, width, height, maps)

	result, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, out)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("clahe: result allocation failed: %w", err)
	}
	return result, nil
}

// buildTileMaps partitions the channel with ceiling division (boundary tiles
// absorb the remainder and come out smaller) and computes one clipped
// mapping table per tile. Tiles are independent, so tile rows are processed
// concurrently; each goroutine writes disjoint slots and the result does not
// depend on scheduling order.
func buildTileMaps(data []uint8, width, height int, clipLimit float64, grid TileGrid) *tileMaps {
	rows := grid.Rows
	cols := grid.Cols
	if rows > height {
		rows = height
	}
	if cols > width {
		cols = width
	}

	tileH := (height + rows - 1) / rows
	tileW := (width + cols - 1) / cols

	maps := &tileMaps{
		rows:     rows,
		cols:     cols,
		luts:     make([][histBins]uint8, rows*cols),
		centersY: make([]float64, rows),
		centersX: make([]float64, cols),
	}

	for tr := 0; tr < rows; tr++ {
		y0 := tr * tileH
		y1 := y0 + tileH
		if y1 > height {
			y1 = height
		}
		maps.centersY[tr] = (float64(y0) + float64(y1) - 1) / 2
	}
	for tc := 0; tc < cols; tc++ {
		x0 := tc * tileW
		x1 := x0 + tileW
		if x1 > width {
			x1 = width
		}
		maps.centersX[tc] = (float64(x0) + float64(x1) - 1) / 2
	}

	var wg sync.WaitGroup
	for tr := 0; tr < rows; tr++ {
		wg.Add(1)
		go func(tr int) {
			defer wg.Done()
			y0 := tr * tileH
			y1 := y0 + tileH
			if y1 > height {
				y1 = height
			}
			for tc := 0; tc < cols; tc++ {
				x0 := tc * tileW
				x1 := x0 + tileW
				if x1 > width {
					x1 = width
				}
				maps.luts[tr*cols+tc] = buildTileLUT(data, width, x0, y0, x1, y1, clipLimit)
			}
		}(tr)
	}
	wg.Wait()

	return maps
}

func buildTileLUT(data []uint8, width, x0, y0, x1, y1 int, clipLimit float64) [histBins]uint8 {
	hist := regionHistogram(data, width, x0, y0, x1, y1)
	pixels := float64((y1 - y0) * (x1 - x0))

	if clipLimit > 0 {
		limit := clipLimit * pixels / histBins
		if limit < 1 {
			limit = 1
		}
		hist = clipHistogram(hist, limit)
	}

	return buildLUT(hist, pixels)
}

// interpolate computes each output pixel as the bilinear blend of the four
// nearest tile mappings evaluated at the pixel's input intensity. Pixels
// outside the outermost tile centers clamp to the nearest center, so border
// bands fall back to the single nearest tile mapping.
func interpolate(data []uint8, width, height int, maps *tileMaps) []byte {
	out := make([]byte, len(data))

	colLo := make([]int, width)
	colHi := make([]int, width)
	colW := make([]float64, width)
	for x := 0; x < width; x++ {
		colLo[x], colHi[x], colW[x] = bracketCenter(maps.centersX, float64(x))
	}

	for y := 0; y < height; y++ {
		rowLo, rowHi, wy := bracketCenter(maps.centersY, float64(y))
		top := maps.luts[rowLo*maps.cols:]
		bottom := maps.luts[rowHi*maps.cols:]

		rowOff := y * width
		for x := 0; x < width; x++ {
			v := data[rowOff+x]
			wx := colW[x]

			tl := float64(top[colLo[x]][v])
			tr := float64(top[colHi[x]][v])
			bl := float64(bottom[colLo[x]][v])
			br := float64(bottom[colHi[x]][v])

			blended := (1-wy)*((1-wx)*tl+wx*tr) + wy*((1-wx)*bl+wx*br)
			if blended < 0 {
				blended = 0
			} else if blended > 255 {
				blended = 255
			}
			out[rowOff+x] = uint8(blended + 0.5)
		}
	}

	return out
}

// bracketCenter finds the pair of tile centers surrounding pos and the
// normalized weight of the upper one. Positions before the first or past the
// last center collapse to that center with weight 0.
func bracketCenter(centers []float64, pos float64) (lo, hi int, weight float64) {
	last := len(centers) - 1
	if pos <= centers[0] {
		return 0, 0, 0
	}
	if pos >= centers[last] {
		return last, last, 0
	}
	lo = 0
	for lo < last-1 && centers[lo+1] <= pos {
		lo++
	}
	hi = lo + 1
	weight = (pos - centers[lo]) / (centers[hi] - centers[lo])
	return lo, hi, weight
}

// CLAHE wraps the contrast-limited adaptive engine as a registry algorithm.
type CLAHE struct{}

func NewCLAHE() *CLAHE {
	return &CLAHE{}
}

const (
	defaultClipLimit = 2.0
	defaultTileSize  = 8
)

func (c *CLAHE) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	clipLimit := floatParam(params, "clip_limit", defaultClipLimit)
	grid := TileGrid{
		Rows: intParam(params, "tile_rows", defaultTileSize),
		Cols: intParam(params, "tile_cols", defaultTileSize),
	}
	return ApplyCLAHE(input, clipLimit, grid)
}

func (c *CLAHE) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"clip_limit": defaultClipLimit,
		"tile_rows":  float64(defaultTileSize),
		"tile_cols":  float64(defaultTileSize),
	}
}

func (c *CLAHE) GetName() string {
	return "CLAHE"
}

func (c *CLAHE) GetDescription() string {
	return "Tile-local histogram equalization with contrast clipping and bilinear blending"
}

func (c *CLAHE) Validate(params map[string]interface{}) error {
	if floatParam(params, "clip_limit", defaultClipLimit) < 0 {
		return fmt.Errorf("clahe: %w: clip_limit must be >= 0", imaging.ErrInvalidParameter)
	}
	if intParam(params, "tile_rows", defaultTileSize) < 1 {
		return fmt.Errorf("clahe: %w: tile_rows must be >= 1", imaging.ErrInvalidParameter)
	}
	if intParam(params, "tile_cols", defaultTileSize) < 1 {
		return fmt.Errorf("clahe: %w: tile_cols must be >= 1", imaging.ErrInvalidParameter)
	}
	return nil
}

func (c *CLAHE) GetParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "clip_limit",
			Type:        "float",
			Min:         0.0,
			Max:         40.0,
			Default:     defaultClipLimit,
			Description: "Contrast limit as a multiple of the uniform bin count; 0 disables clipping",
		},
		{
			Name:        "tile_rows",
			Type:        "int",
			Min:         1.0,
			Max:         64.0,
			Default:     float64(defaultTileSize),
			Description: "Tile grid rows",
		},
		{
			Name:        "tile_cols",
			Type:        "int",
			Min:         1.0,
			Max:         64.0,
			Default:     float64(defaultTileSize),
			Description: "Tile grid columns",
		},
	}
}
