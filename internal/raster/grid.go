package raster

import "fmt"

// Grid is a dense 2-D float64 raster band stored in row-major order.
// Rows run north to south, columns west to east, matching the usual
// top-left-origin raster convention.
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

// NewGrid allocates a zero-filled grid with the given dimensions.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// At returns the value at (row, col). No bounds checking beyond the
// underlying slice; callers index within Shape().
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set writes the value at (row, col).
func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// Shape returns (rows, cols).
func (g *Grid) Shape() (int, int) {
	return g.Rows, g.Cols
}

// SameShape reports whether two grids have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return o != nil && g.Rows == o.Rows && g.Cols == o.Cols
}

// Int32Grid is a dense 2-D int32 raster band, used for cluster label
// grids and output rasters. NoDataValue marks excluded pixels.
type Int32Grid struct {
	Rows int
	Cols int
	Data []int32
}

// NewInt32Grid allocates a grid with every cell set to fill.
func NewInt32Grid(rows, cols int, fill int32) *Int32Grid {
	g := &Int32Grid{
		Rows: rows,
		Cols: cols,
		Data: make([]int32, rows*cols),
	}
	if fill != 0 {
		for i := range g.Data {
			g.Data[i] = fill
		}
	}
	return g
}

// At returns the value at (row, col).
func (g *Int32Grid) At(row, col int) int32 {
	return g.Data[row*g.Cols+col]
}

// Set writes the value at (row, col).
func (g *Int32Grid) Set(row, col int, v int32) {
	g.Data[row*g.Cols+col] = v
}

// Clone returns a deep copy of the grid.
func (g *Int32Grid) Clone() *Int32Grid {
	c := &Int32Grid{Rows: g.Rows, Cols: g.Cols, Data: make([]int32, len(g.Data))}
	copy(c.Data, g.Data)
	return c
}

// Extent is an axis-aligned bounding box in map units.
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// Width returns the horizontal span in map units.
func (e Extent) Width() float64 { return e.XMax - e.XMin }

// Height returns the vertical span in map units.
func (e Extent) Height() float64 { return e.YMax - e.YMin }

// IsEmpty reports whether the extent has zero or negative area.
func (e Extent) IsEmpty() bool {
	return e.Width() <= 0 || e.Height() <= 0
}

// Geometry describes a raster's georeferencing: its extent, pixel grid
// dimensions and coordinate reference system (an authority code such as
// "EPSG:32633", or empty when unknown).
type Geometry struct {
	Extent Extent
	Rows   int
	Cols   int
	CRS    string
}

// PixelSizeX returns the pixel width in map units.
func (g Geometry) PixelSizeX() float64 {
	if g.Cols == 0 {
		return 0
	}
	return g.Extent.Width() / float64(g.Cols)
}

// PixelSizeY returns the pixel height in map units (positive).
func (g Geometry) PixelSizeY() float64 {
	if g.Rows == 0 {
		return 0
	}
	return g.Extent.Height() / float64(g.Rows)
}

// GeoTransform returns the six-element GDAL-style affine transform
// [originX, pixelW, 0, originY, 0, -pixelH] with the origin at the
// top-left corner.
func (g Geometry) GeoTransform() [6]float64 {
	return [6]float64{
		g.Extent.XMin, g.PixelSizeX(), 0,
		g.Extent.YMax, 0, -g.PixelSizeY(),
	}
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d px, extent (%g,%g)-(%g,%g), crs %q",
		g.Cols, g.Rows, g.Extent.XMin, g.Extent.YMin, g.Extent.XMax, g.Extent.YMax, g.CRS)
}
