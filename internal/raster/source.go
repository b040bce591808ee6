package raster

import (
	"fmt"
	"math"
)

var nan = math.NaN()

// Source exposes per-band pixel access over an arbitrary extent and
// output size, plus the georeferencing metadata the pipeline needs to
// build its target grid. The host data provider is modelled behind this
// interface rather than reimplemented; MemorySource is the in-process
// implementation used by tests and the synthetic CLI mode.
type Source interface {
	// Extent returns the full extent of the dataset in map units.
	Extent() Extent
	// CRS returns the coordinate reference system authority code.
	CRS() string
	// Resolution returns the native pixel size in map units.
	Resolution() float64
	// BandCount returns the number of bands available.
	BandCount() int
	// ReadBlock samples band (1-based) over ext into a cols x rows grid
	// using nearest-neighbor lookup.
	ReadBlock(band int, ext Extent, cols, rows int) (*Grid, error)
}

// MemorySource is an in-memory multi-band raster. All bands share one
// grid shape and extent.
type MemorySource struct {
	bands      []*Grid
	extent     Extent
	crs        string
	resolution float64
}

// NewMemorySource builds a source from equal-shaped bands. The native
// resolution is derived from the extent and the first band's width.
func NewMemorySource(bands []*Grid, extent Extent, crs string) (*MemorySource, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("memory source requires at least one band")
	}
	first := bands[0]
	for i, b := range bands {
		if !first.SameShape(b) {
			return nil, fmt.Errorf("band %d shape %dx%d differs from band 1 shape %dx%d",
				i+1, b.Rows, b.Cols, first.Rows, first.Cols)
		}
	}
	if extent.IsEmpty() {
		return nil, fmt.Errorf("memory source extent is empty")
	}
	return &MemorySource{
		bands:      bands,
		extent:     extent,
		crs:        crs,
		resolution: extent.Width() / float64(first.Cols),
	}, nil
}

// Extent returns the dataset extent.
func (s *MemorySource) Extent() Extent { return s.extent }

// CRS returns the dataset CRS authority code.
func (s *MemorySource) CRS() string { return s.crs }

// Resolution returns the native pixel size in map units.
func (s *MemorySource) Resolution() float64 { return s.resolution }

// BandCount returns the number of bands.
func (s *MemorySource) BandCount() int { return len(s.bands) }

// ReadBlock samples the requested band over ext at the requested output
// size. Each output pixel takes the value of the nearest source pixel;
// pixels falling outside the dataset extent are NaN.
func (s *MemorySource) ReadBlock(band int, ext Extent, cols, rows int) (*Grid, error) {
	if band < 1 || band > len(s.bands) {
		return nil, fmt.Errorf("band %d out of range 1..%d", band, len(s.bands))
	}
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("invalid block size %dx%d", cols, rows)
	}
	src := s.bands[band-1]
	srcPxW := s.extent.Width() / float64(src.Cols)
	srcPxH := s.extent.Height() / float64(src.Rows)

	out := NewGrid(rows, cols)
	outPxW := ext.Width() / float64(cols)
	outPxH := ext.Height() / float64(rows)

	for r := 0; r < rows; r++ {
		// Row 0 is the top of the extent.
		y := ext.YMax - (float64(r)+0.5)*outPxH
		for c := 0; c < cols; c++ {
			x := ext.XMin + (float64(c)+0.5)*outPxW

			sc := int((x - s.extent.XMin) / srcPxW)
			sr := int((s.extent.YMax - y) / srcPxH)
			if sc < 0 || sc >= src.Cols || sr < 0 || sr >= src.Rows {
				out.Set(r, c, nan)
				continue
			}
			out.Set(r, c, src.At(sr, sc))
		}
	}
	return out, nil
}
