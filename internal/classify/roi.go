package classify

import (
	"fmt"

	"github.com/terralytics/landcover/internal/raster"
)

// ROIType identifies how a region of interest was specified.
type ROIType string

const (
	// ROIFull classifies the entire input extent.
	ROIFull ROIType = "full"
	// ROIRectangle restricts classification to an axis-aligned box.
	ROIRectangle ROIType = "rectangle"
	// ROIPolygon restricts classification to a polygon's bounding box.
	ROIPolygon ROIType = "polygon"
	// ROIMask uses an external layer's footprint as the extent.
	ROIMask ROIType = "mask"
)

// Point is a vertex in map units.
type Point struct {
	X, Y float64
}

// ROI describes the spatial subset of the input to classify. Exactly one
// of the variant fields is consulted, selected by Type.
type ROI struct {
	Type      ROIType
	Rectangle raster.Extent // ROIRectangle
	Polygon   []Point       // ROIPolygon, closed ring
	Mask      raster.Source // ROIMask, footprint layer
}

// FullROI returns an ROI covering the whole input.
func FullROI() ROI { return ROI{Type: ROIFull} }

// TargetExtent resolves the ROI against the input source and returns the
// bounding extent to resample into. A degenerate (zero-area) result is an
// ErrInvalidROI: proceeding would divide by zero when converting
// resolution to pixel counts.
func (r ROI) TargetExtent(src raster.Source) (raster.Extent, error) {
	var ext raster.Extent
	switch r.Type {
	case ROIFull, "":
		ext = src.Extent()
	case ROIRectangle:
		ext = r.Rectangle
	case ROIPolygon:
		if len(r.Polygon) == 0 {
			return raster.Extent{}, fmt.Errorf("%w: empty polygon", ErrInvalidROI)
		}
		ext = polygonBounds(r.Polygon)
	case ROIMask:
		if r.Mask == nil {
			return raster.Extent{}, fmt.Errorf("%w: mask layer not set", ErrInvalidROI)
		}
		ext = r.Mask.Extent()
	default:
		return raster.Extent{}, fmt.Errorf("%w: unknown roi type %q", ErrInvalidROI, r.Type)
	}
	if ext.IsEmpty() {
		return raster.Extent{}, fmt.Errorf("%w: zero-area extent (%g,%g)-(%g,%g)",
			ErrInvalidROI, ext.XMin, ext.YMin, ext.XMax, ext.YMax)
	}
	return ext, nil
}

func polygonBounds(ring []Point) raster.Extent {
	ext := raster.Extent{
		XMin: ring[0].X, YMin: ring[0].Y,
		XMax: ring[0].X, YMax: ring[0].Y,
	}
	for _, p := range ring[1:] {
		if p.X < ext.XMin {
			ext.XMin = p.X
		}
		if p.X > ext.XMax {
			ext.XMax = p.X
		}
		if p.Y < ext.YMin {
			ext.YMin = p.Y
		}
		if p.Y > ext.YMax {
			ext.YMax = p.Y
		}
	}
	return ext
}
