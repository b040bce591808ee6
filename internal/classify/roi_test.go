package classify

import (
	"errors"
	"testing"

	"github.com/terralytics/landcover/internal/raster"
)

func testSource(t *testing.T, rows, cols int, extent raster.Extent) *raster.MemorySource {
	t.Helper()
	src, err := raster.NewMemorySource([]*raster.Grid{raster.NewGrid(rows, cols)}, extent, "EPSG:32633")
	if err != nil {
		t.Fatalf("NewMemorySource: %v", err)
	}
	return src
}

func TestROI_TargetExtent_Full(t *testing.T) {
	ext := raster.Extent{XMin: 0, YMin: 0, XMax: 100, YMax: 100}
	src := testSource(t, 10, 10, ext)

	got, err := FullROI().TargetExtent(src)
	if err != nil {
		t.Fatalf("TargetExtent: %v", err)
	}
	if got != ext {
		t.Errorf("expected extent %v, got %v", ext, got)
	}

	// The zero value behaves as a full ROI.
	got, err = ROI{}.TargetExtent(src)
	if err != nil {
		t.Fatalf("TargetExtent zero value: %v", err)
	}
	if got != ext {
		t.Errorf("expected extent %v for zero ROI, got %v", ext, got)
	}
}

func TestROI_TargetExtent_Rectangle(t *testing.T) {
	src := testSource(t, 10, 10, raster.Extent{XMax: 100, YMax: 100})
	rect := raster.Extent{XMin: 10, YMin: 20, XMax: 50, YMax: 60}

	got, err := ROI{Type: ROIRectangle, Rectangle: rect}.TargetExtent(src)
	if err != nil {
		t.Fatalf("TargetExtent: %v", err)
	}
	if got != rect {
		t.Errorf("expected %v, got %v", rect, got)
	}
}

func TestROI_TargetExtent_PolygonBounds(t *testing.T) {
	src := testSource(t, 10, 10, raster.Extent{XMax: 100, YMax: 100})
	roi := ROI{Type: ROIPolygon, Polygon: []Point{
		{X: 30, Y: 10}, {X: 70, Y: 40}, {X: 50, Y: 90}, {X: 30, Y: 10},
	}}

	got, err := roi.TargetExtent(src)
	if err != nil {
		t.Fatalf("TargetExtent: %v", err)
	}
	want := raster.Extent{XMin: 30, YMin: 10, XMax: 70, YMax: 90}
	if got != want {
		t.Errorf("expected bounds %v, got %v", want, got)
	}
}

func TestROI_TargetExtent_Mask(t *testing.T) {
	src := testSource(t, 10, 10, raster.Extent{XMax: 100, YMax: 100})
	maskExt := raster.Extent{XMin: 20, YMin: 20, XMax: 80, YMax: 80}
	mask := testSource(t, 6, 6, maskExt)

	got, err := ROI{Type: ROIMask, Mask: mask}.TargetExtent(src)
	if err != nil {
		t.Fatalf("TargetExtent: %v", err)
	}
	if got != maskExt {
		t.Errorf("expected %v, got %v", maskExt, got)
	}
}

func TestROI_TargetExtent_Invalid(t *testing.T) {
	src := testSource(t, 10, 10, raster.Extent{XMax: 100, YMax: 100})

	cases := []struct {
		name string
		roi  ROI
	}{
		{"zero-area rectangle", ROI{Type: ROIRectangle, Rectangle: raster.Extent{XMin: 10, YMin: 10, XMax: 10, YMax: 50}}},
		{"inverted rectangle", ROI{Type: ROIRectangle, Rectangle: raster.Extent{XMin: 50, YMin: 50, XMax: 10, YMax: 90}}},
		{"empty polygon", ROI{Type: ROIPolygon}},
		{"degenerate polygon", ROI{Type: ROIPolygon, Polygon: []Point{{X: 5, Y: 5}, {X: 5, Y: 5}}}},
		{"missing mask", ROI{Type: ROIMask}},
		{"unknown type", ROI{Type: "circle"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.roi.TargetExtent(src)
			if !errors.Is(err, ErrInvalidROI) {
				t.Errorf("expected ErrInvalidROI, got %v", err)
			}
		})
	}
}
