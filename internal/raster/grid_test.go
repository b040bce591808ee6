package raster

import (
	"math"
	"testing"
)

func TestGridAtSet(t *testing.T) {
	g := NewGrid(3, 4)
	if r, c := g.Shape(); r != 3 || c != 4 {
		t.Fatalf("expected shape 3x4, got %dx%d", r, c)
	}
	g.Set(2, 3, 7.5)
	if v := g.At(2, 3); v != 7.5 {
		t.Errorf("expected 7.5, got %f", v)
	}
	if v := g.At(0, 0); v != 0 {
		t.Errorf("expected zero value, got %f", v)
	}
}

func TestInt32GridFillAndClone(t *testing.T) {
	g := NewInt32Grid(2, 2, -9999)
	for i, v := range g.Data {
		if v != -9999 {
			t.Fatalf("cell %d: expected fill -9999, got %d", i, v)
		}
	}
	g.Set(1, 1, 3)

	c := g.Clone()
	c.Set(1, 1, 5)
	if g.At(1, 1) != 3 {
		t.Errorf("clone mutation leaked into original: got %d", g.At(1, 1))
	}
}

func TestExtentEmpty(t *testing.T) {
	tests := []struct {
		name  string
		ext   Extent
		empty bool
	}{
		{"normal", Extent{0, 0, 100, 100}, false},
		{"zero width", Extent{10, 0, 10, 100}, true},
		{"zero height", Extent{0, 50, 100, 50}, true},
		{"inverted", Extent{100, 100, 0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ext.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestGeometryTransform(t *testing.T) {
	geo := Geometry{
		Extent: Extent{0, 0, 100, 100},
		Rows:   10,
		Cols:   10,
		CRS:    "EPSG:32633",
	}
	if geo.PixelSizeX() != 10 || geo.PixelSizeY() != 10 {
		t.Fatalf("expected 10x10 pixel size, got %fx%f", geo.PixelSizeX(), geo.PixelSizeY())
	}
	gt := geo.GeoTransform()
	want := [6]float64{0, 10, 0, 100, 0, -10}
	if gt != want {
		t.Errorf("geotransform = %v, want %v", gt, want)
	}
}

func TestMemorySourceReadBlock(t *testing.T) {
	band := NewGrid(4, 4)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			band.Set(r, c, float64(r*4+c))
		}
	}
	src, err := NewMemorySource([]*Grid{band}, Extent{0, 0, 40, 40}, "EPSG:32633")
	if err != nil {
		t.Fatal(err)
	}
	if src.Resolution() != 10 {
		t.Errorf("expected native resolution 10, got %f", src.Resolution())
	}

	// Identity read reproduces the band.
	out, err := src.ReadBlock(1, src.Extent(), 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range band.Data {
		if out.Data[i] != band.Data[i] {
			t.Fatalf("identity read diverged at %d: %f != %f", i, out.Data[i], band.Data[i])
		}
	}

	// Downsampled read keeps shape and samples within range.
	out, err = src.ReadBlock(1, src.Extent(), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out.Rows != 2 || out.Cols != 2 {
		t.Fatalf("expected 2x2, got %dx%d", out.Rows, out.Cols)
	}

	// Reading outside the extent yields NaN.
	out, err = src.ReadBlock(1, Extent{-100, -100, -60, -60}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out.Data {
		if !math.IsNaN(v) {
			t.Errorf("cell %d outside extent: expected NaN, got %f", i, v)
		}
	}
}

func TestMemorySourceValidation(t *testing.T) {
	a := NewGrid(2, 2)
	b := NewGrid(3, 3)
	if _, err := NewMemorySource([]*Grid{a, b}, Extent{0, 0, 20, 20}, ""); err == nil {
		t.Error("expected error for mismatched band shapes")
	}
	if _, err := NewMemorySource(nil, Extent{0, 0, 20, 20}, ""); err == nil {
		t.Error("expected error for empty band list")
	}
	if _, err := NewMemorySource([]*Grid{a}, Extent{5, 5, 5, 5}, ""); err == nil {
		t.Error("expected error for empty extent")
	}

	src, err := NewMemorySource([]*Grid{a}, Extent{0, 0, 20, 20}, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.ReadBlock(2, src.Extent(), 2, 2); err == nil {
		t.Error("expected error for out-of-range band")
	}
	if _, err := src.ReadBlock(1, src.Extent(), 0, 2); err == nil {
		t.Error("expected error for zero block size")
	}
}
