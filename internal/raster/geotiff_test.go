package raster

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testGeometry() Geometry {
	return Geometry{
		Extent: Extent{500000, 4000000, 500040, 4000040},
		Rows:   4,
		Cols:   4,
		CRS:    "EPSG:32633",
	}
}

func TestWriteInt32GeoTIFF(t *testing.T) {
	labels := NewInt32Grid(4, 4, -9999)
	labels.Set(0, 0, 0)
	labels.Set(3, 3, 2)

	path := filepath.Join(t.TempDir(), "labels.tif")
	if err := WriteInt32GeoTIFF(path, labels, testGeometry(), -9999); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 {
		t.Fatalf("file too short: %d bytes", len(data))
	}

	// Little-endian classic TIFF magic.
	if data[0] != 'I' || data[1] != 'I' || data[2] != 42 || data[3] != 0 {
		t.Fatalf("bad TIFF header: % x", data[:4])
	}

	// The pixel strip occupies the last rows*cols*4 bytes and must round-trip.
	strip := data[len(data)-4*16:]
	for i, want := range labels.Data {
		got := int32(binary.LittleEndian.Uint32(strip[i*4:]))
		if got != want {
			t.Fatalf("pixel %d: got %d, want %d", i, got, want)
		}
	}
}

func TestWriteInt32GeoTIFFTagValues(t *testing.T) {
	labels := NewInt32Grid(3, 5, -9999)
	path := filepath.Join(t.TempDir(), "labels.tif")
	if err := WriteInt32GeoTIFF(path, labels, Geometry{
		Extent: Extent{0, 0, 50, 30},
		Rows:   3,
		Cols:   5,
		CRS:    "EPSG:32633",
	}, -9999); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	le := binary.LittleEndian
	ifdOffset := le.Uint32(data[4:])
	n := int(le.Uint16(data[ifdOffset:]))

	tags := map[uint16]uint32{}
	for i := 0; i < n; i++ {
		entry := data[int(ifdOffset)+2+i*12:]
		tag := le.Uint16(entry)
		fieldType := le.Uint16(entry[2:])
		if fieldType == typeShort {
			tags[tag] = uint32(le.Uint16(entry[8:]))
		} else {
			tags[tag] = le.Uint32(entry[8:])
		}
	}

	if tags[tagImageWidth] != 5 {
		t.Errorf("ImageWidth = %d, want 5", tags[tagImageWidth])
	}
	if tags[tagImageLength] != 3 {
		t.Errorf("ImageLength = %d, want 3", tags[tagImageLength])
	}
	if tags[tagBitsPerSample] != 32 {
		t.Errorf("BitsPerSample = %d, want 32", tags[tagBitsPerSample])
	}
	if tags[tagSampleFormat] != 2 {
		t.Errorf("SampleFormat = %d, want 2 (signed int)", tags[tagSampleFormat])
	}
	if tags[tagStripByteCounts] != 4*3*5 {
		t.Errorf("StripByteCounts = %d, want 60", tags[tagStripByteCounts])
	}
	if _, ok := tags[tagGeoKeyDirectory]; !ok {
		t.Error("expected GeoKeyDirectory tag for EPSG CRS")
	}
	if _, ok := tags[tagGDALNoData]; !ok {
		t.Error("expected GDAL_NODATA tag")
	}
}

func TestWriteInt32GeoTIFFGeoreference(t *testing.T) {
	geo := Geometry{
		Extent: Extent{100, 200, 150, 230},
		Rows:   3,
		Cols:   5,
		CRS:    "EPSG:32633",
	}
	labels := NewInt32Grid(3, 5, -9999)
	path := filepath.Join(t.TempDir(), "labels.tif")
	if err := WriteInt32GeoTIFF(path, labels, geo, -9999); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	le := binary.LittleEndian
	ifdOffset := le.Uint32(data[4:])
	n := int(le.Uint16(data[ifdOffset:]))

	readDoubles := func(offset uint32, count int) []float64 {
		out := make([]float64, count)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(data[int(offset)+i*8:]))
		}
		return out
	}

	var scale, tiepoint []float64
	for i := 0; i < n; i++ {
		entry := data[int(ifdOffset)+2+i*12:]
		switch le.Uint16(entry) {
		case tagModelPixelScale:
			scale = readDoubles(le.Uint32(entry[8:]), 3)
		case tagModelTiepoint:
			tiepoint = readDoubles(le.Uint32(entry[8:]), 6)
		}
	}

	gt := geo.GeoTransform()
	if len(scale) != 3 || scale[0] != gt[1] || scale[1] != -gt[5] {
		t.Errorf("pixel scale %v, want [%g %g 0]", scale, gt[1], -gt[5])
	}
	if len(tiepoint) != 6 || tiepoint[3] != gt[0] || tiepoint[4] != gt[3] {
		t.Errorf("tiepoint %v, want origin (%g, %g)", tiepoint, gt[0], gt[3])
	}
}

func TestWriteInt32GeoTIFFRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.tif")
	if err := WriteInt32GeoTIFF(path, nil, testGeometry(), -9999); err == nil {
		t.Error("expected error for nil grid")
	}
	labels := NewInt32Grid(2, 2, 0)
	if err := WriteInt32GeoTIFF(path, labels, testGeometry(), -9999); err == nil {
		t.Error("expected error for shape/geometry mismatch")
	}
}

func TestParseEPSG(t *testing.T) {
	tests := []struct {
		in   string
		code int
		ok   bool
	}{
		{"EPSG:32633", 32633, true},
		{"epsg:4326", 4326, true},
		{" EPSG:3857 ", 3857, true},
		{"", 0, false},
		{"WGS84", 0, false},
		{"EPSG:abc", 0, false},
	}
	for _, tt := range tests {
		code, ok := parseEPSG(tt.in)
		if code != tt.code || ok != tt.ok {
			t.Errorf("parseEPSG(%q) = (%d, %v), want (%d, %v)", tt.in, code, ok, tt.code, tt.ok)
		}
	}
}
