package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Minimal single-band int32 GeoTIFF encoder. The pipeline's output
// artifacts only ever need one uncompressed signed-integer band with a
// pixel-scale/tiepoint georeference and a GDAL-style no-data marker, so
// the writer emits exactly that: little-endian classic TIFF, one strip,
// no compression. Anything fancier belongs to the host GIS.

// TIFF tag IDs used by the encoder.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagSampleFormat     = 339
	tagModelPixelScale  = 33550
	tagModelTiepoint    = 33922
	tagGeoKeyDirectory  = 34735
	tagGDALNoData       = 42113
)

// TIFF field types.
const (
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

type ifdEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	// value holds either the inline value or, for external data, the
	// payload to be placed after the IFD (offset patched at layout time).
	inline   uint32
	external []byte
}

// WriteInt32GeoTIFF writes labels as a single-band int32 GeoTIFF with the
// given georeferencing and no-data value. The file is written atomically
// enough for our purposes: any error aborts and removes the partial file.
func WriteInt32GeoTIFF(path string, labels *Int32Grid, geo Geometry, noData int32) error {
	if labels == nil || labels.Rows == 0 || labels.Cols == 0 {
		return fmt.Errorf("geotiff: empty label grid")
	}
	if labels.Rows != geo.Rows || labels.Cols != geo.Cols {
		return fmt.Errorf("geotiff: grid shape %dx%d does not match geometry %dx%d",
			labels.Rows, labels.Cols, geo.Rows, geo.Cols)
	}

	stripBytes := uint32(4 * labels.Rows * labels.Cols)

	gt := geo.GeoTransform()
	pixelScale := encodeDoubles([]float64{gt[1], -gt[5], 0})
	// Tiepoint: raster (0,0,0) maps to the transform origin, the
	// top-left corner of the extent.
	tiepoint := encodeDoubles([]float64{0, 0, 0, gt[0], gt[3], 0})
	noDataASCII := append([]byte(strconv.Itoa(int(noData))), 0)

	entries := []ifdEntry{
		{tag: tagImageWidth, fieldType: typeLong, count: 1, inline: uint32(labels.Cols)},
		{tag: tagImageLength, fieldType: typeLong, count: 1, inline: uint32(labels.Rows)},
		{tag: tagBitsPerSample, fieldType: typeShort, count: 1, inline: 32},
		{tag: tagCompression, fieldType: typeShort, count: 1, inline: 1},
		{tag: tagPhotometric, fieldType: typeShort, count: 1, inline: 1},
		{tag: tagStripOffsets, fieldType: typeLong, count: 1}, // patched below
		{tag: tagSamplesPerPixel, fieldType: typeShort, count: 1, inline: 1},
		{tag: tagRowsPerStrip, fieldType: typeLong, count: 1, inline: uint32(labels.Rows)},
		{tag: tagStripByteCounts, fieldType: typeLong, count: 1, inline: stripBytes},
		{tag: tagSampleFormat, fieldType: typeShort, count: 1, inline: 2}, // signed integer
		{tag: tagModelPixelScale, fieldType: typeDouble, count: 3, external: pixelScale},
		{tag: tagModelTiepoint, fieldType: typeDouble, count: 6, external: tiepoint},
	}
	if keys := geoKeyDirectory(geo.CRS); keys != nil {
		entries = append(entries, ifdEntry{
			tag: tagGeoKeyDirectory, fieldType: typeShort,
			count: uint32(len(keys) / 2), external: keys,
		})
	}
	entries = append(entries, ifdEntry{
		tag: tagGDALNoData, fieldType: typeASCII,
		count: uint32(len(noDataASCII)), external: noDataASCII,
	})

	// Layout: 8-byte header, IFD, external tag data, pixel strip.
	ifdSize := 2 + len(entries)*12 + 4
	dataOffset := uint32(8 + ifdSize)
	for i := range entries {
		if entries[i].external == nil {
			continue
		}
		entries[i].inline = dataOffset
		dataOffset += uint32(len(entries[i].external))
		if dataOffset%2 == 1 {
			dataOffset++ // keep word alignment
		}
	}
	stripOffset := dataOffset
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].inline = stripOffset
		}
	}

	var buf bytes.Buffer
	le := binary.LittleEndian

	// Header: little-endian magic, first IFD at offset 8.
	buf.Write([]byte{'I', 'I', 42, 0})
	binary.Write(&buf, le, uint32(8))

	binary.Write(&buf, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, le, e.tag)
		binary.Write(&buf, le, e.fieldType)
		binary.Write(&buf, le, e.count)
		if e.fieldType == typeShort && e.external == nil {
			// Short values sit in the low half of the value field.
			binary.Write(&buf, le, uint16(e.inline))
			binary.Write(&buf, le, uint16(0))
		} else {
			binary.Write(&buf, le, e.inline)
		}
	}
	binary.Write(&buf, le, uint32(0)) // no next IFD

	for _, e := range entries {
		if e.external == nil {
			continue
		}
		buf.Write(e.external)
		if buf.Len()%2 == 1 {
			buf.WriteByte(0)
		}
	}

	for _, v := range labels.Data {
		binary.Write(&buf, le, v)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("geotiff: write %s: %w", path, err)
	}
	return nil
}

// geoKeyDirectory builds a minimal GeoTIFF key directory for an
// "EPSG:nnnnn" CRS string. Returns nil when the CRS is absent or not an
// EPSG code, in which case the file carries only the pixel-scale
// georeference.
func geoKeyDirectory(crs string) []byte {
	code, ok := parseEPSG(crs)
	if !ok {
		return nil
	}
	// Geographic codes live in 4000-4999; everything else we emit as a
	// projected CS.
	modelType := uint16(1) // projected
	csKey := uint16(3072)  // ProjectedCSTypeGeoKey
	if code >= 4000 && code < 5000 {
		modelType = 2    // geographic
		csKey = 2048     // GeographicTypeGeoKey
	}
	keys := []uint16{
		1, 1, 0, 3, // version 1.1, 3 keys follow
		1024, 0, 1, modelType, // GTModelTypeGeoKey
		1025, 0, 1, 1, // GTRasterTypeGeoKey = PixelIsArea
		csKey, 0, 1, uint16(code),
	}
	out := make([]byte, len(keys)*2)
	for i, k := range keys {
		binary.LittleEndian.PutUint16(out[i*2:], k)
	}
	return out
}

func parseEPSG(crs string) (int, bool) {
	s := strings.TrimSpace(strings.ToUpper(crs))
	if !strings.HasPrefix(s, "EPSG:") {
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimPrefix(s, "EPSG:"))
	if err != nil || code <= 0 || code > 65535 {
		return 0, false
	}
	return code, true
}

func encodeDoubles(vals []float64) []byte {
	out := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}
