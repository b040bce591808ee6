package classify

import (
	"fmt"
	"sort"

	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/raster"
)

// TargetResolution is the common pixel size all bands are resampled to,
// in map units. Sentinel-2 visible/NIR bands are natively 10 m; SWIR is
// upsampled to match.
const TargetResolution = 10.0

// BandSet holds the resampled spectral bands on one shared grid.
// Invariant: every grid in Bands has the shape recorded in Geometry.
type BandSet struct {
	Bands    map[string]*raster.Grid
	Geometry raster.Geometry
}

// Warper resamples one band of a source onto a target grid. The default
// implementation delegates to the source's nearest-neighbor block reader;
// tests substitute failing warpers to exercise the fallback path.
type Warper interface {
	Warp(src raster.Source, band int, target raster.Geometry) (*raster.Grid, error)
}

// NearestWarper resamples with nearest-neighbor lookup via ReadBlock.
type NearestWarper struct{}

// Warp reads the band over the target extent at the target grid size.
func (NearestWarper) Warp(src raster.Source, band int, target raster.Geometry) (*raster.Grid, error) {
	return src.ReadBlock(band, target.Extent, target.Cols, target.Rows)
}

// ResampleBands normalises all mapped bands onto one grid covering the
// ROI's bounding extent at TargetResolution. A per-band warp failure
// falls back to direct extraction at the source's native resolution with
// a warning; the possible shape mismatch is tolerated here and caught at
// feature-stacking time. A degenerate ROI aborts with ErrInvalidROI.
func ResampleBands(src raster.Source, mapping map[string]int, roi ROI, w Warper, logf monitoring.LogFunc) (*BandSet, error) {
	logf = logf.OrDefault()
	if w == nil {
		w = NearestWarper{}
	}

	ext, err := roi.TargetExtent(src)
	if err != nil {
		return nil, stageErr("resample", err, "")
	}

	cols := int(ext.Width() / TargetResolution)
	rows := int(ext.Height() / TargetResolution)
	if cols <= 0 || rows <= 0 {
		return nil, stageErr("resample",
			fmt.Errorf("%w: extent %gx%g smaller than one %g-unit pixel",
				ErrInvalidROI, ext.Width(), ext.Height(), TargetResolution), "")
	}
	target := raster.Geometry{Extent: ext, Rows: rows, Cols: cols, CRS: src.CRS()}
	logf(fmt.Sprintf("Target resolution: %gm, Size: %dx%d", TargetResolution, cols, rows), monitoring.SeverityInfo)

	out := &BandSet{
		Bands:    make(map[string]*raster.Grid, len(mapping)),
		Geometry: target,
	}

	// Stable iteration keeps per-band log lines deterministic.
	codes := make([]string, 0, len(mapping))
	for code := range mapping {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		bandIdx := mapping[code]
		logf(fmt.Sprintf("Resampling %s (band %d)...", code, bandIdx), monitoring.SeverityDebug)

		grid, err := w.Warp(src, bandIdx, target)
		if err == nil {
			out.Bands[code] = grid
			continue
		}

		logf(fmt.Sprintf("Warp failed for %s: %v", code, err), monitoring.SeverityWarning)
		logf("Falling back to direct band extraction...", monitoring.SeverityWarning)

		// Native-resolution extraction over the same extent. The shape
		// may differ from the target grid; downstream stacking drops
		// whatever cannot be aligned.
		nCols := int(ext.Width() / src.Resolution())
		nRows := int(ext.Height() / src.Resolution())
		if nCols <= 0 || nRows <= 0 {
			logf(fmt.Sprintf("Skipping %s: native extraction has empty shape", code), monitoring.SeverityWarning)
			continue
		}
		grid, err = src.ReadBlock(bandIdx, ext, nCols, nRows)
		if err != nil {
			logf(fmt.Sprintf("Direct extraction failed for %s: %v", code, err), monitoring.SeverityWarning)
			continue
		}
		out.Bands[code] = grid
	}

	if len(out.Bands) == 0 {
		return nil, stageErr("resample", fmt.Errorf("no bands could be resampled"), "")
	}
	return out, nil
}
