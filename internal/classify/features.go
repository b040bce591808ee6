package classify

import (
	"fmt"

	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/raster"
)

// Band codes consumed by the feature engine, in stacking order.
var BandOrder = []string{"B2", "B3", "B4", "B8", "B11"}

// Derived index names, in stacking order after the raw bands.
var IndexOrder = []string{"NDVI", "MNDWI", "NDBI"}

// divideEpsilon guards index denominators against catastrophic blowup
// near zero. An exactly-zero raw denominator yields 0, not NaN.
const divideEpsilon = 1e-10

// FeatureSet maps feature names (band codes plus derived indices) to
// equal-shaped grids. Invariant: every grid matches Rows x Cols.
type FeatureSet struct {
	Features map[string]*raster.Grid
	Rows     int
	Cols     int
}

// Shape returns (rows, cols) of the common grid.
func (fs *FeatureSet) Shape() (int, int) { return fs.Rows, fs.Cols }

// ComputeFeatures derives the normalized spectral indices from a
// resampled band set and assembles the per-pixel feature grids:
//
//	NDVI  = (B8 − B4) / (B8 + B4)
//	MNDWI = (B3 − B11) / (B3 + B11)
//	NDBI  = (B11 − B8) / (B11 + B8)
//
// Missing bands are omitted along with the indices that depend on them;
// the band mapping is user-configured and may be partial, so absence is
// never an error here. The common shape is taken from the first band
// available in BandOrder.
func ComputeFeatures(bs *BandSet, logf monitoring.LogFunc) *FeatureSet {
	logf = logf.OrDefault()

	fs := &FeatureSet{Features: make(map[string]*raster.Grid, len(BandOrder)+len(IndexOrder))}

	for _, code := range BandOrder {
		if g, ok := bs.Bands[code]; ok && g != nil {
			fs.Features[code] = g
			if fs.Rows == 0 {
				fs.Rows, fs.Cols = g.Shape()
			}
		}
	}

	b3 := fs.Features["B3"]
	b4 := fs.Features["B4"]
	b8 := fs.Features["B8"]
	b11 := fs.Features["B11"]

	if b8 != nil && b4 != nil && b8.SameShape(b4) {
		fs.Features["NDVI"] = normalizedDifference(b8, b4)
		logf("Calculated NDVI", monitoring.SeverityDebug)
	}
	if b3 != nil && b11 != nil && b3.SameShape(b11) {
		fs.Features["MNDWI"] = normalizedDifference(b3, b11)
		logf("Calculated MNDWI", monitoring.SeverityDebug)
	}
	if b11 != nil && b8 != nil && b11.SameShape(b8) {
		fs.Features["NDBI"] = normalizedDifference(b11, b8)
		logf("Calculated NDBI", monitoring.SeverityDebug)
	}

	logf(fmt.Sprintf("Feature set: %d grids, shape %dx%d", len(fs.Features), fs.Rows, fs.Cols), monitoring.SeverityDebug)
	return fs
}

// normalizedDifference computes (a − b) / (a + b) with a protected
// divide: cells where a + b is exactly zero produce 0, all others add
// divideEpsilon to the denominator. Finite, non-degenerate inputs are
// therefore bounded in [-1, 1].
func normalizedDifference(a, b *raster.Grid) *raster.Grid {
	out := raster.NewGrid(a.Rows, a.Cols)
	for i := range a.Data {
		denom := a.Data[i] + b.Data[i]
		if denom == 0 {
			continue // out already zero
		}
		out.Data[i] = (a.Data[i] - b.Data[i]) / (denom + divideEpsilon)
	}
	return out
}
