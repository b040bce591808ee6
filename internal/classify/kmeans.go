package classify

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/raster"
)

// NoDataValue is the reserved label for pixels excluded from
// classification, matching the GDAL no-data convention used by the
// output rasters.
const NoDataValue = -9999

// DefaultRestarts is the number of random k-means restarts; the
// lowest-inertia partition wins.
const DefaultRestarts = 10

// ClusterParams configures the cluster engine.
type ClusterParams struct {
	NumClusters   int
	MaxIterations int
	RandomSeed    int64
	// Restarts overrides DefaultRestarts when positive.
	Restarts int
}

// Validate rejects parameter combinations the engine cannot honor.
func (p ClusterParams) Validate() error {
	if p.NumClusters < 2 {
		return fmt.Errorf("num_clusters must be >= 2, got %d", p.NumClusters)
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", p.MaxIterations)
	}
	return nil
}

func (p ClusterParams) restarts() int {
	if p.Restarts > 0 {
		return p.Restarts
	}
	return DefaultRestarts
}

// FeatureMatrix is the flattened, standardized clustering input: one row
// per finite-valued pixel, one column per feature. ValidMask records
// which original pixel positions contributed a row.
type FeatureMatrix struct {
	Names     []string
	X         [][]float64 // len == valid pixel count
	ValidMask []bool      // len == rows*cols of the feature grids
	Rows      int         // grid rows
	Cols      int         // grid cols
}

// BuildFeatureMatrix stacks the available feature grids in the fixed
// order B2,B3,B4,B8,B11,NDVI,MNDWI,NDBI, drops rows containing any
// non-finite value, and z-score standardizes each column. Grids whose
// shape differs from the feature set's common shape are skipped: they
// are the product of a resampling fallback and cannot be aligned.
func BuildFeatureMatrix(fs *FeatureSet, logf monitoring.LogFunc) (*FeatureMatrix, error) {
	logf = logf.OrDefault()

	var names []string
	var grids []*raster.Grid
	for _, name := range append(append([]string{}, BandOrder...), IndexOrder...) {
		g, ok := fs.Features[name]
		if !ok {
			continue
		}
		if g.Rows != fs.Rows || g.Cols != fs.Cols {
			logf(fmt.Sprintf("Skipping %s: shape %dx%d does not match %dx%d",
				name, g.Rows, g.Cols, fs.Rows, fs.Cols), monitoring.SeverityWarning)
			continue
		}
		names = append(names, name)
		grids = append(grids, g)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no usable features")
	}
	logf(fmt.Sprintf("Feature matrix: %s", strings.Join(names, ", ")), monitoring.SeverityInfo)

	total := fs.Rows * fs.Cols
	m := &FeatureMatrix{
		Names:     names,
		ValidMask: make([]bool, total),
		Rows:      fs.Rows,
		Cols:      fs.Cols,
	}

	for i := 0; i < total; i++ {
		row := make([]float64, len(grids))
		finite := true
		for j, g := range grids {
			v := g.Data[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				finite = false
				break
			}
			row[j] = v
		}
		if finite {
			m.ValidMask[i] = true
			m.X = append(m.X, row)
		}
	}
	logf(fmt.Sprintf("Valid pixels: %d / %d", len(m.X), total), monitoring.SeverityInfo)

	m.standardize()
	return m, nil
}

// standardize applies per-column z-scoring in place. Constant columns
// (zero spread) are left centred at zero.
func (m *FeatureMatrix) standardize() {
	if len(m.X) == 0 {
		return
	}
	col := make([]float64, len(m.X))
	for j := range m.Names {
		for i := range m.X {
			col[i] = m.X[i][j]
		}
		mean := stat.Mean(col, nil)
		// Population spread, matching the reference scaler.
		sd := math.Sqrt(stat.MomentAbout(2, col, mean, nil))
		for i := range m.X {
			if sd > 0 {
				m.X[i][j] = (m.X[i][j] - mean) / sd
			} else {
				m.X[i][j] = 0
			}
		}
	}
}

// KMeans partitions the matrix rows into NumClusters groups. Centroids
// are seeded with distance-weighted sampling (k-means++); the search is
// restarted params.restarts() times from different seeds derived from
// RandomSeed and the lowest-inertia result is kept, so identical inputs
// and seed always reproduce the same assignment.
func KMeans(m *FeatureMatrix, params ClusterParams) ([]int, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClusteringFailed, err)
	}
	n := len(m.X)
	k := params.NumClusters
	if n < k {
		return nil, fmt.Errorf("%w: %d valid pixels for %d clusters", ErrClusteringFailed, n, k)
	}

	var best []int
	bestInertia := math.Inf(1)
	for restart := 0; restart < params.restarts(); restart++ {
		rng := rand.New(rand.NewSource(params.RandomSeed + int64(restart)))
		assign, inertia := lloyd(m.X, k, params.MaxIterations, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			best = assign
		}
	}
	return best, nil
}

// lloyd runs one seeded k-means search and returns the assignment and
// its inertia (sum of squared distances to assigned centroids).
func lloyd(x [][]float64, k, maxIter int, rng *rand.Rand) ([]int, float64) {
	dims := len(x[0])
	centroids := seedCentroids(x, k, rng)
	assign := make([]int, len(x))
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range x {
			c := nearestCentroid(row, centroids)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; empty clusters keep their position.
		for c := range centroids {
			counts[c] = 0
			for d := 0; d < dims; d++ {
				centroids[c][d] = 0
			}
		}
		for i, row := range x {
			c := assign[i]
			counts[c]++
			for d, v := range row {
				centroids[c][d] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Re-seed a dead centroid on a random row.
				copy(centroids[c], x[rng.Intn(len(x))])
				continue
			}
			for d := 0; d < dims; d++ {
				centroids[c][d] /= float64(counts[c])
			}
		}
	}

	var inertia float64
	for i, row := range x {
		inertia += squaredDistance(row, centroids[assign[i]])
	}
	return assign, inertia
}

// seedCentroids implements k-means++ seeding: the first centroid is a
// uniform random row, each further centroid is sampled with probability
// proportional to its squared distance from the nearest chosen centroid.
func seedCentroids(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := make([]float64, len(x[0]))
	copy(first, x[rng.Intn(len(x))])
	centroids = append(centroids, first)

	dist := make([]float64, len(x))
	for len(centroids) < k {
		var sum float64
		for i, row := range x {
			d := math.Inf(1)
			for _, c := range centroids {
				if sq := squaredDistance(row, c); sq < d {
					d = sq
				}
			}
			dist[i] = d
			sum += d
		}

		next := 0
		if sum > 0 {
			target := rng.Float64() * sum
			for i, d := range dist {
				target -= d
				if target <= 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(len(x))
		}
		c := make([]float64, len(x[next]))
		copy(c, x[next])
		centroids = append(centroids, c)
	}
	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestD := math.Inf(1)
	for c, cent := range centroids {
		if d := squaredDistance(row, cent); d < bestD {
			bestD = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// ReconstructLabelGrid scatters per-row cluster assignments back onto
// the pixel grid through the valid mask. Positions outside the mask get
// NoDataValue. When the assignment count and valid-pixel count disagree
// (upstream shape drift), the longer side is truncated and the shorter
// right-padded with the sentinel, with a warning; the run continues.
func ReconstructLabelGrid(assign []int, m *FeatureMatrix, logf monitoring.LogFunc) *raster.Int32Grid {
	logf = logf.OrDefault()

	validCount := 0
	for _, v := range m.ValidMask {
		if v {
			validCount++
		}
	}
	if len(assign) != validCount {
		logf(fmt.Sprintf("Label/mask count mismatch: %d labels for %d valid pixels, truncating/padding",
			len(assign), validCount), monitoring.SeverityWarning)
	}

	out := raster.NewInt32Grid(m.Rows, m.Cols, NoDataValue)
	next := 0
	for i, valid := range m.ValidMask {
		if !valid {
			continue
		}
		if next < len(assign) {
			out.Data[i] = int32(assign[next])
		}
		// Shorter assignment slices leave the sentinel in place.
		next++
	}
	return out
}
