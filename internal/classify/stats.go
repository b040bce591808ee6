package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/raster"
)

// ClusterStat summarizes one cluster's pixels: size, area share and
// per-feature means, plus spread for the derived indices.
type ClusterStat struct {
	PixelCount  int
	PercentArea float64
	Means       map[string]float64 // per feature
	Stds        map[string]float64 // indices only
}

// ClusterStats maps cluster id to its summary. Clusters that ended up
// with zero pixels (possible after postprocessing) are absent: callers
// must treat ids as sparse.
type ClusterStats map[int]ClusterStat

// IDs returns the cluster ids present, sorted ascending.
func (s ClusterStats) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ComputeClusterStats aggregates per-cluster descriptive statistics from
// a (possibly postprocessed) label grid and the feature set. Features
// whose grid shape does not match the label grid are skipped; they came
// from a resampling fallback. Standard deviation is reported for the
// derived indices only, using the population definition.
func ComputeClusterStats(labels *raster.Int32Grid, fs *FeatureSet, numClusters int, logf monitoring.LogFunc) ClusterStats {
	logf = logf.OrDefault()

	totalLabeled := 0
	for _, v := range labels.Data {
		if v != NoDataValue {
			totalLabeled++
		}
	}

	indexFeature := map[string]bool{}
	for _, name := range IndexOrder {
		indexFeature[name] = true
	}

	stats := make(ClusterStats)
	vals := make([]float64, 0, totalLabeled)

	for id := 0; id < numClusters; id++ {
		count := 0
		for _, v := range labels.Data {
			if int(v) == id {
				count++
			}
		}
		if count == 0 {
			continue
		}

		cs := ClusterStat{
			PixelCount: count,
			Means:      make(map[string]float64),
			Stds:       make(map[string]float64),
		}
		if totalLabeled > 0 {
			cs.PercentArea = float64(count) / float64(totalLabeled) * 100
		}

		for _, name := range append(append([]string{}, BandOrder...), IndexOrder...) {
			g, ok := fs.Features[name]
			if !ok || g.Rows != labels.Rows || g.Cols != labels.Cols {
				continue
			}
			vals = vals[:0]
			for i, v := range labels.Data {
				if int(v) != id {
					continue
				}
				if f := g.Data[i]; !math.IsNaN(f) {
					vals = append(vals, f)
				}
			}
			if len(vals) == 0 {
				continue
			}
			mean := stat.Mean(vals, nil)
			cs.Means[name] = mean
			if indexFeature[name] {
				cs.Stds[name] = math.Sqrt(stat.MomentAbout(2, vals, mean, nil))
			}
		}
		stats[id] = cs
	}

	logf(fmt.Sprintf("Computed statistics for %d clusters (%d labeled pixels)",
		len(stats), totalLabeled), monitoring.SeverityInfo)
	return stats
}

// MarshalJSON serializes the stats in the report schema consumed by the
// interpreter and the display layer: {"cluster_<id>": {"pixel_count": n,
// "percent_area": p, "mean_<feature>": m, "std_<index>": s, ...}}.
func (s ClusterStats) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]float64, len(s))
	for id, cs := range s {
		rec := map[string]float64{
			"pixel_count":  float64(cs.PixelCount),
			"percent_area": cs.PercentArea,
		}
		for name, v := range cs.Means {
			rec["mean_"+name] = v
		}
		for name, v := range cs.Stds {
			rec["std_"+name] = v
		}
		out[fmt.Sprintf("cluster_%d", id)] = rec
	}
	return json.Marshal(out)
}

// Mean returns the named feature mean for a cluster, or 0 when absent,
// mirroring the reference rule engine's defaulting.
func (cs ClusterStat) Mean(name string) float64 {
	return cs.Means[name]
}
