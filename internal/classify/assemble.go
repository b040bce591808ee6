package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/terralytics/landcover/internal/raster"
)

// LegendEntry is one cluster's display mapping.
type LegendEntry struct {
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	Confidence float64 `json:"confidence"`
}

// Legend maps cluster id to its display label, color and confidence.
type Legend map[int]LegendEntry

// MarshalJSON keys the legend by decimal cluster id, the schema the
// styling layer reads.
func (l Legend) MarshalJSON() ([]byte, error) {
	out := make(map[string]LegendEntry, len(l))
	for id, e := range l {
		out[strconv.Itoa(id)] = e
	}
	return json.Marshal(out)
}

// MarshalJSON keys interpretations as "cluster_<id>", matching the
// remote-interpreter wire contract and the report schema.
func (in Interpretation) MarshalJSON() ([]byte, error) {
	out := make(map[string]ClusterInterpretation, len(in))
	for id, ci := range in {
		out[fmt.Sprintf("cluster_%d", id)] = ci
	}
	return json.Marshal(out)
}

// Report is the interpretation report artifact.
type Report struct {
	InterpretationMethod string         `json:"interpretation_method"`
	Clusters             Interpretation `json:"clusters"`
	Timestamp            string         `json:"timestamp"`
}

// RawClusterSummary is the clusters_raw.json artifact.
type RawClusterSummary struct {
	NumClusters  int         `json:"num_clusters"`
	ClusterSizes map[int]int `json:"cluster_sizes"`
	TotalPixels  int         `json:"total_pixels"`
}

// MarshalJSON keys cluster sizes by decimal id.
func (s RawClusterSummary) MarshalJSON() ([]byte, error) {
	sizes := make(map[string]int, len(s.ClusterSizes))
	for id, n := range s.ClusterSizes {
		sizes[strconv.Itoa(id)] = n
	}
	return json.Marshal(struct {
		NumClusters  int            `json:"num_clusters"`
		ClusterSizes map[string]int `json:"cluster_sizes"`
		TotalPixels  int            `json:"total_pixels"`
	}{s.NumClusters, sizes, s.TotalPixels})
}

// BuildLegend assembles the color legend for every cluster id present
// in the final label grid. Interpreted clusters take their label's
// color from the shared lookup; uninterpreted ids fall back to a
// numeric label in neutral gray.
func BuildLegend(labels *raster.Int32Grid, interp Interpretation) Legend {
	present := map[int]bool{}
	for _, v := range labels.Data {
		if v != NoDataValue {
			present[int(v)] = true
		}
	}

	legend := make(Legend, len(present))
	for id := range present {
		if ci, ok := interp[id]; ok {
			legend[id] = LegendEntry{
				Label:      ci.Label,
				Color:      LandCoverClass(ci.Label).Color(),
				Confidence: ci.Confidence,
			}
			continue
		}
		legend[id] = LegendEntry{
			Label:      fmt.Sprintf("Cluster %d", id),
			Color:      DefaultColor,
			Confidence: 0.5,
		}
	}
	return legend
}

// BuildReport captures the interpretation method and mapping with the
// assembly timestamp.
func BuildReport(result InterpretationResult, now time.Time) Report {
	return Report{
		InterpretationMethod: result.Method,
		Clusters:             result.Clusters,
		Timestamp:            now.UTC().Format(time.RFC3339),
	}
}

// writeJSON persists v as indented JSON, matching the artifact format
// the display layer parses.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
