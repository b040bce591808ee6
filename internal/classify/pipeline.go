package classify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/raster"
)

// Artifact filenames written into the run's output directory.
const (
	FileClustersRaw     = "clusters_raw.tif"
	FileClustersRawJSON = "clusters_raw.json"
	FileClustersPost    = "clusters_post.tif"
	FileClusterStats    = "clusters_stats.json"
	FileInterpreted     = "interpreted_layer.tif"
	FileReport          = "interpretation_report.json"
	FileLegend          = "legend.json"
)

// ArtifactPaths records where each run artifact landed. Optional
// artifacts (the postprocessed raster when postprocessing is off) are
// empty strings.
type ArtifactPaths struct {
	ClustersRaw     string
	ClustersRawJSON string
	ClustersPost    string
	ClusterStats    string
	Interpreted     string
	Report          string
	Legend          string
}

// Pipeline wires one classification run end to end: resample, derive
// features, cluster, optionally postprocess, summarize, interpret and
// persist. Zero-value optional fields get working defaults in Run.
type Pipeline struct {
	Source raster.Source
	// Bands maps band codes (B2..B11) to 1-based band indexes in Source.
	Bands map[string]int
	ROI   ROI

	Cluster     ClusterParams
	Postprocess *PostprocessParams // nil disables postprocessing
	Interpreter Interpreter        // nil means rule engine
	Warper      Warper             // nil means nearest-neighbor

	OutputDir string
	Log       monitoring.LogFunc
	Now       func() time.Time // nil means time.Now
}

// Result aggregates everything a run produced. FinalLabels aliases
// RawLabels when postprocessing is disabled.
type Result struct {
	RawLabels   *raster.Int32Grid
	FinalLabels *raster.Int32Grid
	Geometry    raster.Geometry

	NumClusters  int
	TotalPixels  int
	ClusterSizes map[int]int

	Stats          ClusterStats
	Interpretation InterpretationResult
	Legend         Legend
	Paths          ArtifactPaths
}

// Run executes the full pipeline. Fatal conditions return a StageError
// naming the failing stage; recoverable ones (per-band warp failures,
// interpreted-raster write failures, remote interpreter failures) are
// logged and the run continues with degraded output.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logf := p.Log.OrDefault()
	now := p.Now
	if now == nil {
		now = time.Now
	}

	logf("=== Starting K-means Classification Pipeline ===", monitoring.SeverityInfo)

	if err := ctx.Err(); err != nil {
		return nil, stageErr("resample", err, "")
	}
	logf("Step 1: Resampling bands...", monitoring.SeverityInfo)
	bands, err := ResampleBands(p.Source, p.Bands, p.ROI, p.Warper, logf)
	if err != nil {
		return nil, err
	}

	logf("Step 2: Computing spectral indices...", monitoring.SeverityInfo)
	features := ComputeFeatures(bands, logf)

	if err := ctx.Err(); err != nil {
		return nil, stageErr("cluster", err, "")
	}
	logf(fmt.Sprintf("Step 3: Running K-means clustering (k=%d)...", p.Cluster.NumClusters), monitoring.SeverityInfo)
	matrix, err := BuildFeatureMatrix(features, logf)
	if err != nil {
		return nil, stageErr("cluster", fmt.Errorf("%w: %v", ErrClusteringFailed, err), "")
	}
	assign, err := KMeans(matrix, p.Cluster)
	if err != nil {
		return nil, stageErr("cluster", err, "")
	}
	rawLabels := ReconstructLabelGrid(assign, matrix, logf)

	res := &Result{
		RawLabels:    rawLabels,
		FinalLabels:  rawLabels,
		Geometry:     bands.Geometry,
		NumClusters:  p.Cluster.NumClusters,
		TotalPixels:  len(assign),
		ClusterSizes: countAssignments(assign, p.Cluster.NumClusters),
	}

	if p.Postprocess != nil {
		logf("Step 4: Postprocessing labels...", monitoring.SeverityInfo)
		res.FinalLabels = Postprocess(rawLabels, *p.Postprocess, logf)
	}

	logf("Step 5: Computing cluster statistics...", monitoring.SeverityInfo)
	res.Stats = ComputeClusterStats(res.FinalLabels, features, p.Cluster.NumClusters, logf)

	if err := ctx.Err(); err != nil {
		return nil, stageErr("interpret", err, "")
	}
	logf("Step 6: Interpreting clusters...", monitoring.SeverityInfo)
	interp := p.Interpreter
	if interp == nil {
		interp = RuleEngine{}
	}
	res.Interpretation, err = interp.Interpret(ctx, res.Stats)
	if err != nil {
		return nil, stageErr("interpret", err, "")
	}

	logf("Step 7: Writing results...", monitoring.SeverityInfo)
	if err := p.writeArtifacts(res, now(), logf); err != nil {
		return nil, err
	}

	logf("=== Pipeline complete ===", monitoring.SeverityInfo)
	return res, nil
}

// writeArtifacts persists the rasters and JSON artifacts into OutputDir
// and fills res.Paths. The raw cluster raster is the run's primary
// output: a failed write there is fatal. A failed interpreted-layer
// write degrades to the raw raster path with a warning.
func (p *Pipeline) writeArtifacts(res *Result, now time.Time, logf monitoring.LogFunc) error {
	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return stageErr("assemble", fmt.Errorf("create output dir: %w", err), "")
	}
	join := func(name string) string { return filepath.Join(p.OutputDir, name) }

	rawPath := join(FileClustersRaw)
	if err := raster.WriteInt32GeoTIFF(rawPath, res.RawLabels, res.Geometry, NoDataValue); err != nil {
		return stageErr("assemble", fmt.Errorf("%w: %v", ErrRasterWrite, err), "")
	}
	res.Paths.ClustersRaw = rawPath

	summary := RawClusterSummary{
		NumClusters:  res.NumClusters,
		ClusterSizes: res.ClusterSizes,
		TotalPixels:  res.TotalPixels,
	}
	res.Paths.ClustersRawJSON = join(FileClustersRawJSON)
	if err := writeJSON(res.Paths.ClustersRawJSON, summary); err != nil {
		return stageErr("assemble", err, "")
	}

	if res.FinalLabels != res.RawLabels {
		postPath := join(FileClustersPost)
		if err := raster.WriteInt32GeoTIFF(postPath, res.FinalLabels, res.Geometry, NoDataValue); err != nil {
			return stageErr("assemble", fmt.Errorf("%w: %v", ErrRasterWrite, err), "")
		}
		res.Paths.ClustersPost = postPath
	}

	res.Paths.ClusterStats = join(FileClusterStats)
	if err := writeJSON(res.Paths.ClusterStats, res.Stats); err != nil {
		return stageErr("assemble", err, "")
	}

	// The interpreted layer carries the same labels as the final grid;
	// the semantic mapping lives in the legend. When this write fails the
	// raw raster still exists, so the run degrades instead of dying.
	interpPath := join(FileInterpreted)
	if err := raster.WriteInt32GeoTIFF(interpPath, res.FinalLabels, res.Geometry, NoDataValue); err != nil {
		logf(fmt.Sprintf("Interpreted layer write failed: %v, keeping raw raster", err), monitoring.SeverityWarning)
		interpPath = rawPath
	}
	res.Paths.Interpreted = interpPath

	res.Paths.Report = join(FileReport)
	if err := writeJSON(res.Paths.Report, BuildReport(res.Interpretation, now)); err != nil {
		return stageErr("assemble", err, "")
	}

	res.Legend = BuildLegend(res.FinalLabels, res.Interpretation.Clusters)
	res.Paths.Legend = join(FileLegend)
	if err := writeJSON(res.Paths.Legend, res.Legend); err != nil {
		return stageErr("assemble", err, "")
	}
	return nil
}

// countAssignments tallies cluster membership over the valid pixels.
// The sums always add up to the assignment count.
func countAssignments(assign []int, numClusters int) map[int]int {
	sizes := make(map[int]int, numClusters)
	for id := 0; id < numClusters; id++ {
		sizes[id] = 0
	}
	for _, a := range assign {
		sizes[a]++
	}
	return sizes
}
