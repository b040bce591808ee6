// Command landcover classifies multispectral raster bands into land
// cover clusters and serves past run results over HTTP.
//
// Run mode reads one .asc file per band, runs the pipeline and records
// the run:
//
//	landcover -band B2=b2.asc -band B3=b3.asc -band B4=b4.asc \
//	    -band B8=b8.asc -band B11=b11.asc -out ./results
//
// Serve mode exposes recorded runs and their artifacts:
//
//	landcover -serve -listen :8080
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/terralytics/landcover/internal/api"
	"github.com/terralytics/landcover/internal/classify"
	"github.com/terralytics/landcover/internal/config"
	"github.com/terralytics/landcover/internal/llm"
	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/raster"
	"github.com/terralytics/landcover/internal/report"
	"github.com/terralytics/landcover/internal/runstore"
	"github.com/terralytics/landcover/internal/security"
)

var (
	configPath = flag.String("config", "", "Path to run configuration JSON")
	outputDir  = flag.String("out", "", "Artifact output directory (default: ./landcover-runs/<run-id>)")
	dbPath     = flag.String("db", "landcover_runs.db", "Run database path")
	crs        = flag.String("crs", "EPSG:32633", "Coordinate reference system of the input bands")
	serveMode  = flag.Bool("serve", false, "Serve recorded runs over HTTP instead of classifying")
	listen     = flag.String("listen", ":8080", "Listen address for serve mode")
)

// bandFlags collects repeated -band CODE=path.asc arguments.
type bandFlags map[string]string

func (b bandFlags) String() string {
	var parts []string
	for code, path := range b {
		parts = append(parts, code+"="+path)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (b bandFlags) Set(v string) error {
	code, path, ok := strings.Cut(v, "=")
	if !ok || code == "" || path == "" {
		return fmt.Errorf("expected CODE=path, got %q", v)
	}
	b[code] = path
	return nil
}

func main() {
	bands := bandFlags{}
	flag.Var(bands, "band", "Band input as CODE=path.asc (repeatable, codes B2,B3,B4,B8,B11)")
	flag.Parse()

	monitoring.SetLogger(log.Printf)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serveMode {
		if err := serve(ctx); err != nil {
			log.Fatalf("serve failed: %v", err)
		}
		return
	}

	if err := runClassification(ctx, bands); err != nil {
		log.Fatalf("classification failed: %v", err)
	}
}

func serve(ctx context.Context) error {
	store, err := runstore.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:    *listen,
		Handler: api.NewServer(store, monitoring.DefaultSink).ServeMux(),
	}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Printf("serving runs on %s", *listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runClassification(ctx context.Context, bands bandFlags) error {
	if len(bands) == 0 {
		return fmt.Errorf("at least one -band CODE=path argument is required")
	}

	var cfg *config.RunConfig
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	src, mapping, sourceName, err := loadBands(bands)
	if err != nil {
		return err
	}

	store, err := runstore.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := runstore.NewRunID()
	outDir := *outputDir
	if outDir == "" {
		outDir = cfg.GetOutputDir()
	}
	if outDir == "" {
		outDir = filepath.Join("landcover-runs", runID)
	}
	if err := security.ValidateOutputDir(outDir); err != nil {
		return err
	}

	paramsJSON, _ := json.Marshal(cfg)
	if err := store.InsertRun(&runstore.Run{
		ID:         runID,
		SourceName: sourceName,
		ParamsJSON: string(paramsJSON),
		OutputDir:  outDir,
	}); err != nil {
		return err
	}
	log.Printf("run %s started", runID)

	pipeline := &classify.Pipeline{
		Source: src,
		Bands:  mapping,
		ROI:    classify.FullROI(),
		Cluster: classify.ClusterParams{
			NumClusters:   cfg.GetNumClusters(),
			MaxIterations: cfg.GetMaxIterations(),
			RandomSeed:    cfg.GetRandomSeed(),
		},
		Interpreter: buildInterpreter(cfg),
		OutputDir:   outDir,
		Log:         monitoring.DefaultSink,
	}
	if cfg.GetEnablePostprocessing() {
		pipeline.Postprocess = &classify.PostprocessParams{MinAreaPixels: cfg.GetMinAreaPixels()}
	}

	res, err := pipeline.Run(ctx)
	if err != nil {
		if ferr := store.FailRun(runID, err.Error()); ferr != nil {
			log.Printf("record failure: %v", ferr)
		}
		return err
	}

	// Summary renderings are best-effort extras next to the core
	// artifacts.
	if err := report.WriteHTML(filepath.Join(outDir, "report.html"), res.Stats, res.Legend, res.Interpretation.Method); err != nil {
		log.Printf("report rendering failed: %v", err)
	}
	if err := report.WritePreviewPNG(filepath.Join(outDir, "preview.png"), res.FinalLabels, res.Legend); err != nil {
		log.Printf("preview rendering failed: %v", err)
	}

	if err := store.CompleteRun(runID, res.NumClusters, res.TotalPixels, res.Interpretation.Method); err != nil {
		return err
	}
	log.Printf("run %s complete: %d clusters over %d pixels, artifacts in %s",
		runID, res.NumClusters, res.TotalPixels, outDir)
	return nil
}

// loadBands reads the .asc files into one in-memory source and returns
// the band-code mapping the pipeline needs.
func loadBands(bands bandFlags) (raster.Source, map[string]int, string, error) {
	codes := make([]string, 0, len(bands))
	for code := range bands {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	paths := make([]string, 0, len(codes))
	mapping := make(map[string]int, len(codes))
	for i, code := range codes {
		paths = append(paths, bands[code])
		mapping[code] = i + 1
	}

	src, err := raster.ASCSource(paths, *crs)
	if err != nil {
		return nil, nil, "", err
	}
	return src, mapping, filepath.Base(paths[0]), nil
}

func buildInterpreter(cfg *config.RunConfig) classify.Interpreter {
	if !cfg.GetEnableLLMInterpretation() {
		return classify.RuleEngine{}
	}
	client, err := llm.NewClient(cfg.GetLLMConfig())
	if err != nil {
		log.Printf("llm client setup failed: %v, using rule engine", err)
		return classify.RuleEngine{}
	}
	return classify.NewRemoteInterpreter(client, monitoring.DefaultSink)
}
