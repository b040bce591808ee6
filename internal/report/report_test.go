package report

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/terralytics/landcover/internal/classify"
	"github.com/terralytics/landcover/internal/raster"
)

func sampleStats() classify.ClusterStats {
	return classify.ClusterStats{
		0: {PixelCount: 60, PercentArea: 60, Means: map[string]float64{"NDVI": 0.7}},
		1: {PixelCount: 40, PercentArea: 40, Means: map[string]float64{"MNDWI": 0.5}},
	}
}

func sampleLegend() classify.Legend {
	return classify.Legend{
		0: {Label: "Forest", Color: "#00CC00", Confidence: 0.75},
		1: {Label: "Water", Color: "#0066CC", Confidence: 0.8},
	}
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := WriteHTML(path, sampleStats(), sampleLegend(), "Rule-based"); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(data)
	for _, want := range []string{"Cluster Pixel Counts", "Area Share", "Forest", "Water", "Rule-based"} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteHTML_EmptyLegendFallsBackToIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := WriteHTML(path, sampleStats(), classify.Legend{}, "Rule-based"); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "Cluster 0") {
		t.Error("report missing numeric fallback name")
	}
}

func TestWritePreviewPNG(t *testing.T) {
	labels := raster.NewInt32Grid(8, 8, classify.NoDataValue)
	for r := 0; r < 8; r++ {
		for c := 0; c < 6; c++ {
			if c < 3 {
				labels.Set(r, c, 0)
			} else {
				labels.Set(r, c, 1)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "preview.png")
	if err := WritePreviewPNG(path, labels, sampleLegend()); err != nil {
		t.Fatalf("WritePreviewPNG: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("preview missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("preview is empty")
	}
}

func TestWritePreviewPNG_AllNoData(t *testing.T) {
	labels := raster.NewInt32Grid(4, 4, classify.NoDataValue)
	if err := WritePreviewPNG(filepath.Join(t.TempDir(), "p.png"), labels, nil); err == nil {
		t.Error("expected error for empty grid")
	}
}

func TestParseHexColor(t *testing.T) {
	if got := parseHexColor("#0066CC"); got != (color.RGBA{R: 0, G: 0x66, B: 0xCC, A: 255}) {
		t.Errorf("parseHexColor = %v", got)
	}
	if got := parseHexColor("teal"); got != (color.Gray{Y: 128}) {
		t.Errorf("malformed color should fall back to gray, got %v", got)
	}
}
