package report

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/terralytics/landcover/internal/classify"
	"github.com/terralytics/landcover/internal/raster"
)

// WritePreviewPNG renders the label grid as a heatmap colored from the
// legend, one palette slot per cluster id. No-data pixels are left
// unpainted.
func WritePreviewPNG(path string, labels *raster.Int32Grid, legend classify.Legend) error {
	ids := presentIDs(labels)
	if len(ids) == 0 {
		return fmt.Errorf("label grid has no classified pixels")
	}

	pal := legendPalette{}
	for _, id := range ids {
		pal.colors = append(pal.colors, parseHexColor(colorFor(id, legend)))
	}

	h := plotter.NewHeatMap(&labelGrid{labels: labels, rank: rankByID(ids)}, pal)
	h.Min = 0
	h.Max = float64(len(ids) - 1)
	if h.Max <= h.Min {
		h.Max = h.Min + 1
	}

	p := plot.New()
	p.Title.Text = "Classified Land Cover"
	p.HideAxes()
	p.Add(h)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

func presentIDs(labels *raster.Int32Grid) []int {
	set := map[int]bool{}
	for _, v := range labels.Data {
		if v != classify.NoDataValue {
			set[int(v)] = true
		}
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func rankByID(ids []int) map[int32]float64 {
	rank := make(map[int32]float64, len(ids))
	for i, id := range ids {
		rank[int32(id)] = float64(i)
	}
	return rank
}

func colorFor(id int, legend classify.Legend) string {
	if e, ok := legend[id]; ok && e.Color != "" {
		return e.Color
	}
	return classify.DefaultColor
}

// labelGrid adapts an Int32Grid to the heatmap's grid interface, with
// cluster ids remapped to consecutive palette ranks and no-data cells
// reported as NaN so they are skipped.
type labelGrid struct {
	labels *raster.Int32Grid
	rank   map[int32]float64
}

func (g *labelGrid) Dims() (int, int) { return g.labels.Cols, g.labels.Rows }

func (g *labelGrid) X(c int) float64 { return float64(c) }

func (g *labelGrid) Y(r int) float64 { return float64(r) }

func (g *labelGrid) Z(c, r int) float64 {
	// Heatmap rows draw bottom-up; grid row 0 is the northern edge.
	v := g.labels.At(g.labels.Rows-1-r, c)
	if v == classify.NoDataValue {
		return math.NaN()
	}
	return g.rank[v]
}

// legendPalette is a fixed color list in cluster-rank order.
type legendPalette struct {
	colors []color.Color
}

func (p legendPalette) Colors() []color.Color { return p.colors }

// parseHexColor decodes "#RRGGBB"; malformed values fall back to gray.
func parseHexColor(s string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.Gray{Y: 128}
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
