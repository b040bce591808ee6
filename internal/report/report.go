// Package report renders human-readable summaries of a classification
// run: an interactive HTML report with cluster charts and a PNG preview
// of the labeled raster.
package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/terralytics/landcover/internal/classify"
)

// WriteHTML renders the run summary page: a bar chart of cluster pixel
// counts and a pie chart of area shares, both colored and labeled from
// the legend.
func WriteHTML(path string, stats classify.ClusterStats, legend classify.Legend, method string) error {
	page := components.NewPage()
	page.PageTitle = "Land Cover Classification Report"
	page.AddCharts(pixelCountBar(stats, legend, method), areaSharePie(stats, legend))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func pixelCountBar(stats classify.ClusterStats, legend classify.Legend, method string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Cluster Pixel Counts",
			Subtitle: fmt.Sprintf("interpretation: %s", method),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pixels"}),
	)

	var names []string
	var data []opts.BarData
	for _, id := range stats.IDs() {
		names = append(names, clusterName(id, legend))
		data = append(data, opts.BarData{
			Value:     stats[id].PixelCount,
			ItemStyle: &opts.ItemStyle{Color: clusterColor(id, legend)},
		})
	}
	bar.SetXAxis(names).AddSeries("pixels", data)
	return bar
}

func areaSharePie(stats classify.ClusterStats, legend classify.Legend) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Area Share"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)

	var data []opts.PieData
	for _, id := range stats.IDs() {
		data = append(data, opts.PieData{
			Name:      clusterName(id, legend),
			Value:     stats[id].PercentArea,
			ItemStyle: &opts.ItemStyle{Color: clusterColor(id, legend)},
		})
	}
	pie.AddSeries("area", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}"}))
	return pie
}

func clusterName(id int, legend classify.Legend) string {
	if e, ok := legend[id]; ok && e.Label != "" {
		return fmt.Sprintf("%d: %s", id, e.Label)
	}
	return fmt.Sprintf("Cluster %d", id)
}

func clusterColor(id int, legend classify.Legend) string {
	if e, ok := legend[id]; ok && e.Color != "" {
		return e.Color
	}
	return classify.DefaultColor
}
