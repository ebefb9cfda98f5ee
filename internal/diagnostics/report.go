package diagnostics

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/closedform/internal/fsutil"
	"github.com/banshee-data/closedform/internal/monitoring"
	"github.com/banshee-data/closedform/internal/photometric"
	"github.com/banshee-data/closedform/internal/security"
)

// RenderReport writes an HTML page with the convergence curve, the inlier
// count distribution and, when given, the normal deviation distribution.
func RenderReport(w io.Writer, title string, res *photometric.Result, deviationDeg []float64) error {
	summary, err := Summarize(res, deviationDeg)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.AddCharts(convergenceChart(title, res, summary), inlierChart(res))
	if len(deviationDeg) > 0 {
		page.AddCharts(deviationChart(deviationDeg))
	}
	return page.Render(w)
}

// WriteReport renders the report to path on fsys.
func WriteReport(fsys fsutil.FileSystem, path, title string, res *photometric.Result, deviationDeg []float64) error {
	if err := security.ValidateExportPath(path); err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := RenderReport(f, title, res, deviationDeg); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Logf("Wrote report to %s", path)
	return nil
}

func convergenceChart(title string, res *photometric.Result, s Summary) *charts.Line {
	x := make([]int, len(res.History))
	y := make([]opts.LineData, len(res.History))
	for i, v := range res.History {
		x[i] = i + 1
		y[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("points=%d views=%d subset=%d degenerate=%d", s.Points, s.Views, res.SubsetSize, s.Degenerate),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Iteration", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Mean best inliers", Max: res.Views}),
	)
	line.SetXAxis(x).AddSeries("mean best inliers", y)
	return line
}

func inlierChart(res *photometric.Result) *charts.Bar {
	counts := make([]int, res.Views+1)
	for _, c := range res.InlierCounts {
		if c >= 0 && c <= res.Views {
			counts[c]++
		}
	}
	x := make([]int, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = i
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Inlier views per point"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Inlier views", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).AddSeries("points", y)
	return bar
}

// deviationChart buckets deviations into whole-degree bins, with everything
// from 10° up in the last bin.
func deviationChart(deviationDeg []float64) *charts.Bar {
	const maxBin = 10
	counts := make([]int, maxBin+1)
	for _, d := range deviationDeg {
		b := int(math.Floor(d))
		if b > maxBin || math.IsNaN(d) {
			b = maxBin
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = fmt.Sprintf("%d-%d°", i, i+1)
		y[i] = opts.BarData{Value: c}
	}
	x[maxBin] = fmt.Sprintf("≥%d°", maxBin)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Normal deviation"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("points", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}
