package diagnostics

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/closedform/internal/fsutil"
	"github.com/banshee-data/closedform/internal/monitoring"
	"github.com/banshee-data/closedform/internal/photometric"
	"github.com/banshee-data/closedform/internal/security"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// ConvergencePlot draws the mean best inlier count after every RANSAC
// iteration.
func ConvergencePlot(res *photometric.Result) (*plot.Plot, error) {
	if len(res.History) == 0 {
		return nil, fmt.Errorf("result has no iteration history")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("RANSAC convergence (%d views, %d-view subsets)", res.Views, res.SubsetSize)
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Mean best inlier count"

	pts := make(plotter.XYs, len(res.History))
	for i, v := range res.History {
		pts[i] = plotter.XY{X: float64(i + 1), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("convergence line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line, plotter.NewGrid())
	p.Y.Max = float64(res.Views)
	return p, nil
}

// InlierHistogram draws the distribution of winning inlier counts.
func InlierHistogram(res *photometric.Result) (*plot.Plot, error) {
	if len(res.InlierCounts) == 0 {
		return nil, fmt.Errorf("result has no inlier counts")
	}
	values := make(plotter.Values, len(res.InlierCounts))
	for i, c := range res.InlierCounts {
		values[i] = float64(c)
	}
	return histogram(values, res.Views+1, "Inlier views per point", "Inlier views")
}

// DeviationHistogram draws the distribution of per-point normal deviations.
func DeviationHistogram(deviationDeg []float64) (*plot.Plot, error) {
	if len(deviationDeg) == 0 {
		return nil, fmt.Errorf("no deviations to plot")
	}
	return histogram(plotter.Values(deviationDeg), 40, "Normal deviation", "Degrees")
}

func histogram(values plotter.Values, bins int, title, xLabel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Points"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return nil, fmt.Errorf("%s histogram: %w", title, err)
	}
	p.Add(h)
	return p, nil
}

// WritePNG renders p as a PNG at path on fsys.
func WritePNG(fsys fsutil.FileSystem, path string, p *plot.Plot) error {
	if err := security.ValidateExportPath(path); err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WritePlots writes the convergence and inlier plots, and the deviation plot
// when deviations are given, into dir. File names start with prefix. It
// returns the paths written.
func WritePlots(fsys fsutil.FileSystem, dir, prefix string, res *photometric.Result, deviationDeg []float64) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = "solve"
	}
	prefix = security.SanitizeFilename(prefix)

	type job struct {
		name string
		make func() (*plot.Plot, error)
	}
	jobs := []job{
		{"convergence", func() (*plot.Plot, error) { return ConvergencePlot(res) }},
		{"inliers", func() (*plot.Plot, error) { return InlierHistogram(res) }},
	}
	if len(deviationDeg) > 0 {
		jobs = append(jobs, job{"deviation", func() (*plot.Plot, error) { return DeviationHistogram(deviationDeg) }})
	}

	var written []string
	for _, j := range jobs {
		p, err := j.make()
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", prefix, j.name))
		if err := WritePNG(fsys, path, p); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	monitoring.Logf("Wrote %d plots to %s", len(written), dir)
	return written, nil
}
