// Package diagnostics turns closed-form solve results into summary
// statistics, PNG plots and an HTML report.
package diagnostics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/closedform/internal/photometric"
)

// Summary condenses one solve.
type Summary struct {
	Points     int
	Views      int
	Iterations int
	Degenerate int

	MeanInliers float64
	MinInliers  float64
	MaxInliers  float64

	// Normal deviation statistics in degrees; zero when no deviations were
	// supplied.
	MeanDeviationDeg   float64
	MedianDeviationDeg float64
	P95DeviationDeg    float64
	MaxDeviationDeg    float64
}

// Summarize computes a Summary for res. deviationDeg is optional and holds
// one angle per point, typically against ground truth or implied normals.
func Summarize(res *photometric.Result, deviationDeg []float64) (Summary, error) {
	s := Summary{
		Points:     res.Points,
		Views:      res.Views,
		Iterations: res.Iterations,
		Degenerate: res.DegenerateCount(),
	}
	if len(res.InlierCounts) > 0 {
		counts := make([]float64, len(res.InlierCounts))
		for i, c := range res.InlierCounts {
			counts[i] = float64(c)
		}
		s.MeanInliers = stat.Mean(counts, nil)
		s.MinInliers = floats.Min(counts)
		s.MaxInliers = floats.Max(counts)
	}
	if len(deviationDeg) == 0 {
		return s, nil
	}
	if len(deviationDeg) != res.Points {
		return s, fmt.Errorf("got %d deviations for %d points", len(deviationDeg), res.Points)
	}
	sorted := append([]float64(nil), deviationDeg...)
	sort.Float64s(sorted)
	s.MeanDeviationDeg = stat.Mean(sorted, nil)
	s.MedianDeviationDeg = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P95DeviationDeg = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	s.MaxDeviationDeg = sorted[len(sorted)-1]
	return s, nil
}

// String formats the summary as one log line.
func (s Summary) String() string {
	return fmt.Sprintf("points=%d views=%d iterations=%d degenerate=%d inliers mean=%.2f min=%.0f max=%.0f deviation mean=%.3f° median=%.3f° p95=%.3f° max=%.3f°",
		s.Points, s.Views, s.Iterations, s.Degenerate,
		s.MeanInliers, s.MinInliers, s.MaxInliers,
		s.MeanDeviationDeg, s.MedianDeviationDeg, s.P95DeviationDeg, s.MaxDeviationDeg)
}
