package diagnostics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/closedform/internal/fsutil"
	"github.com/banshee-data/closedform/internal/monitoring"
	"github.com/banshee-data/closedform/internal/photometric"
)

func testResult() *photometric.Result {
	return &photometric.Result{
		Points:       4,
		Views:        6,
		InlierCounts: []int{6, 5, 2, 6},
		Degenerate:   []bool{false, false, true, false},
		Iterations:   5,
		SubsetSize:   3,
		History:      []float64{3.5, 4.25, 4.75, 4.75, 4.75},
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(testResult(), []float64{0.5, 1.5, 12, 0.25})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Points)
	assert.Equal(t, 1, s.Degenerate)
	assert.InDelta(t, 4.75, s.MeanInliers, 1e-12)
	assert.Equal(t, 2.0, s.MinInliers)
	assert.Equal(t, 6.0, s.MaxInliers)
	assert.InDelta(t, 3.5625, s.MeanDeviationDeg, 1e-12)
	assert.Equal(t, 12.0, s.MaxDeviationDeg)
	assert.Equal(t, 12.0, s.P95DeviationDeg)
	assert.Contains(t, s.String(), "degenerate=1")
}

func TestSummarizeWithoutDeviations(t *testing.T) {
	s, err := Summarize(testResult(), nil)
	require.NoError(t, err)
	assert.Zero(t, s.MeanDeviationDeg)

	_, err = Summarize(testResult(), []float64{1, 2})
	assert.Error(t, err)
}

func TestPlotsRejectEmptyResults(t *testing.T) {
	_, err := ConvergencePlot(&photometric.Result{})
	assert.Error(t, err)
	_, err = InlierHistogram(&photometric.Result{})
	assert.Error(t, err)
	_, err = DeviationHistogram(nil)
	assert.Error(t, err)
}

func TestWritePlots(t *testing.T) {
	_, restore := monitoring.Capture()
	defer restore()

	fsys := fsutil.NewMemoryFileSystem()
	dir := filepath.Join(os.TempDir(), "closedform-plots")
	paths, err := WritePlots(fsys, dir, "scene 1/solve", testResult(), []float64{0.5, 1.5, 12, 0.25})
	require.NoError(t, err)
	require.Len(t, paths, 3)

	assert.Equal(t, filepath.Join(dir, "scene_1_solve_convergence.png"), paths[0])
	for _, p := range paths {
		data, err := fsys.ReadFile(p)
		require.NoError(t, err, p)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "%s is not a PNG", p)
	}
}

func TestWritePlotsSkipsDeviationWhenAbsent(t *testing.T) {
	_, restore := monitoring.Capture()
	defer restore()

	fsys := fsutil.NewMemoryFileSystem()
	dir := filepath.Join(os.TempDir(), "closedform-plots")
	paths, err := WritePlots(fsys, dir, "", testResult(), nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "solve_convergence.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "solve_inliers.png"), paths[1])

	paths, err = WritePlots(fsys, dir, "   ", testResult(), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "solve_convergence.png"), paths[0])
}

func TestWritePNGRejectsOutsidePath(t *testing.T) {
	p, err := ConvergencePlot(testResult())
	require.NoError(t, err)
	assert.Error(t, WritePNG(fsutil.NewMemoryFileSystem(), "/etc/closedform.png", p))
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, "Tilted plane", testResult(), []float64{0.5, 1.5, 12, 0.25}))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Tilted plane")
	assert.Contains(t, html, "Inlier views per point")
	assert.Contains(t, html, "Normal deviation")
}

func TestWriteReport(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	fsys := fsutil.NewMemoryFileSystem()
	path := filepath.Join(os.TempDir(), "closedform-report.html")
	require.NoError(t, WriteReport(fsys, path, "Report", testResult(), nil))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Normal deviation")
	assert.True(t, rec.Contains("Wrote report"))

	assert.Error(t, WriteReport(fsys, "/etc/report.html", "Report", testResult(), nil))
}
