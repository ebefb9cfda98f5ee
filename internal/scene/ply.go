package scene

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/closedform/internal/fsutil"
	"github.com/banshee-data/closedform/internal/monitoring"
	"github.com/banshee-data/closedform/internal/security"
)

// WritePLY writes the point cloud as ASCII PLY with float positions and
// normals and 8-bit diffuse colour.
func (s *State) WritePLY(w io.Writer) error {
	if !s.Solved() {
		monitoring.Warnf("exporting point cloud before a solve; using implied normals and grey colour")
	}
	cloud := s.PointCloud()

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\ncomment closed-form Lambertian initialization\n")
	fmt.Fprintf(bw, "element vertex %d\n", len(cloud))
	for _, p := range []string{"x", "y", "z", "nx", "ny", "nz"} {
		fmt.Fprintf(bw, "property float %s\n", p)
	}
	for _, p := range []string{"red", "green", "blue"} {
		fmt.Fprintf(bw, "property uchar %s\n", p)
	}
	fmt.Fprintf(bw, "end_header\n")
	for _, p := range cloud {
		fmt.Fprintf(bw, "%.6f %.6f %.6f %.6f %.6f %.6f %d %d %d\n",
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Normal.X, p.Normal.Y, p.Normal.Z,
			toByte(p.Color[0]), toByte(p.Color[1]), toByte(p.Color[2]))
	}
	return bw.Flush()
}

func toByte(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(255 * math.Max(0, math.Min(1, v))))
}

// ExportPLY writes the point cloud to path on fsys. The path must lie inside
// the working directory or the temp directory.
func (s *State) ExportPLY(fsys fsutil.FileSystem, path string) error {
	if err := security.ValidateExportPath(path); err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := s.WritePLY(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	monitoring.Logf("Exported %d points to %s", s.Locations.PointCount(), path)
	return nil
}
