package synthetic

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/closedform/internal/config"
	"github.com/banshee-data/closedform/internal/location"
	"github.com/banshee-data/closedform/internal/photometric"
)

// Options describes a synthetic planar scene.
type Options struct {
	Height       int             // Image height; points are (Height-1)·(Width-1) (default: 26)
	Width        int             // Image width (default: 41)
	Views        int             // Light/view conditions (default: 40)
	Depth        float64         // Distance of the plane along the optical axis (default: 2)
	TiltDeg      float64         // Plane rotation about the camera y axis (default: 20)
	Albedo       photometric.RGB // Diffuse albedo of every point
	Focal        float64         // Focal length in pixels (default: 50)
	LightConeDeg float64         // Half angle of the light direction cone (default: 40)
	BatchSize    int             // Views per training batch (default: 10)
	Seed         int64           // Light sampling seed (default: 7)
}

// OptionsFromSettings builds scene Options from loaded Settings.
func OptionsFromSettings(s *config.Settings) Options {
	return Options{
		Height:       s.GetSceneHeight(),
		Width:        s.GetSceneWidth(),
		Views:        s.GetSceneViews(),
		Depth:        s.GetSceneDepth(),
		TiltDeg:      s.GetSceneTiltDeg(),
		Albedo:       photometric.RGB(s.GetSceneAlbedo()),
		Focal:        50,
		LightConeDeg: 40,
		BatchSize:    10,
		Seed:         7,
	}
}

// DefaultOptions returns the default scene.
func DefaultOptions() Options {
	return OptionsFromSettings(config.EmptySettings())
}

// Scene is a fully specified synthetic capture.
type Scene struct {
	Options
	Calibration location.Calibration
	Depth       *location.Image
	Mask        *location.Mask
	// Normal is the ground-truth unit normal shared by every point.
	Normal   r3.Vector
	Points   []r3.Vector
	Lights   *DirectionalLights
	Renderer *Renderer
	Batches  []photometric.TrainingBatch
}

// Build renders a tilted plane seen by a camera at the origin looking down +z.
func Build(opts Options) (*Scene, error) {
	if opts.Height < 3 || opts.Width < 3 {
		return nil, fmt.Errorf("scene must be at least 3x3, got %dx%d", opts.Height, opts.Width)
	}
	if opts.Views < 1 || opts.Depth <= 0 || opts.Focal <= 0 {
		return nil, fmt.Errorf("invalid scene options: views=%d depth=%g focal=%g", opts.Views, opts.Depth, opts.Focal)
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = opts.Views
	}

	calib := location.NewPinholeCalibration(opts.Focal, opts.Focal,
		float64(opts.Width-1)/2, float64(opts.Height-1)/2, location.IdentityPose)

	t := opts.TiltDeg * math.Pi / 180
	normal := r3.Vector{X: math.Sin(t), Z: -math.Cos(t)}
	anchor := r3.Vector{Z: opts.Depth}

	mask := location.NewMask(opts.Height, opts.Width)
	depth := location.NewImage(opts.Height, opts.Width, 1)
	for row := 0; row < opts.Height; row++ {
		for col := 0; col < opts.Width; col++ {
			ray := calib.Ray(float64(col), float64(row))
			denom := normal.Dot(ray)
			if denom == 0 {
				return nil, fmt.Errorf("pixel (%d, %d) looks along the plane", row, col)
			}
			// ray z is 1, so the ray parameter is the depth
			d := normal.Dot(anchor) / denom
			if d <= 0 {
				return nil, fmt.Errorf("plane is behind the camera at pixel (%d, %d)", row, col)
			}
			depth.Set(row, col, 0, d)
			mask.Set(row, col, row < opts.Height-1 && col < opts.Width-1)
		}
	}

	dm := location.NewDepthMap()
	if err := dm.Initialize(depth, mask, calib); err != nil {
		return nil, fmt.Errorf("build scene geometry: %w", err)
	}
	points := dm.Locations()

	// lights come from the camera side of the plane
	lights := RandomDirectionalLights(opts.Views, r3.Vector{Z: -1}, opts.LightConeDeg, opts.Seed)

	normals := make([]r3.Vector, len(points))
	albedo := make([]photometric.RGB, len(points))
	for i := range points {
		normals[i] = normal
		albedo[i] = opts.Albedo
	}

	var batches []photometric.TrainingBatch
	for lo := 0; lo < opts.Views; lo += opts.BatchSize {
		hi := min(lo+opts.BatchSize, opts.Views)
		b := photometric.TrainingBatch{}
		for v := lo; v < hi; v++ {
			b.Views = append(b.Views, v)
			b.Lights = append(b.Lights, v)
		}
		batches = append(batches, b)
	}

	return &Scene{
		Options:     opts,
		Calibration: calib,
		Depth:       depth,
		Mask:        mask,
		Normal:      normal,
		Points:      points,
		Lights:      lights,
		Renderer:    NewRenderer(points, normals, albedo, lights, opts.Views),
		Batches:     batches,
	}, nil
}
