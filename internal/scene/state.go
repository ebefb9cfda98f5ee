package scene

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/closedform/internal/location"
	"github.com/banshee-data/closedform/internal/monitoring"
	"github.com/banshee-data/closedform/internal/photometric"
)

// Sources are the collaborators that supply light and observation data for a
// solve.
type Sources struct {
	Batches   []photometric.TrainingBatch
	Lights    photometric.LightModel
	Extractor photometric.ObservationExtractor
}

// State is the scene state of one reconstruction. It is single-owner.
type State struct {
	Locations location.Parametrization

	Normals   []r3.Vector
	Diffuse   []photometric.RGB
	Inliers   []bool
	Residuals []photometric.RGB
	Views     int
}

// New wraps an initialized parametrization.
func New(locs location.Parametrization) (*State, error) {
	if locs == nil || locs.Mask() == nil {
		return nil, fmt.Errorf("%w: scene needs an initialized location parametrization", location.ErrConfiguration)
	}
	return &State{Locations: locs}, nil
}

// InitializeFromClosedForm gathers observations for the current point set,
// runs the robust Lambertian fit and stores its result in the state.
func (s *State) InitializeFromClosedForm(ctx context.Context, src Sources, cfg *photometric.Config) (*photometric.Result, error) {
	points := s.Locations.Locations()
	obs, err := photometric.Gather(ctx, points, src.Batches, src.Lights, src.Extractor, cfg)
	if err != nil {
		return nil, fmt.Errorf("gather observations: %w", err)
	}
	res, err := photometric.Solve(obs, cfg)
	if err != nil {
		return nil, fmt.Errorf("closed-form solve: %w", err)
	}
	if err := s.Apply(res); err != nil {
		return nil, err
	}

	mean := 0.0
	if len(res.History) > 0 {
		mean = res.History[len(res.History)-1]
	}
	monitoring.Logf("closed form: %d points, %d views, %d iterations of %d-view subsets, mean inliers %.2f, %d degenerate",
		res.Points, res.Views, res.Iterations, res.SubsetSize, mean, res.DegenerateCount())
	if d := res.DegenerateCount(); d > 0 {
		monitoring.Warnf("%d points had two or fewer valid views; their normals and albedos are low confidence", d)
	}
	return res, nil
}

// Apply writes a solve result into the state.
func (s *State) Apply(res *photometric.Result) error {
	if n := s.Locations.PointCount(); res.Points != n {
		return fmt.Errorf("%w: result has %d points, scene has %d", location.ErrShapeMismatch, res.Points, n)
	}
	s.Normals = append([]r3.Vector(nil), res.Normals...)
	s.Diffuse = append([]photometric.RGB(nil), res.Albedos...)
	s.Inliers = append([]bool(nil), res.Inliers...)
	s.Residuals = append([]photometric.RGB(nil), res.Residuals...)
	s.Views = res.Views
	return nil
}

// Solved reports whether a result has been applied.
func (s *State) Solved() bool {
	return s.Normals != nil
}

// CloudPoint is one entry of an exported point cloud.
type CloudPoint struct {
	Position r3.Vector
	Normal   r3.Vector
	Color    photometric.RGB
}

// PointCloud returns positions with the solved normals and diffuse colour.
// Before a solve the implied normals and a mid-grey colour are used.
func (s *State) PointCloud() []CloudPoint {
	points := s.Locations.Locations()
	normals := s.Normals
	if normals == nil {
		normals = s.Locations.ImpliedNormalVector()
	}
	cloud := make([]CloudPoint, len(points))
	for i, p := range points {
		c := photometric.RGB{0.5, 0.5, 0.5}
		if s.Diffuse != nil {
			c = s.Diffuse[i]
		}
		cloud[i] = CloudPoint{Position: p, Normal: normals[i], Color: c}
	}
	return cloud
}

// DepthImage returns the implied camera-space depth image.
func (s *State) DepthImage() *location.Image {
	return s.Locations.ImpliedDepthImage()
}

// NormalImage returns the solved normals scattered onto the image grid, or the
// implied normals before a solve.
func (s *State) NormalImage() *location.Image {
	if s.Normals == nil {
		return s.Locations.ImpliedNormalImage()
	}
	return s.Locations.CreateImage(location.FromPoints(s.Normals))
}

// NormalDeviationDeg returns, per point, the angle between the solved normal
// and the finite-difference normal of the geometry. It is nil before a solve.
func (s *State) NormalDeviationDeg() []float64 {
	if s.Normals == nil {
		return nil
	}
	implied := s.Locations.ImpliedNormalVector()
	out := make([]float64, len(s.Normals))
	for i, n := range s.Normals {
		out[i] = n.Angle(implied[i]).Degrees()
	}
	return out
}
