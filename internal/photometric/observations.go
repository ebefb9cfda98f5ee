package photometric

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
)

// ObservationOutOfBounds is the radiance an ObservationExtractor reports for
// a point that projects outside a view. Such entries are treated as occluded.
const ObservationOutOfBounds = -1.0

// ErrInconsistentInput is returned when collaborator data or an observation
// set does not have the advertised point × view shape.
var ErrInconsistentInput = errors.New("inconsistent photometric input")

// RGB is a three-channel colour quantity: intensity, radiance, albedo or
// residual.
type RGB [3]float64

// Mean returns the channel average.
func (c RGB) Mean() float64 {
	return (c[0] + c[1] + c[2]) / 3
}

// Observations holds everything the solver needs for N points × C views.
// All slices are point-major: entry (n, c) lives at index n*Views + c.
type Observations struct {
	Points int
	Views  int

	Intensity []RGB
	Direction []r3.Vector
	Shadowed  []bool
	Occluded  []bool
	Radiance  []RGB
}

// NewObservations allocates an empty N×C observation set.
func NewObservations(points, views int) *Observations {
	n := points * views
	return &Observations{
		Points:    points,
		Views:     views,
		Intensity: make([]RGB, n),
		Direction: make([]r3.Vector, n),
		Shadowed:  make([]bool, n),
		Occluded:  make([]bool, n),
		Radiance:  make([]RGB, n),
	}
}

// Index returns the flat index of (point, view).
func (o *Observations) Index(point, view int) int {
	return point*o.Views + view
}

// Valid reports whether (point, view) is neither shadowed nor occluded.
func (o *Observations) Valid(point, view int) bool {
	i := o.Index(point, view)
	return !o.Shadowed[i] && !o.Occluded[i]
}

// ValidViews counts the valid views of a point.
func (o *Observations) ValidViews(point int) int {
	count := 0
	for c := 0; c < o.Views; c++ {
		if o.Valid(point, c) {
			count++
		}
	}
	return count
}

// Check verifies that every slice matches Points × Views.
func (o *Observations) Check() error {
	if o == nil {
		return fmt.Errorf("%w: nil observations", ErrInconsistentInput)
	}
	if o.Points < 0 || o.Views < 0 {
		return fmt.Errorf("%w: negative shape %dx%d", ErrInconsistentInput, o.Points, o.Views)
	}
	n := o.Points * o.Views
	fields := []struct {
		name string
		len  int
	}{
		{"intensity", len(o.Intensity)},
		{"direction", len(o.Direction)},
		{"shadowed", len(o.Shadowed)},
		{"occluded", len(o.Occluded)},
		{"radiance", len(o.Radiance)},
	}
	for _, f := range fields {
		if f.len != n {
			return fmt.Errorf("%w: %s has %d entries, want %d×%d", ErrInconsistentInput, f.name, f.len, o.Points, o.Views)
		}
	}
	return nil
}

// Concat joins observation sets of the same points along the view axis, in
// argument order.
func Concat(parts ...*Observations) (*Observations, error) {
	if len(parts) == 0 {
		return NewObservations(0, 0), nil
	}
	points := parts[0].Points
	views := 0
	for i, p := range parts {
		if err := p.Check(); err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		if p.Points != points {
			return nil, fmt.Errorf("%w: batch %d has %d points, want %d", ErrInconsistentInput, i, p.Points, points)
		}
		views += p.Views
	}

	out := NewObservations(points, views)
	offset := 0
	for _, p := range parts {
		for n := 0; n < points; n++ {
			src := n * p.Views
			dst := out.Index(n, offset)
			copy(out.Intensity[dst:dst+p.Views], p.Intensity[src:src+p.Views])
			copy(out.Direction[dst:dst+p.Views], p.Direction[src:src+p.Views])
			copy(out.Shadowed[dst:dst+p.Views], p.Shadowed[src:src+p.Views])
			copy(out.Occluded[dst:dst+p.Views], p.Occluded[src:src+p.Views])
			copy(out.Radiance[dst:dst+p.Views], p.Radiance[src:src+p.Views])
		}
		offset += p.Views
	}
	return out, nil
}
