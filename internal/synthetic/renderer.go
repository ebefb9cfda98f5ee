package synthetic

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/closedform/internal/photometric"
)

// Renderer produces Lambertian radiance, albedo/π · max(0, n·d) · I, for a
// known point set. Individual (point, view) entries can be corrupted,
// occluded or pushed out of bounds.
type Renderer struct {
	Points  []r3.Vector
	Normals []r3.Vector
	Albedo  []photometric.RGB
	Lights  photometric.LightModel
	// LightOf maps a view to its light; nil means view i uses light i.
	LightOf []int
	Views   int

	corrupt     map[int]float64
	occluded    map[int]bool
	outOfBounds map[int]bool
}

// NewRenderer returns a renderer over views 0..views-1.
func NewRenderer(points, normals []r3.Vector, albedo []photometric.RGB, lights photometric.LightModel, views int) *Renderer {
	return &Renderer{
		Points:      points,
		Normals:     normals,
		Albedo:      albedo,
		Lights:      lights,
		Views:       views,
		corrupt:     make(map[int]float64),
		occluded:    make(map[int]bool),
		outOfBounds: make(map[int]bool),
	}
}

func (r *Renderer) key(point, view int) int {
	return point*r.Views + view
}

// Corrupt overwrites round(fraction·N·C) distinct (point, view) entries,
// chosen with the given seed, with radiance value in every channel. It returns
// the number of corrupted entries.
func (r *Renderer) Corrupt(fraction, value float64, seed int64) int {
	total := len(r.Points) * r.Views
	count := int(math.Round(fraction * float64(total)))
	rng := rand.New(rand.NewSource(seed))
	for _, k := range rng.Perm(total)[:count] {
		r.corrupt[k] = value
	}
	return count
}

// IsCorrupted reports whether (point, view) was corrupted.
func (r *Renderer) IsCorrupted(point, view int) bool {
	_, ok := r.corrupt[r.key(point, view)]
	return ok
}

// CorruptedCount returns the number of corrupted entries.
func (r *Renderer) CorruptedCount() int {
	return len(r.corrupt)
}

// Occlude marks (point, view) as occluded when occlusions are modelled.
func (r *Renderer) Occlude(point, view int) {
	r.occluded[r.key(point, view)] = true
}

// MarkOutOfBounds makes (point, view) report photometric.ObservationOutOfBounds.
func (r *Renderer) MarkOutOfBounds(point, view int) {
	r.outOfBounds[r.key(point, view)] = true
}

// ExtractObservations implements photometric.ObservationExtractor. Radiance is
// analytic, so radius has no effect.
func (r *Renderer) ExtractObservations(ctx context.Context, views []int, radius int, occlusions bool) (*photometric.ObservationSample, error) {
	for _, v := range views {
		if v < 0 || v >= r.Views {
			return nil, fmt.Errorf("view %d out of range [0, %d)", v, r.Views)
		}
	}
	batch := photometric.TrainingBatch{Views: views}
	if r.LightOf != nil {
		batch.Lights = make([]int, len(views))
		for i, v := range views {
			batch.Lights[i] = r.LightOf[v]
		}
	}
	ls, err := r.Lights.LightIntensities(ctx, r.Points, batch, false)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	C := len(views)
	out := &photometric.ObservationSample{
		Radiance: make([]photometric.RGB, len(r.Points)*C),
		Occluded: make([]bool, len(r.Points)*C),
	}
	for n := range r.Points {
		for c, v := range views {
			i := n*C + c
			k := r.key(n, v)
			switch {
			case r.outOfBounds[k]:
				out.Radiance[i] = photometric.RGB{photometric.ObservationOutOfBounds, photometric.ObservationOutOfBounds, photometric.ObservationOutOfBounds}
				continue
			case occlusions && r.occluded[k]:
				out.Occluded[i] = true
			}
			if val, ok := r.corrupt[k]; ok {
				out.Radiance[i] = photometric.RGB{val, val, val}
				continue
			}
			cos := math.Max(0, r.Normals[n].Dot(ls.Direction[i]))
			I := ls.Intensity[i]
			a := r.Albedo[n]
			out.Radiance[i] = photometric.RGB{
				a[0] / math.Pi * cos * I[0],
				a[1] / math.Pi * cos * I[1],
				a[2] / math.Pi * cos * I[2],
			}
		}
	}
	return out, nil
}
