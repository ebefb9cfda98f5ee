package synthetic

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/closedform/internal/photometric"
	"github.com/banshee-data/closedform/internal/vecmath"
)

// DirectionalLights is a set of lights at infinity. Light l shines along
// -Directions[l] with Intensities[l]; Directions point toward the light.
type DirectionalLights struct {
	Directions  []r3.Vector
	Intensities []photometric.RGB
}

// RandomDirectionalLights draws count white lights whose directions lie in a
// cone of halfAngleDeg around axis, with intensities in [0.5, 1.5).
func RandomDirectionalLights(count int, axis r3.Vector, halfAngleDeg float64, seed int64) *DirectionalLights {
	rng := rand.New(rand.NewSource(seed))
	axis = vecmath.Normalize(axis)
	// orthonormal frame around axis
	helper := r3.Vector{X: 1}
	if math.Abs(axis.X) > 0.9 {
		helper = r3.Vector{Y: 1}
	}
	u := vecmath.Normalize(axis.Cross(helper))
	v := axis.Cross(u)

	cosMax := math.Cos(halfAngleDeg * math.Pi / 180)
	lights := &DirectionalLights{
		Directions:  make([]r3.Vector, count),
		Intensities: make([]photometric.RGB, count),
	}
	for l := 0; l < count; l++ {
		// uniform on the spherical cap
		cosT := 1 - rng.Float64()*(1-cosMax)
		sinT := math.Sqrt(1 - cosT*cosT)
		phi := 2 * math.Pi * rng.Float64()
		d := axis.Mul(cosT).Add(u.Mul(sinT * math.Cos(phi))).Add(v.Mul(sinT * math.Sin(phi)))
		lights.Directions[l] = vecmath.Normalize(d)
		w := 0.5 + rng.Float64()
		lights.Intensities[l] = photometric.RGB{w, w, w}
	}
	return lights
}

// LightIntensities implements photometric.LightModel. View i of the batch is
// lit by batch.Lights[i], or by light batch.Views[i] when Lights is empty.
// Nothing is ever shadowed.
func (dl *DirectionalLights) LightIntensities(ctx context.Context, points []r3.Vector, batch photometric.TrainingBatch, shadowing bool) (*photometric.LightSample, error) {
	ids, err := lightIDs(batch, len(dl.Directions))
	if err != nil {
		return nil, err
	}
	return sampleLights(points, ids, func(_ r3.Vector, l int) (photometric.RGB, r3.Vector) {
		return dl.Intensities[l], dl.Directions[l]
	}), nil
}

// PointLights is a set of isotropic point sources with inverse-square
// falloff.
type PointLights struct {
	Positions []r3.Vector
	Power     []photometric.RGB
}

// LightIntensities implements photometric.LightModel with the same view to
// light mapping as DirectionalLights.
func (pl *PointLights) LightIntensities(ctx context.Context, points []r3.Vector, batch photometric.TrainingBatch, shadowing bool) (*photometric.LightSample, error) {
	ids, err := lightIDs(batch, len(pl.Positions))
	if err != nil {
		return nil, err
	}
	return sampleLights(points, ids, func(x r3.Vector, l int) (photometric.RGB, r3.Vector) {
		toLight := pl.Positions[l].Sub(x)
		d2 := toLight.Norm2()
		if d2 == 0 {
			return photometric.RGB{}, r3.Vector{}
		}
		p := pl.Power[l]
		return photometric.RGB{p[0] / d2, p[1] / d2, p[2] / d2}, toLight.Mul(1 / math.Sqrt(d2))
	}), nil
}

func lightIDs(batch photometric.TrainingBatch, lights int) ([]int, error) {
	ids := batch.Lights
	if len(ids) == 0 {
		ids = batch.Views
	}
	if len(ids) != len(batch.Views) {
		return nil, fmt.Errorf("batch has %d views but %d lights", len(batch.Views), len(ids))
	}
	for _, l := range ids {
		if l < 0 || l >= lights {
			return nil, fmt.Errorf("light %d out of range [0, %d)", l, lights)
		}
	}
	return ids, nil
}

func sampleLights(points []r3.Vector, ids []int, at func(x r3.Vector, l int) (photometric.RGB, r3.Vector)) *photometric.LightSample {
	C := len(ids)
	s := &photometric.LightSample{
		Intensity: make([]photometric.RGB, len(points)*C),
		Direction: make([]r3.Vector, len(points)*C),
		Shadowed:  make([]bool, len(points)*C),
	}
	for n, x := range points {
		for c, l := range ids {
			s.Intensity[n*C+c], s.Direction[n*C+c] = at(x, l)
		}
	}
	return s
}
