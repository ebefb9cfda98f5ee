package vecmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   r3.Vector
		want r3.Vector
	}{
		{"axis", r3.Vector{X: 3}, r3.Vector{X: 1}},
		{"diagonal", r3.Vector{X: 3, Y: 4}, r3.Vector{X: 0.6, Y: 0.8}},
		{"zero stays zero", r3.Vector{}, r3.Vector{}},
		{"nan maps to zero", r3.Vector{X: math.NaN()}, r3.Vector{}},
		{"inf maps to zero", r3.Vector{Z: math.Inf(1)}, r3.Vector{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.InDelta(t, tt.want.X, got.X, 1e-12)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-12)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-12)
		})
	}
}

func TestCrossAndInner(t *testing.T) {
	x, y := r3.Vector{X: 1}, r3.Vector{Y: 1}
	assert.Equal(t, r3.Vector{Z: 1}, Cross(x, y))
	assert.Equal(t, r3.Vector{Z: -1}, Cross(y, x))
	assert.Equal(t, 0.0, Inner(x, y))
	assert.Equal(t, 1.0, Inner(x, x))
}

func TestMeanAndAngle(t *testing.T) {
	assert.Equal(t, r3.Vector{}, Mean(nil))
	m := Mean([]r3.Vector{{X: 2}, {Y: 2}})
	assert.Equal(t, r3.Vector{X: 1, Y: 1}, m)

	assert.InDelta(t, 90, AngleDeg(r3.Vector{X: 1}, r3.Vector{Y: 1}), 1e-9)
	assert.InDelta(t, 0, AngleDeg(r3.Vector{X: 1}, r3.Vector{X: 5}), 1e-6)
	assert.InDelta(t, 90, AngleDeg(r3.Vector{}, r3.Vector{X: 1}), 1e-9)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(r3.Vector{X: 1, Y: -2, Z: 3}))
	assert.False(t, IsFinite(r3.Vector{Y: math.NaN()}))
	assert.True(t, IsZero(r3.Vector{}))
	assert.False(t, IsZero(r3.Vector{Z: 1e-300}))
}
