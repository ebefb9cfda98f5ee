package vecmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Normalize returns v scaled to unit length. Zero-length and non-finite
// vectors map to the zero vector so that "no direction" survives a
// normalization unchanged.
func Normalize(v r3.Vector) r3.Vector {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return r3.Vector{}
	}
	return v.Mul(1 / n)
}

// Inner returns the dot product of a and b.
func Inner(a, b r3.Vector) float64 {
	return a.Dot(b)
}

// Cross returns the cross product a × b.
func Cross(a, b r3.Vector) r3.Vector {
	return a.Cross(b)
}

// Norm returns the Euclidean length of v.
func Norm(v r3.Vector) float64 {
	return v.Norm()
}

// IsZero reports whether all components of v are exactly zero.
func IsZero(v r3.Vector) bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v r3.Vector) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// NormalizeAll normalizes every vector of vs into a new slice.
func NormalizeAll(vs []r3.Vector) []r3.Vector {
	out := make([]r3.Vector, len(vs))
	for i, v := range vs {
		out[i] = Normalize(v)
	}
	return out
}

// Sum returns the component-wise sum of vs.
func Sum(vs []r3.Vector) r3.Vector {
	var s r3.Vector
	for _, v := range vs {
		s = s.Add(v)
	}
	return s
}

// Mean returns the component-wise mean of vs, or the zero vector for an
// empty slice.
func Mean(vs []r3.Vector) r3.Vector {
	if len(vs) == 0 {
		return r3.Vector{}
	}
	return Sum(vs).Mul(1 / float64(len(vs)))
}

// AngleDeg returns the angle between a and b in degrees. Either vector being
// zero yields 90.
func AngleDeg(a, b r3.Vector) float64 {
	if IsZero(a) || IsZero(b) {
		return 90
	}
	return a.Angle(b).Degrees()
}
