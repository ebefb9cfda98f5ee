package location

import (
	"github.com/golang/geo/r3"

	"github.com/banshee-data/closedform/internal/vecmath"
)

// normalWindowRadius is the half-size of the window used to repair normals
// at mask boundaries (5×5).
const normalWindowRadius = 2

// impliedNormals derives per-pixel surface normals from a location image by
// forward differences.
//
// For every interior masked pixel whose down and right neighbours are also
// masked, normal = normalize(normalize(P[i,j]-P[i+1,j]) × normalize(P[i,j]-P[i,j+1])),
// flipped to face the camera. Remaining masked pixels take the normalized
// mean of the valid normals in a 5×5 window; pixels with no valid neighbour
// take the normalized sum of all window means. The result covers the full
// grid and is exactly zero outside the mask.
func impliedNormals(mask *Mask, points *Image, camera r3.Vector) *Image {
	h, w := mask.Height, mask.Width
	out := NewImage(h, w, 3)
	if h < 2 || w < 2 {
		return out
	}
	ih, iw := h-1, w-1

	raw := make([]r3.Vector, ih*iw)
	valid := make([]bool, ih*iw)
	for i := 0; i < ih; i++ {
		for j := 0; j < iw; j++ {
			if !mask.At(i, j) || !mask.At(i+1, j) || !mask.At(i, j+1) {
				continue
			}
			p := points.Vec(i, j)
			down := vecmath.Normalize(p.Sub(points.Vec(i+1, j)))
			right := vecmath.Normalize(p.Sub(points.Vec(i, j+1)))
			n := vecmath.Normalize(vecmath.Cross(down, right))
			switch s := n.Dot(camera.Sub(p)); {
			case s < 0:
				n = n.Mul(-1)
			case s == 0:
				n = r3.Vector{}
			}
			k := i*iw + j
			raw[k] = n
			valid[k] = !vecmath.IsZero(n)
		}
	}

	means := windowMeans(raw, valid, ih, iw)
	global := vecmath.Normalize(vecmath.Sum(means))

	for i := 0; i < ih; i++ {
		for j := 0; j < iw; j++ {
			if !mask.At(i, j) {
				continue
			}
			k := i*iw + j
			n := raw[k]
			if !valid[k] {
				n = means[k]
			}
			if vecmath.IsZero(n) {
				n = global
			}
			if vecmath.IsZero(n) {
				// nothing valid anywhere: face the camera
				n = vecmath.Normalize(camera.Sub(points.Vec(i, j)))
			}
			out.SetVec(i, j, n)
		}
	}
	return out
}

// windowMeans returns, for every pixel of an ih×iw grid, the normalized sum
// of the valid normals inside its window.
func windowMeans(raw []r3.Vector, valid []bool, ih, iw int) []r3.Vector {
	means := make([]r3.Vector, ih*iw)
	for i := 0; i < ih; i++ {
		for j := 0; j < iw; j++ {
			var sum r3.Vector
			for di := -normalWindowRadius; di <= normalWindowRadius; di++ {
				r := i + di
				if r < 0 || r >= ih {
					continue
				}
				for dj := -normalWindowRadius; dj <= normalWindowRadius; dj++ {
					c := j + dj
					if c < 0 || c >= iw || !valid[r*iw+c] {
						continue
					}
					sum = sum.Add(raw[r*iw+c])
				}
			}
			means[i*iw+j] = vecmath.Normalize(sum)
		}
	}
	return means
}
