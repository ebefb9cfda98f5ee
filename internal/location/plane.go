package location

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/closedform/internal/monitoring"
)

// rayPlaneEpsilon is the smallest |ray·p| accepted, relative to |ray|·|p|.
// Rays closer to parallel than this are clamped to it (sign kept).
const rayPlaneEpsilon = 1e-9

// Plane describes every point as the intersection of its pixel's camera ray
// with one shared plane {x : p·x = 1}.
type Plane struct {
	base
	p       r3.Vector
	rays    []r3.Vector
	clamped int
}

// NewPlane returns an uninitialized plane parametrization.
func NewPlane() *Plane {
	return &Plane{}
}

// Kind returns KindPlane.
func (pl *Plane) Kind() Kind { return KindPlane }

// Initialize unprojects the masked depth samples and fits the plane as the
// least-squares solution of W·p = 1.
func (pl *Plane) Initialize(depth *Image, mask *Mask, calib Calibration) error {
	if err := pl.setup(depth, mask, calib); err != nil {
		return err
	}
	if pl.count < 3 {
		return fmt.Errorf("%w: a plane needs at least 3 masked pixels, got %d", ErrConfiguration, pl.count)
	}

	W := mat.NewDense(pl.count, 3, nil)
	ones := mat.NewVecDense(pl.count, nil)
	n := 0
	for row := 0; row < pl.mask.Height; row++ {
		for col := 0; col < pl.mask.Width; col++ {
			if !pl.mask.At(row, col) {
				continue
			}
			x := calib.Unproject(row, col, depth.At(row, col, 0))
			W.SetRow(n, []float64{x.X, x.Y, x.Z})
			ones.SetVec(n, 1)
			n++
		}
	}
	var p mat.VecDense
	if err := p.SolveVec(W, ones); err != nil {
		return fmt.Errorf("%w: depth samples do not determine a plane: %v", ErrConfiguration, err)
	}
	pl.p = r3.Vector{X: p.AtVec(0), Y: p.AtVec(1), Z: p.AtVec(2)}
	pl.cacheRays()
	return nil
}

func (pl *Plane) cacheRays() {
	pl.rays = make([]r3.Vector, 0, pl.count)
	for row := 0; row < pl.mask.Height; row++ {
		for col := 0; col < pl.mask.Width; col++ {
			if pl.mask.At(row, col) {
				pl.rays = append(pl.rays, pl.calib.Ray(float64(col), float64(row)))
			}
		}
	}
}

// Plane returns the plane parameter p.
func (pl *Plane) Plane() r3.Vector {
	return pl.p
}

// SetPlane replaces the plane parameter and invalidates every derived value.
// The zero vector describes no plane and is rejected.
func (pl *Plane) SetPlane(p r3.Vector) error {
	if pl.mask == nil {
		return fmt.Errorf("%w: plane is not initialized", ErrConfiguration)
	}
	if p.Norm2() == 0 {
		return fmt.Errorf("%w: plane parameter must be non-zero", ErrConfiguration)
	}
	pl.p = p
	pl.touch()
	return nil
}

// ClampedRays returns how many rays were nearly parallel to the plane in the
// most recent Locations computation.
func (pl *Plane) ClampedRays() int {
	return pl.clamped
}

// Locations intersects every pixel ray with the plane:
// t = (1 - o·p) / (ray·p), x = o + t·ray.
func (pl *Plane) Locations() []r3.Vector {
	if pl.mask == nil {
		return nil
	}
	return pl.locations.get(pl.version, func() []r3.Vector {
		o := pl.calib.CameraPosition()
		num := 1 - o.Dot(pl.p)
		pnorm := pl.p.Norm()
		pl.clamped = 0
		pts := make([]r3.Vector, len(pl.rays))
		for k, ray := range pl.rays {
			denom := ray.Dot(pl.p)
			limit := rayPlaneEpsilon * ray.Norm() * pnorm
			if math.Abs(denom) < limit {
				pl.clamped++
				denom = math.Copysign(limit, denom)
			}
			pts[k] = o.Add(ray.Mul(num / denom))
		}
		if pl.clamped > 0 {
			monitoring.Warnf("%d of %d camera rays are nearly parallel to the plane; intersections clamped", pl.clamped, len(pl.rays))
		}
		return pts
	})
}

// ImpliedDepthImage projects the plane points back to camera depth.
func (pl *Plane) ImpliedDepthImage() *Image {
	if pl.mask == nil {
		return nil
	}
	pts := pl.Locations()
	return pl.depthImage.get(pl.version, func() *Image {
		return pl.projectedDepth(pts)
	})
}

// ImpliedDepthVector returns the per-point camera depths.
func (pl *Plane) ImpliedDepthVector() []float64 {
	if pl.mask == nil {
		return nil
	}
	return pl.depthVector(pl.ImpliedDepthImage())
}

// ImpliedNormalImage returns the finite-difference normal image.
func (pl *Plane) ImpliedNormalImage() *Image {
	if pl.mask == nil {
		return nil
	}
	return pl.impliedNormalImage(pl.Locations())
}

// ImpliedNormalVector returns the per-point finite-difference normals.
func (pl *Plane) ImpliedNormalVector() []r3.Vector {
	if pl.mask == nil {
		return nil
	}
	return pl.normalVector(pl.ImpliedNormalImage())
}

// ParameterInfo describes the three plane coefficients.
func (pl *Plane) ParameterInfo() []ParameterSpec {
	return []ParameterSpec{{Name: "locations", LearningRate: 1e-4, Size: 3}}
}

// EnforceParameterBounds is a no-op: every non-zero plane is admissible.
func (pl *Plane) EnforceParameterBounds() {}
