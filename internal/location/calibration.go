package location

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// MatrixValidationTolerance bounds |det(R)-1| for the rotation block of a
// camera pose.
const MatrixValidationTolerance = 0.01

// Calibration holds the inverse intrinsics and the camera-to-world pose of
// the reference view. Both are row-major.
type Calibration struct {
	InvK  [9]float64
	InvRt [16]float64
}

// IdentityPose is the row-major 4×4 identity transform.
var IdentityPose = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// NewPinholeCalibration inverts a pinhole intrinsic matrix analytically and
// pairs it with a camera-to-world pose.
func NewPinholeCalibration(fx, fy, cx, cy float64, camToWorld [16]float64) Calibration {
	return Calibration{
		InvK: [9]float64{
			1 / fx, 0, -cx / fx,
			0, 1 / fy, -cy / fy,
			0, 0, 1,
		},
		InvRt: camToWorld,
	}
}

// Validate checks that InvRt is a proper rigid transform and InvK is
// invertible.
func (c Calibration) Validate() error {
	T := c.InvRt
	r00, r01, r02 := T[0], T[1], T[2]
	r10, r11, r12 := T[4], T[5], T[6]
	r20, r21, r22 := T[8], T[9], T[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > MatrixValidationTolerance {
		return fmt.Errorf("%w: pose rotation determinant %.4f is not 1", ErrConfiguration, det)
	}
	if T[12] != 0 || T[13] != 0 || T[14] != 0 || math.Abs(T[15]-1.0) > 0.001 {
		return fmt.Errorf("%w: pose last row must be [0 0 0 1]", ErrConfiguration)
	}

	K := c.InvK
	kdet := K[0]*(K[4]*K[8]-K[5]*K[7]) - K[1]*(K[3]*K[8]-K[5]*K[6]) + K[2]*(K[3]*K[7]-K[4]*K[6])
	if kdet == 0 || math.IsNaN(kdet) {
		return fmt.Errorf("%w: inverse intrinsics are singular", ErrConfiguration)
	}
	return nil
}

// CameraPosition returns the camera centre in world coordinates.
func (c Calibration) CameraPosition() r3.Vector {
	return r3.Vector{X: c.InvRt[3], Y: c.InvRt[7], Z: c.InvRt[11]}
}

// Ray returns the world-frame direction through pixel coordinate (x, y),
// i.e. R_inv · InvK · (x, y, 1). It is not normalized: for a standard
// intrinsic matrix its camera-frame z component is 1.
func (c Calibration) Ray(x, y float64) r3.Vector {
	K := c.InvK
	cx := K[0]*x + K[1]*y + K[2]
	cy := K[3]*x + K[4]*y + K[5]
	cz := K[6]*x + K[7]*y + K[8]
	T := c.InvRt
	return r3.Vector{
		X: T[0]*cx + T[1]*cy + T[2]*cz,
		Y: T[4]*cx + T[5]*cy + T[6]*cz,
		Z: T[8]*cx + T[9]*cy + T[10]*cz,
	}
}

// Unproject lifts pixel (row, col) at the given depth into world space.
func (c Calibration) Unproject(row, col int, depth float64) r3.Vector {
	return c.CameraPosition().Add(c.Ray(float64(col), float64(row)).Mul(depth))
}

// CameraDepth returns the camera-frame z coordinate of world point p.
func (c Calibration) CameraDepth(p r3.Vector) float64 {
	T := c.InvRt
	d := p.Sub(c.CameraPosition())
	// third row of R = third column of the camera-to-world rotation
	return T[2]*d.X + T[6]*d.Y + T[10]*d.Z
}
