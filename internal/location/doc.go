// Package location owns the geometry side of the initializer: turning a
// depth map (or a fitted plane) plus camera calibration into the ordered 3D
// point set that every per-point estimate is indexed by.
//
// Responsibilities: mask/image/vector conversions, implied camera-space
// depth, finite-difference surface normals with boundary repair, and
// snapshot serialization of the free parameters.
// Key types: Parametrization (closed set: DepthMap, Plane), Mask, Image,
// Vectors, Calibration.
//
// Point order is the row-major order of true mask cells. The mask must
// never be true on its last row or column so that every point has a down
// and a right neighbour inside the grid.
//
// Derived values (locations, implied depth, implied normals) are cached and
// tagged with the parameter version they were computed from. Any mutation of
// the free parameters bumps the version. Instances are single-owner and not
// safe for concurrent mutation.
package location
