// Package scene holds the persistent per-scene state that the closed-form
// initializer writes into: the location parametrization plus per-point
// normals, diffuse albedo and the RANSAC diagnostics of the last solve.
//
// It also provides the accessors an evaluation step needs (point cloud,
// depth image, normal image) and a PLY export of the point cloud.
package scene
