// Package photometric fits a Lambertian reflectance model to multi-view,
// multi-light observations of a point set: one unit normal and one RGB
// diffuse albedo per point.
//
// The fit is closed form. Every point solves a small regularized 3×3 normal
// equation system, and RANSAC over the view axis rejects corrupted
// observations. Collaborators supply the inputs: a LightModel gives incident
// intensity, direction and shadowing per (point, view), and an
// ObservationExtractor gives the observed radiance and occlusion. Gather
// collects both over all training batches; Solve runs the fit.
//
// Solve is stateless and re-entrant. Per-point work is fanned out over
// Config.Workers goroutines, while every random draw happens on the calling
// goroutine, so a fixed Seed reproduces the result for any worker count.
package photometric
