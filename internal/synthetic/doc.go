// Package synthetic builds analytic scenes for exercising the closed-form
// initializer: a pinhole camera looking at a tilted plane, light models that
// implement photometric.LightModel, and a Lambertian renderer that implements
// photometric.ObservationExtractor with optional outlier corruption.
package synthetic
