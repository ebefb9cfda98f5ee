// Package vecmath holds the small vector helpers shared by the location and
// photometric packages: normalization that keeps zero vectors at zero,
// inner and cross products, and batch forms over point sets.
//
// All vectors are r3.Vector values; nothing here allocates beyond the
// returned slices.
package vecmath
