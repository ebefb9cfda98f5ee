package location

import "errors"

// ErrConfiguration marks a structurally invalid setup: a mask touching the
// last row or column, mismatched shapes at initialization, an invalid pose,
// or an unsupported parametrization kind.
var ErrConfiguration = errors.New("location configuration error")

// ErrShapeMismatch is returned by CreateVector when an image matches
// neither the mask shape nor the mask shape minus one row and column.
var ErrShapeMismatch = errors.New("location shape mismatch")
