package location

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// DepthMap keeps one free depth value per pixel; masked pixels are
// unprojected through the calibration to form the point set.
type DepthMap struct {
	base
	depth *Image
}

// NewDepthMap returns an uninitialized depth-map parametrization.
func NewDepthMap() *DepthMap {
	return &DepthMap{}
}

// Kind returns KindDepthMap.
func (d *DepthMap) Kind() Kind { return KindDepthMap }

// Initialize stores a copy of depth, mask and calibration.
func (d *DepthMap) Initialize(depth *Image, mask *Mask, calib Calibration) error {
	if err := d.setup(depth, mask, calib); err != nil {
		return err
	}
	d.depth = depth.Clone()
	return nil
}

// Depth returns a copy of the depth map.
func (d *DepthMap) Depth() *Image {
	if d.depth == nil {
		return nil
	}
	return d.depth.Clone()
}

// SetDepth replaces the depth map and invalidates every derived value.
func (d *DepthMap) SetDepth(depth *Image) error {
	if d.mask == nil {
		return fmt.Errorf("%w: depth map is not initialized", ErrConfiguration)
	}
	if depth == nil || depth.Channels != 1 || depth.Height != d.mask.Height || depth.Width != d.mask.Width {
		return fmt.Errorf("%w: depth does not match the %dx%d mask", ErrShapeMismatch, d.mask.Height, d.mask.Width)
	}
	d.depth = depth.Clone()
	d.touch()
	return nil
}

// Locations unprojects every masked pixel at its depth.
func (d *DepthMap) Locations() []r3.Vector {
	if d.mask == nil {
		return nil
	}
	return d.locations.get(d.version, func() []r3.Vector {
		pts := make([]r3.Vector, 0, d.count)
		for row := 0; row < d.mask.Height; row++ {
			for col := 0; col < d.mask.Width; col++ {
				if d.mask.At(row, col) {
					pts = append(pts, d.calib.Unproject(row, col, d.depth.At(row, col, 0)))
				}
			}
		}
		return pts
	})
}

// ImpliedDepthImage is the depth map itself, zeroed outside the mask.
func (d *DepthMap) ImpliedDepthImage() *Image {
	if d.mask == nil {
		return nil
	}
	return d.depthImage.get(d.version, func() *Image {
		img := NewImage(d.mask.Height, d.mask.Width, 1)
		for row := 0; row < d.mask.Height; row++ {
			for col := 0; col < d.mask.Width; col++ {
				if d.mask.At(row, col) {
					img.Set(row, col, 0, d.depth.At(row, col, 0))
				}
			}
		}
		return img
	})
}

// ImpliedDepthVector returns the per-point depths.
func (d *DepthMap) ImpliedDepthVector() []float64 {
	if d.mask == nil {
		return nil
	}
	return d.depthVector(d.ImpliedDepthImage())
}

// ImpliedNormalImage returns the finite-difference normal image.
func (d *DepthMap) ImpliedNormalImage() *Image {
	if d.mask == nil {
		return nil
	}
	return d.impliedNormalImage(d.Locations())
}

// ImpliedNormalVector returns the per-point finite-difference normals.
func (d *DepthMap) ImpliedNormalVector() []r3.Vector {
	if d.mask == nil {
		return nil
	}
	return d.normalVector(d.ImpliedNormalImage())
}

// ParameterInfo describes the per-pixel depth block.
func (d *DepthMap) ParameterInfo() []ParameterSpec {
	size := 0
	if d.depth != nil {
		size = len(d.depth.Pix)
	}
	return []ParameterSpec{{Name: "locations", LearningRate: 1e-4, Size: size}}
}

// EnforceParameterBounds clamps negative depths to zero.
func (d *DepthMap) EnforceParameterBounds() {
	if d.depth == nil {
		return
	}
	changed := false
	for i, v := range d.depth.Pix {
		if v < 0 {
			d.depth.Pix[i] = 0
			changed = true
		}
	}
	if changed {
		d.touch()
	}
}
