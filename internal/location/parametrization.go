package location

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Kind names a parametrization variant.
type Kind string

const (
	// KindDepthMap stores one free depth per masked pixel.
	KindDepthMap Kind = "depth map"
	// KindPlane stores one shared plane p with p·x = 1 for every point x.
	KindPlane Kind = "plane"
)

// ParameterSpec describes one free parameter block for an external
// optimizer.
type ParameterSpec struct {
	Name         string
	LearningRate float64
	Size         int
}

// Parametrization is the capability set shared by the location variants.
// The set of implementations is closed: DepthMap and Plane.
//
// Slices and images returned by the accessors are shared with the cache and
// must not be modified by callers. Every method except Kind and Initialize
// requires a successful Initialize first; CreateVector reports a missing
// mask as ErrConfiguration and CreateImage panics with it.
type Parametrization interface {
	Kind() Kind
	Initialize(depth *Image, mask *Mask, calib Calibration) error

	Locations() []r3.Vector
	PointCount() int
	CreateImage(v *Vectors) *Image
	CreateImageFilled(v *Vectors, filler float64) *Image
	CreateVector(img *Image) (*Vectors, error)

	ImpliedDepthImage() *Image
	ImpliedDepthVector() []float64
	ImpliedNormalImage() *Image
	ImpliedNormalVector() []r3.Vector

	Mask() *Mask
	Calibration() Calibration
	ParameterInfo() []ParameterSpec
	EnforceParameterBounds()
	Serialize() ([]byte, error)
	Version() uint64

	sealed()
}

// New returns an uninitialized parametrization of the requested kind.
func New(kind string) (Parametrization, error) {
	switch Kind(kind) {
	case KindDepthMap:
		return NewDepthMap(), nil
	case KindPlane:
		return NewPlane(), nil
	default:
		return nil, fmt.Errorf("%w: location parametrization %q is not supported", ErrConfiguration, kind)
	}
}

// base carries the state and behaviour common to both variants.
type base struct {
	mask    *Mask
	calib   Calibration
	count   int
	version uint64

	locations   cached[[]r3.Vector]
	depthImage  cached[*Image]
	depthVec    cached[[]float64]
	normalImage cached[*Image]
	normalVec   cached[[]r3.Vector]
}

func (b *base) sealed() {}

// setup validates and stores the shared inputs. The mask is cloned.
func (b *base) setup(depth *Image, mask *Mask, calib Calibration) error {
	if depth == nil || mask == nil {
		return fmt.Errorf("%w: depth and mask are required", ErrConfiguration)
	}
	if depth.Channels != 1 {
		return fmt.Errorf("%w: depth must have one channel, got %d", ErrConfiguration, depth.Channels)
	}
	if depth.Height != mask.Height || depth.Width != mask.Width {
		return fmt.Errorf("%w: depth is %dx%d but mask is %dx%d",
			ErrConfiguration, depth.Height, depth.Width, mask.Height, mask.Width)
	}
	if err := mask.Validate(); err != nil {
		return err
	}
	if err := calib.Validate(); err != nil {
		return err
	}
	b.mask = mask.Clone()
	b.calib = calib
	b.count = b.mask.Count()
	b.touch()
	return nil
}

// touch invalidates every cached derivation.
func (b *base) touch() {
	b.version++
}

// Version returns the parameter version; it changes on every mutation.
func (b *base) Version() uint64 {
	return b.version
}

// PointCount returns the number of masked pixels.
func (b *base) PointCount() int {
	return b.count
}

// Mask returns the parametrization's mask.
func (b *base) Mask() *Mask {
	return b.mask
}

// Calibration returns the calibration given at initialization.
func (b *base) Calibration() Calibration {
	return b.calib
}

// CreateImage scatters per-point rows into masked pixels, zero elsewhere.
func (b *base) CreateImage(v *Vectors) *Image {
	return b.CreateImageFilled(v, 0)
}

// CreateImageFilled scatters per-point rows into masked pixels and fills
// every other pixel with filler. It panics when v does not hold one row per
// point, like gonum does on dimension mismatch.
func (b *base) CreateImageFilled(v *Vectors, filler float64) *Image {
	if b.mask == nil {
		panic(fmt.Errorf("%w: parametrization is not initialized", ErrConfiguration))
	}
	if v == nil {
		panic(fmt.Errorf("%w: no vectors to scatter", ErrShapeMismatch))
	}
	if v.Count != b.count {
		panic(fmt.Errorf("%w: %d rows for %d points", ErrShapeMismatch, v.Count, b.count))
	}
	img := NewImage(b.mask.Height, b.mask.Width, v.Channels)
	if filler != 0 {
		for i := range img.Pix {
			img.Pix[i] = filler
		}
	}
	n := 0
	for row := 0; row < b.mask.Height; row++ {
		for col := 0; col < b.mask.Width; col++ {
			if !b.mask.At(row, col) {
				continue
			}
			copy(img.Pix[img.offset(row, col):img.offset(row, col)+v.Channels], v.Row(n))
			n++
		}
	}
	return img
}

// CreateVector gathers masked pixels of img into per-point rows. img must
// match the mask shape or be one row and one column smaller (the output
// shape of forward differences).
func (b *base) CreateVector(img *Image) (*Vectors, error) {
	if b.mask == nil {
		return nil, fmt.Errorf("%w: parametrization is not initialized", ErrConfiguration)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: image is required", ErrConfiguration)
	}
	var h, w int
	switch {
	case img.Height == b.mask.Height && img.Width == b.mask.Width:
		h, w = b.mask.Height, b.mask.Width
	case img.Height+1 == b.mask.Height && img.Width+1 == b.mask.Width:
		h, w = img.Height, img.Width
	default:
		return nil, fmt.Errorf("%w: image %dx%d does not fit mask %dx%d",
			ErrShapeMismatch, img.Height, img.Width, b.mask.Height, b.mask.Width)
	}
	out := NewVectors(b.count, img.Channels)
	n := 0
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if !b.mask.At(row, col) {
				continue
			}
			o := img.offset(row, col)
			copy(out.Row(n), img.Pix[o:o+img.Channels])
			n++
		}
	}
	return out, nil
}

// projectedDepth computes the camera-space depth image of a point set.
func (b *base) projectedDepth(points []r3.Vector) *Image {
	img := NewImage(b.mask.Height, b.mask.Width, 1)
	n := 0
	for row := 0; row < b.mask.Height; row++ {
		for col := 0; col < b.mask.Width; col++ {
			if !b.mask.At(row, col) {
				continue
			}
			img.Set(row, col, 0, b.calib.CameraDepth(points[n]))
			n++
		}
	}
	return img
}

func (b *base) impliedNormalImage(points []r3.Vector) *Image {
	return b.normalImage.get(b.version, func() *Image {
		return impliedNormals(b.mask, b.CreateImage(FromPoints(points)), b.calib.CameraPosition())
	})
}

func (b *base) depthVector(img *Image) []float64 {
	return b.depthVec.get(b.version, func() []float64 {
		v, err := b.CreateVector(img)
		if err != nil {
			// img is always built on the mask grid
			panic(err)
		}
		return v.Data
	})
}

func (b *base) normalVector(img *Image) []r3.Vector {
	return b.normalVec.get(b.version, func() []r3.Vector {
		v, err := b.CreateVector(img)
		if err != nil {
			panic(err)
		}
		return v.Points()
	})
}
