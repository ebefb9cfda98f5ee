package location

import (
	"github.com/golang/geo/r3"
)

// Image is a dense Height×Width×Channels raster stored row-major with the
// channel index fastest.
type Image struct {
	Height   int
	Width    int
	Channels int
	Pix      []float64
}

// NewImage returns a zero-filled image.
func NewImage(height, width, channels int) *Image {
	return &Image{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]float64, height*width*channels),
	}
}

func (im *Image) offset(row, col int) int {
	return (row*im.Width + col) * im.Channels
}

// At returns channel k of pixel (row, col).
func (im *Image) At(row, col, k int) float64 {
	return im.Pix[im.offset(row, col)+k]
}

// Set stores channel k of pixel (row, col).
func (im *Image) Set(row, col, k int, v float64) {
	im.Pix[im.offset(row, col)+k] = v
}

// Vec returns the first three channels of pixel (row, col) as a vector.
func (im *Image) Vec(row, col int) r3.Vector {
	o := im.offset(row, col)
	return r3.Vector{X: im.Pix[o], Y: im.Pix[o+1], Z: im.Pix[o+2]}
}

// SetVec stores v into the first three channels of pixel (row, col).
func (im *Image) SetVec(row, col int, v r3.Vector) {
	o := im.offset(row, col)
	im.Pix[o], im.Pix[o+1], im.Pix[o+2] = v.X, v.Y, v.Z
}

// Clone returns an independent copy of the image.
func (im *Image) Clone() *Image {
	c := &Image{Height: im.Height, Width: im.Width, Channels: im.Channels, Pix: make([]float64, len(im.Pix))}
	copy(c.Pix, im.Pix)
	return c
}

// Vectors is an N×K table of per-point measurements, one row per point.
type Vectors struct {
	Count    int
	Channels int
	Data     []float64
}

// NewVectors returns a zero-filled N×K table.
func NewVectors(count, channels int) *Vectors {
	return &Vectors{Count: count, Channels: channels, Data: make([]float64, count*channels)}
}

// Row returns the slice backing row i.
func (v *Vectors) Row(i int) []float64 {
	return v.Data[i*v.Channels : (i+1)*v.Channels]
}

// FromPoints packs a point set into a three-channel table.
func FromPoints(points []r3.Vector) *Vectors {
	v := NewVectors(len(points), 3)
	for i, p := range points {
		v.Data[3*i], v.Data[3*i+1], v.Data[3*i+2] = p.X, p.Y, p.Z
	}
	return v
}

// FromScalars packs one value per point into a one-channel table.
func FromScalars(values []float64) *Vectors {
	v := NewVectors(len(values), 1)
	copy(v.Data, values)
	return v
}

// Points unpacks the first three channels of every row.
func (v *Vectors) Points() []r3.Vector {
	out := make([]r3.Vector, v.Count)
	for i := range out {
		r := v.Row(i)
		out[i] = r3.Vector{X: r[0], Y: r[1], Z: r[2]}
	}
	return out
}
