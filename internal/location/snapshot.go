package location

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"github.com/golang/geo/r3"
)

// snapshot is the serialized form of a parametrization: its free parameters
// together with the mask and calibration they are defined on.
type snapshot struct {
	Kind   Kind
	Height int
	Width  int
	Mask   []bool
	InvK   [9]float64
	InvRt  [16]float64
	Depth  []float64
	Plane  [3]float64
}

func encodeSnapshot(s *snapshot) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(s); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(blob []byte) (*snapshot, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty location snapshot")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var s snapshot
	if err := gob.NewDecoder(gz).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode location snapshot: %w", err)
	}
	if len(s.Mask) != s.Height*s.Width {
		return nil, fmt.Errorf("%w: snapshot mask has %d cells for %dx%d", ErrShapeMismatch, len(s.Mask), s.Height, s.Width)
	}
	return &s, nil
}

func (b *base) snapshot(kind Kind) (*snapshot, error) {
	if b.mask == nil {
		return nil, fmt.Errorf("%w: cannot serialize an uninitialized parametrization", ErrConfiguration)
	}
	return &snapshot{
		Kind:   kind,
		Height: b.mask.Height,
		Width:  b.mask.Width,
		Mask:   b.mask.Cells(),
		InvK:   b.calib.InvK,
		InvRt:  b.calib.InvRt,
	}, nil
}

// restoreBase applies the same mask and calibration checks as Initialize.
func (s *snapshot) restoreBase(b *base) error {
	m := NewMask(s.Height, s.Width)
	copy(m.cells, s.Mask)
	if err := m.Validate(); err != nil {
		return fmt.Errorf("restore %s: %w", s.Kind, err)
	}
	calib := Calibration{InvK: s.InvK, InvRt: s.InvRt}
	if err := calib.Validate(); err != nil {
		return fmt.Errorf("restore %s: %w", s.Kind, err)
	}
	b.mask = m
	b.calib = calib
	b.count = m.Count()
	b.touch()
	return nil
}

// Serialize encodes the depth map, mask and calibration as a gob+gzip blob.
func (d *DepthMap) Serialize() ([]byte, error) {
	s, err := d.snapshot(KindDepthMap)
	if err != nil {
		return nil, err
	}
	s.Depth = append([]float64(nil), d.depth.Pix...)
	return encodeSnapshot(s)
}

// Serialize encodes the plane parameter, mask and calibration as a gob+gzip
// blob.
func (pl *Plane) Serialize() ([]byte, error) {
	s, err := pl.snapshot(KindPlane)
	if err != nil {
		return nil, err
	}
	s.Plane = [3]float64{pl.p.X, pl.p.Y, pl.p.Z}
	return encodeSnapshot(s)
}

// Restore rebuilds a parametrization of the serialized kind.
func Restore(blob []byte) (Parametrization, error) {
	s, err := decodeSnapshot(blob)
	if err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindDepthMap:
		if len(s.Depth) != s.Height*s.Width {
			return nil, fmt.Errorf("%w: snapshot depth has %d values for %dx%d", ErrShapeMismatch, len(s.Depth), s.Height, s.Width)
		}
		d := NewDepthMap()
		if err := s.restoreBase(&d.base); err != nil {
			return nil, err
		}
		d.depth = &Image{Height: s.Height, Width: s.Width, Channels: 1, Pix: s.Depth}
		return d, nil
	case KindPlane:
		pl := NewPlane()
		if err := s.restoreBase(&pl.base); err != nil {
			return nil, err
		}
		if pl.count < 3 {
			return nil, fmt.Errorf("%w: a plane needs at least 3 masked pixels, got %d", ErrConfiguration, pl.count)
		}
		pl.p = r3.Vector{X: s.Plane[0], Y: s.Plane[1], Z: s.Plane[2]}
		if pl.p == (r3.Vector{}) {
			return nil, fmt.Errorf("%w: snapshot plane parameter is zero", ErrConfiguration)
		}
		pl.cacheRays()
		return pl, nil
	default:
		return nil, fmt.Errorf("%w: location parametrization %q is not supported", ErrConfiguration, s.Kind)
	}
}
