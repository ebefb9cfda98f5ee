package location

import (
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/closedform/internal/monitoring"
)

const testDepth = 5.0

func testCalibration() Calibration {
	return NewPinholeCalibration(100, 100, 2, 2, IdentityPose)
}

// interiorMask selects every pixel except the last row and column.
func interiorMask(h, w int) *Mask {
	m := NewMask(h, w)
	for row := 0; row < h-1; row++ {
		for col := 0; col < w-1; col++ {
			m.Set(row, col, true)
		}
	}
	return m
}

func constantDepth(h, w int, v float64) *Image {
	img := NewImage(h, w, 1)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func newTestDepthMap(t *testing.T) *DepthMap {
	t.Helper()
	d := NewDepthMap()
	require.NoError(t, d.Initialize(constantDepth(6, 7, testDepth), interiorMask(6, 7), testCalibration()))
	return d
}

func TestNewFactory(t *testing.T) {
	p, err := New("depth map")
	require.NoError(t, err)
	assert.Equal(t, KindDepthMap, p.Kind())

	p, err = New("plane")
	require.NoError(t, err)
	assert.Equal(t, KindPlane, p.Kind())

	_, err = New("mesh")
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "mesh")
}

func TestInitializeRejectsMaskOnBorder(t *testing.T) {
	tests := []struct {
		name string
		set  [2]int
	}{
		{"last row", [2]int{5, 1}},
		{"last column", [2]int{2, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := interiorMask(6, 7)
			m.Set(tt.set[0], tt.set[1], true)
			for _, kind := range []string{"depth map", "plane"} {
				p, err := New(kind)
				require.NoError(t, err)
				err = p.Initialize(constantDepth(6, 7, testDepth), m, testCalibration())
				assert.ErrorIs(t, err, ErrConfiguration, kind)
			}
		})
	}
}

func TestInitializeRejectsBadInputs(t *testing.T) {
	d := NewDepthMap()
	err := d.Initialize(constantDepth(5, 5, 1), interiorMask(6, 7), testCalibration())
	assert.ErrorIs(t, err, ErrConfiguration)

	bad := testCalibration()
	bad.InvRt[0] = 3
	err = d.Initialize(constantDepth(6, 7, 1), interiorMask(6, 7), bad)
	assert.ErrorIs(t, err, ErrConfiguration)

	assert.Nil(t, d.Locations(), "uninitialized instance exposes no points")
}

func TestDepthMapLocations(t *testing.T) {
	d := newTestDepthMap(t)
	pts := d.Locations()
	require.Len(t, pts, 5*6)
	assert.Equal(t, 30, d.PointCount())

	// first point is pixel (0,0): ray (-0.02, -0.02, 1) at depth 5
	assert.InDelta(t, -0.1, pts[0].X, 1e-12)
	assert.InDelta(t, -0.1, pts[0].Y, 1e-12)
	assert.InDelta(t, testDepth, pts[0].Z, 1e-12)

	// row-major order: second point is pixel (0,1)
	assert.InDelta(t, (1.0-2.0)/100*testDepth, pts[1].X, 1e-12)
	assert.InDelta(t, pts[0].Y, pts[1].Y, 1e-12)

	for _, z := range d.ImpliedDepthVector() {
		assert.InDelta(t, testDepth, z, 1e-12)
	}
}

func TestImpliedNormalsFrontoParallel(t *testing.T) {
	for _, kind := range []string{"depth map", "plane"} {
		t.Run(kind, func(t *testing.T) {
			p, err := New(kind)
			require.NoError(t, err)
			require.NoError(t, p.Initialize(constantDepth(6, 7, testDepth), interiorMask(6, 7), testCalibration()))

			normals := p.ImpliedNormalVector()
			require.Len(t, normals, p.PointCount())
			for i, n := range normals {
				assert.InDelta(t, 1.0, n.Norm(), 1e-9, "normal %d", i)
				assert.InDelta(t, -1.0, n.Z, 1e-9, "normal %d faces the camera", i)
			}

			img := p.ImpliedNormalImage()
			require.Equal(t, 3, img.Channels)
			for row := 0; row < img.Height; row++ {
				for col := 0; col < img.Width; col++ {
					if !p.Mask().At(row, col) {
						assert.Equal(t, r3.Vector{}, img.Vec(row, col))
					}
				}
			}
		})
	}
}

func TestImpliedNormalsRepairIsolatedPixels(t *testing.T) {
	// pixel (0,0) is masked but has no masked down neighbour, so it must be
	// repaired from its window.
	rows := [][]bool{
		{true, true, true, true, false},
		{false, true, true, true, false},
		{false, true, true, true, false},
		{false, true, true, true, false},
		{false, false, false, false, false},
	}
	m, err := MaskFromRows(rows)
	require.NoError(t, err)
	d := NewDepthMap()
	require.NoError(t, d.Initialize(constantDepth(5, 5, testDepth), m, testCalibration()))

	for _, n := range d.ImpliedNormalVector() {
		assert.InDelta(t, 1.0, n.Norm(), 1e-9)
		assert.InDelta(t, -1.0, n.Z, 1e-9)
	}
}

func TestImpliedNormalsFallBackToGlobalMean(t *testing.T) {
	// a 4x4 block plus a lone pixel whose 5x5 window holds no valid normal
	m := NewMask(12, 12)
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			m.Set(row, col, true)
		}
	}
	m.Set(9, 9, true)
	d := NewDepthMap()
	require.NoError(t, d.Initialize(constantDepth(12, 12, testDepth), m, testCalibration()))

	img := d.ImpliedNormalImage()
	lone := img.Vec(9, 9)
	assert.InDelta(t, 1.0, lone.Norm(), 1e-9)
	assert.InDelta(t, 0.0, lone.X, 1e-9)
	assert.InDelta(t, 0.0, lone.Y, 1e-9)
	assert.InDelta(t, -1.0, lone.Z, 1e-9)

	// the camera-facing direction is visibly off axis at this pixel
	p := d.Locations()[d.PointCount()-1]
	facing := d.Calibration().CameraPosition().Sub(p).Normalize()
	assert.Greater(t, math.Abs(facing.X), 0.01)
	assert.Greater(t, lone.Sub(facing).Norm(), 0.01)
}

func TestImpliedNormalsTiltedPlane(t *testing.T) {
	// depth growing with the column tilts the surface about the y axis
	depth := NewImage(6, 7, 1)
	for row := 0; row < 6; row++ {
		for col := 0; col < 7; col++ {
			depth.Set(row, col, 0, testDepth+0.01*float64(col))
		}
	}
	d := NewDepthMap()
	require.NoError(t, d.Initialize(depth, interiorMask(6, 7), testCalibration()))
	for _, n := range d.ImpliedNormalVector() {
		assert.InDelta(t, 1.0, n.Norm(), 1e-9)
		assert.Greater(t, math.Abs(n.X), 0.1, "tilt shows up in the x component")
		assert.Less(t, n.Z, 0.0)
	}
}

func TestCreateImageAndVectorRoundTrip(t *testing.T) {
	d := newTestDepthMap(t)
	v := NewVectors(d.PointCount(), 2)
	for i := range v.Data {
		v.Data[i] = float64(i + 1)
	}

	img := d.CreateImageFilled(v, -7)
	assert.Equal(t, -7.0, img.At(5, 6, 1), "unmasked pixel holds the filler")
	assert.Equal(t, 0.0, d.CreateImage(v).At(5, 6, 0))

	back, err := d.CreateVector(img)
	require.NoError(t, err)
	if diff := cmp.Diff(v, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// forward-difference shaped input drops the last row and column
	small := NewImage(5, 6, 2)
	for row := 0; row < 5; row++ {
		for col := 0; col < 6; col++ {
			small.Set(row, col, 0, img.At(row, col, 0))
			small.Set(row, col, 1, img.At(row, col, 1))
		}
	}
	back, err = d.CreateVector(small)
	require.NoError(t, err)
	assert.Equal(t, v.Data, back.Data)

	_, err = d.CreateVector(NewImage(4, 4, 1))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCreateImagePanicsOnCountMismatch(t *testing.T) {
	d := newTestDepthMap(t)
	assert.Panics(t, func() { d.CreateImage(NewVectors(3, 1)) })
}

func TestUninitializedScatterGather(t *testing.T) {
	for _, p := range []Parametrization{NewDepthMap(), NewPlane()} {
		t.Run(string(p.Kind()), func(t *testing.T) {
			_, err := p.CreateVector(NewImage(6, 7, 1))
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Panics(t, func() { p.CreateImage(NewVectors(0, 1)) })
		})
	}

	d := newTestDepthMap(t)
	_, err := d.CreateVector(nil)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Panics(t, func() { d.CreateImageFilled(nil, 1) })
}

func TestCacheInvalidatedOnMutation(t *testing.T) {
	d := newTestDepthMap(t)
	before := d.Locations()
	v0 := d.Version()
	assert.Same(t, &before[0], &d.Locations()[0], "unchanged parameters reuse the cache")

	require.NoError(t, d.SetDepth(constantDepth(6, 7, 2*testDepth)))
	assert.Greater(t, d.Version(), v0)
	after := d.Locations()
	assert.InDelta(t, 2*testDepth, after[0].Z, 1e-12)
	for _, z := range d.ImpliedDepthVector() {
		assert.InDelta(t, 2*testDepth, z, 1e-12)
	}

	assert.ErrorIs(t, d.SetDepth(NewImage(2, 2, 1)), ErrShapeMismatch)
}

func TestEnforceParameterBounds(t *testing.T) {
	d := newTestDepthMap(t)
	neg := constantDepth(6, 7, testDepth)
	neg.Set(1, 1, 0, -3)
	require.NoError(t, d.SetDepth(neg))
	v := d.Version()

	d.EnforceParameterBounds()
	assert.Equal(t, 0.0, d.Depth().At(1, 1, 0))
	assert.Greater(t, d.Version(), v)

	v = d.Version()
	d.EnforceParameterBounds()
	assert.Equal(t, v, d.Version(), "no change, no invalidation")

	info := d.ParameterInfo()
	require.Len(t, info, 1)
	assert.Equal(t, ParameterSpec{Name: "locations", LearningRate: 1e-4, Size: 42}, info[0])
}

func TestPlaneFitMatchesDepthMap(t *testing.T) {
	pl := NewPlane()
	require.NoError(t, pl.Initialize(constantDepth(6, 7, testDepth), interiorMask(6, 7), testCalibration()))

	p := pl.Plane()
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.InDelta(t, 1/testDepth, p.Z, 1e-9)

	d := newTestDepthMap(t)
	approx := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff(d.Locations(), pl.Locations(), approx); diff != "" {
		t.Errorf("plane locations differ from depth map (-want +got):\n%s", diff)
	}
	for _, z := range pl.ImpliedDepthVector() {
		assert.InDelta(t, testDepth, z, 1e-9)
	}
	assert.Zero(t, pl.ClampedRays())
	assert.Equal(t, 3, pl.ParameterInfo()[0].Size)
}

func TestPlaneRejectsDegenerateInput(t *testing.T) {
	m := NewMask(4, 4)
	m.Set(0, 0, true)
	m.Set(0, 1, true)
	pl := NewPlane()
	err := pl.Initialize(constantDepth(4, 4, testDepth), m, testCalibration())
	assert.ErrorIs(t, err, ErrConfiguration)

	pl = NewPlane()
	require.NoError(t, pl.Initialize(constantDepth(6, 7, testDepth), interiorMask(6, 7), testCalibration()))
	assert.ErrorIs(t, pl.SetPlane(r3.Vector{}), ErrConfiguration)
}

func TestPlaneClampsParallelRays(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()

	pl := NewPlane()
	require.NoError(t, pl.Initialize(constantDepth(6, 7, testDepth), interiorMask(6, 7), testCalibration()))

	// the plane x = 1 is parallel to every ray through column cx = 2
	require.NoError(t, pl.SetPlane(r3.Vector{X: 1}))
	pts := pl.Locations()
	assert.Equal(t, 5, pl.ClampedRays(), "one clamped ray per row in column 2")
	for i, x := range pts {
		assert.False(t, math.IsNaN(x.X) || math.IsInf(x.X, 0), "point %d", i)
	}
	logs := rec.Lines()
	require.NotEmpty(t, logs)
	assert.True(t, strings.HasPrefix(logs[0], "WARNING:"))

	// columns right of cx intersect x = 1 at depth 100/(col-2)
	assert.InDelta(t, 1.0, pts[3].X, 1e-9)
	assert.InDelta(t, 100.0, pts[3].Z, 1e-9)
}

func TestSnapshotRoundTrip(t *testing.T) {
	d := newTestDepthMap(t)
	tilted := constantDepth(6, 7, testDepth)
	tilted.Set(2, 3, 0, 4.5)
	require.NoError(t, d.SetDepth(tilted))

	pl := NewPlane()
	require.NoError(t, pl.Initialize(tilted, interiorMask(6, 7), testCalibration()))

	for _, p := range []Parametrization{d, pl} {
		t.Run(string(p.Kind()), func(t *testing.T) {
			blob, err := p.Serialize()
			require.NoError(t, err)

			restored, err := Restore(blob)
			require.NoError(t, err)
			assert.Equal(t, p.Kind(), restored.Kind())
			assert.Equal(t, p.PointCount(), restored.PointCount())
			assert.Equal(t, p.Calibration(), restored.Calibration())
			if diff := cmp.Diff(p.Locations(), restored.Locations()); diff != "" {
				t.Errorf("restored locations differ (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(p.ImpliedNormalVector(), restored.ImpliedNormalVector()); diff != "" {
				t.Errorf("restored normals differ (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSerializeErrors(t *testing.T) {
	_, err := NewDepthMap().Serialize()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Restore(nil)
	assert.Error(t, err)

	_, err = Restore([]byte("not a snapshot"))
	assert.Error(t, err)

	blob, err := encodeSnapshot(&snapshot{Kind: "mesh"})
	require.NoError(t, err)
	_, err = Restore(blob)
	assert.ErrorIs(t, err, ErrConfiguration)
}

// tamper re-encodes a valid serialized parametrization after edit.
func tamper(t *testing.T, p Parametrization, edit func(*snapshot)) []byte {
	t.Helper()
	blob, err := p.Serialize()
	require.NoError(t, err)
	s, err := decodeSnapshot(blob)
	require.NoError(t, err)
	edit(s)
	blob, err = encodeSnapshot(s)
	require.NoError(t, err)
	return blob
}

func TestRestoreValidatesSnapshot(t *testing.T) {
	d := newTestDepthMap(t)
	pl := NewPlane()
	require.NoError(t, pl.Initialize(constantDepth(6, 7, testDepth), interiorMask(6, 7), testCalibration()))

	tests := []struct {
		name string
		p    Parametrization
		edit func(*snapshot)
	}{
		{"depth map mask on border", d, func(s *snapshot) { s.Mask[len(s.Mask)-1] = true }},
		{"depth map singular intrinsics", d, func(s *snapshot) { s.InvK = [9]float64{} }},
		{"plane mask on border", pl, func(s *snapshot) { s.Mask[s.Width-1] = true }},
		{"plane singular pose", pl, func(s *snapshot) { s.InvRt = [16]float64{} }},
		{"plane zero parameter", pl, func(s *snapshot) { s.Plane = [3]float64{} }},
		{"plane too few points", pl, func(s *snapshot) {
			for i := range s.Mask {
				s.Mask[i] = false
			}
			s.Mask[0], s.Mask[1] = true, true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tamper(t, tt.p, tt.edit))
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}

	// the untouched snapshots still restore
	for _, p := range []Parametrization{d, pl} {
		_, err := Restore(tamper(t, p, func(*snapshot) {}))
		assert.NoError(t, err)
	}
}
