package transform

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func volume(t *testing.T, m *geometry.Mesh) float64 {
	t.Helper()
	stats, err := geometry.CalculateStats(m)
	require.NoError(t, err)
	return stats.Volume
}

func bounds(t *testing.T, m *geometry.Mesh) *geometry.BoundingBox {
	t.Helper()
	bbox, err := geometry.CalculateBoundingBox(m)
	require.NoError(t, err)
	return bbox
}

func sameVertices(a, b *geometry.Mesh, eps float64) bool {
	if len(a.Triangles) != len(b.Triangles) {
		return false
	}
	for i := range a.Triangles {
		for j := 0; j < 3; j++ {
			if !a.Triangles[i].V[j].ApproxEqual(b.Triangles[i].V[j], eps) {
				return false
			}
		}
	}
	return true
}

func TestScaleRoundTripProperty(t *testing.T) {
	d := NewDispatcher(nil, nil)
	rapid.Check(t, func(rt *rapid.T) {
		f := rapid.Float64Range(0.01, 100).Draw(rt, "factor")
		m := geometry.Box(
			rapid.Float64Range(0.1, 50).Draw(rt, "w"),
			rapid.Float64Range(0.1, 50).Draw(rt, "d"),
			rapid.Float64Range(0.1, 50).Draw(rt, "h"),
		).Translate(geometry.Vec3{X: rapid.Float64Range(-20, 20).Draw(rt, "x")})

		up, err := d.Apply(m, operation.Scale{Factor: f})
		if err != nil {
			rt.Fatal(err)
		}
		back, err := d.Apply(up, operation.Scale{Factor: 1 / f})
		if err != nil {
			rt.Fatal(err)
		}
		if !sameVertices(m, back, 1e-9*math.Max(1, f)*100) {
			rt.Fatalf("scale by %v and back changed vertices", f)
		}
	})
}

func TestMirrorInvolutionProperty(t *testing.T) {
	d := NewDispatcher(nil, nil)
	shapes := []*geometry.Mesh{
		geometry.Box(3, 4, 5),
		geometry.Sphere(4, 12, 6),
		geometry.Torus(6, 1, 8, 12),
		geometry.Pyramid(4, 7),
	}
	rapid.Check(t, func(rt *rapid.T) {
		m := rapid.SampledFrom(shapes).Draw(rt, "shape").
			Translate(geometry.Vec3{
				X: rapid.Float64Range(-10, 10).Draw(rt, "x"),
				Y: rapid.Float64Range(-10, 10).Draw(rt, "y"),
				Z: rapid.Float64Range(-10, 10).Draw(rt, "z"),
			})
		axis := rapid.SampledFrom([]operation.Axis{operation.AxisX, operation.AxisY, operation.AxisZ}).Draw(rt, "axis")

		once, err := d.Apply(m, operation.Mirror{Axis: axis})
		if err != nil {
			rt.Fatal(err)
		}
		twice, err := d.Apply(once, operation.Mirror{Axis: axis})
		if err != nil {
			rt.Fatal(err)
		}
		if !sameVertices(m, twice, 0) {
			rt.Fatalf("mirroring twice on %s changed vertices", axis)
		}
	})
}

func TestMirrorKeepsOutwardNormals(t *testing.T) {
	out, err := NewDispatcher(nil, nil).Apply(geometry.Box(1, 2, 3), operation.Mirror{Axis: operation.AxisX})
	require.NoError(t, err)

	var signed float64
	for _, tri := range out.Triangles {
		signed += tri.V[0].Dot(tri.V[1].Cross(tri.V[2])) / 6
		assert.True(t, tri.Normal.ApproxEqual(tri.ComputeNormal(), 1e-12))
	}
	assert.InDelta(t, 6, signed, 1e-9)
}

func TestBasicOperations(t *testing.T) {
	d := NewDispatcher(nil, nil)
	box := geometry.Box(10, 20, 30)

	t.Run("scale records display scale", func(t *testing.T) {
		out, err := d.Apply(box, operation.Scale{Factor: 2})
		require.NoError(t, err)
		assert.InDelta(t, 20, bounds(t, out).Width(), 1e-9)
		assert.Equal(t, geometry.Vec3{X: 2, Y: 2, Z: 2}, out.Transform.Scale)
	})

	t.Run("rotate adds radians", func(t *testing.T) {
		out, err := d.Apply(box, operation.Rotate{Axis: operation.AxisX, Degrees: 90})
		require.NoError(t, err)
		out, err = d.Apply(out, operation.Rotate{Axis: operation.AxisX, Degrees: 90})
		require.NoError(t, err)
		assert.InDelta(t, math.Pi, out.Transform.Rotation.X, 1e-12)
		assert.True(t, sameVertices(box, out, 0), "rotation is display only")
	})

	t.Run("move offsets position", func(t *testing.T) {
		out, err := d.Apply(box, operation.Move{X: 1, Z: -2})
		require.NoError(t, err)
		assert.Equal(t, geometry.Vec3{X: 1, Z: -2}, out.Transform.Position)
	})

	t.Run("color", func(t *testing.T) {
		out, err := d.Apply(box, operation.Color{Color: "red"})
		require.NoError(t, err)
		assert.Equal(t, geometry.Color{R: 255}, out.Color)

		_, err = d.Apply(box, operation.Color{Color: "ultraviolet"})
		assert.Error(t, err)
	})

	t.Run("resize one axis", func(t *testing.T) {
		out, err := d.Apply(box, operation.Resize{Width: 50})
		require.NoError(t, err)
		b := bounds(t, out)
		assert.InDelta(t, 50, b.Width(), 1e-9)
		assert.InDelta(t, 20, b.Depth(), 1e-9)
		assert.InDelta(t, 30, b.Height(), 1e-9)
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.InDelta(t, 10, bounds(t, box).Width(), 1e-12)
		assert.Equal(t, geometry.IdentityTransform(), box.Transform)
		assert.Equal(t, geometry.DefaultColor, box.Color)
	})
}

func TestAddBase(t *testing.T) {
	d := NewDispatcher(nil, nil)

	out, err := d.Apply(geometry.Box(10, 10, 10), operation.AddBase{Type: operation.BaseRectangle, Thickness: 2, Margin: 5})
	require.NoError(t, err)

	b := bounds(t, out)
	assert.InDelta(t, 20, b.Width(), 1e-9)
	assert.InDelta(t, 20, b.Depth(), 1e-9)
	assert.InDelta(t, -5-2+baseOverlap, b.MinZ, 1e-9)
	assert.InDelta(t, 1000+800-100*baseOverlap, volume(t, out), 1e-6)
}

func TestAddBaseUsesDisplayRotation(t *testing.T) {
	d := NewDispatcher(nil, nil)
	rotated, err := d.Apply(geometry.Box(10, 20, 30), operation.Rotate{Axis: operation.AxisX, Degrees: 90})
	require.NoError(t, err)

	out, err := d.Apply(rotated, operation.AddBase{Type: operation.BaseRectangle, Thickness: 1, Margin: 5})
	require.NoError(t, err)

	b := bounds(t, out)
	assert.InDelta(t, 20, b.Width(), 1e-6)
	assert.InDelta(t, 40, b.Depth(), 1e-6)
	assert.Equal(t, geometry.Vec3{}, out.Transform.Rotation)
}

func TestAddBaseShapes(t *testing.T) {
	d := NewDispatcher(nil, nil)
	for _, shape := range []operation.BaseShape{operation.BaseCircle, operation.BaseHexagon} {
		t.Run(string(shape), func(t *testing.T) {
			out, err := d.Apply(geometry.Box(10, 10, 10), operation.AddBase{Type: shape, Thickness: 2, Margin: 5})
			require.NoError(t, err)
			assert.Greater(t, volume(t, out), 1000.0)
			assert.Less(t, bounds(t, out).MinZ, -5.0)
		})
	}
}

func TestHollow(t *testing.T) {
	d := NewDispatcher(nil, nil)

	out, err := d.Apply(geometry.Box(20, 20, 20), operation.Hollow{WallThickness: 2})
	require.NoError(t, err)
	assert.InDelta(t, 8000-16*16*16, volume(t, out), 1e-6)

	_, err = d.Apply(geometry.Box(3, 20, 20), operation.Hollow{WallThickness: 2})
	assert.Error(t, err)
}

func TestAddHoles(t *testing.T) {
	d := NewDispatcher(nil, nil)

	out, err := d.Apply(geometry.Box(20, 20, 20), operation.AddHoles{Diameter: 2, Count: 2})
	require.NoError(t, err)

	holeArea := float64(holeSegments) / 2 * math.Sin(2*math.Pi/holeSegments)
	insideDepth := 20 * holeDepthRatio
	assert.InDelta(t, 8000-2*holeArea*insideDepth, volume(t, out), 1e-6)
}

func TestSupportUnderOverhang(t *testing.T) {
	d := NewDispatcher(nil, nil)

	// an upside-down pyramid balancing on its apex overhangs on every side
	inverted, err := d.Apply(geometry.Pyramid(20, 5), operation.Mirror{Axis: operation.AxisZ})
	require.NoError(t, err)

	out, err := d.Apply(inverted, operation.Support{Angle: 45, Spacing: 5, Thickness: 0.5})
	require.NoError(t, err)

	assert.Greater(t, len(out.Triangles), len(inverted.Triangles))
	assert.Greater(t, volume(t, out), volume(t, inverted))
	assert.InDelta(t, bounds(t, inverted).MinZ, bounds(t, out).MinZ, 1e-9)
}

func TestSupportWithoutOverhangIsNoop(t *testing.T) {
	box := geometry.Box(10, 10, 10)
	out, err := NewDispatcher(nil, nil).Apply(box, operation.Support{Angle: 45, Spacing: 5, Thickness: 1})
	require.NoError(t, err)
	assert.Len(t, out.Triangles, len(box.Triangles))
}

func TestSupportPillarLimits(t *testing.T) {
	d := NewDispatcher(nil, nil)

	tests := []struct {
		name string
		mesh *geometry.Mesh
		op   operation.Support
	}{
		// pillars 2mm apart with 1.5mm feet overlap, each would need its own union
		{"overlapping pillars", geometry.Sphere(20, 32, 16), operation.Support{Angle: 45, Spacing: 2, Thickness: 1}},
		{"too many pillars", geometry.Sphere(200, 96, 96), operation.Support{Angle: 45, Spacing: 2, Thickness: 0.6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Apply(tt.mesh, tt.op)
			require.ErrorIs(t, err, ErrTooComplex)
			assert.Contains(t, err.Error(), "increase the spacing")
		})
	}
}

func TestApplyRejectsUnboundedWork(t *testing.T) {
	d := NewDispatcher(nil, nil)
	box := geometry.Box(20, 20, 20)

	_, err := d.Apply(box, operation.AddHoles{Diameter: 1, Count: 1e9})
	assert.Error(t, err)

	_, err = d.Apply(box, operation.Support{Angle: 45, Spacing: 0.1, Thickness: 1})
	assert.Error(t, err)

	_, err = d.Apply(box, operation.Scale{Factor: 1e6})
	assert.Error(t, err)
}

func TestNotImplemented(t *testing.T) {
	d := NewDispatcher(nil, nil)
	box := geometry.Box(1, 1, 1)

	_, err := d.Apply(box, operation.Modify{Description: "make it prettier"})
	assert.ErrorIs(t, err, operation.ErrNotImplemented)

	_, err = d.ApplyNamed(box, "explode", json.RawMessage(`{}`))
	require.ErrorIs(t, err, operation.ErrNotImplemented)
	assert.Contains(t, err.Error(), "operation not implemented: explode")

	_, err = d.ApplyInstruction(box, nil)
	assert.ErrorIs(t, err, operation.ErrNotImplemented)
}

func TestApplyNamed(t *testing.T) {
	out, err := NewDispatcher(nil, nil).ApplyNamed(geometry.Box(1, 1, 1), "scale", json.RawMessage(`{"factor": 3}`))
	require.NoError(t, err)
	assert.InDelta(t, 3, bounds(t, out).Width(), 1e-9)
}

func TestApplyRejectsInvalid(t *testing.T) {
	d := NewDispatcher(nil, nil)
	_, err := d.Apply(geometry.Box(1, 1, 1), operation.Scale{Factor: -2})
	assert.Error(t, err)

	_, err = d.Apply(geometry.NewMesh("empty", nil), operation.Scale{Factor: 2})
	assert.ErrorIs(t, err, geometry.ErrEmptyMesh)
}
