package transform

import (
	"fmt"
	"math"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/operation"
)

// Scale multiplies vertices about the origin and records the factor in the display scale
func (h *meshHandler) Scale(o operation.Scale) (*geometry.Mesh, error) {
	out := h.mesh.MapVertices(func(v geometry.Vec3) geometry.Vec3 { return v.Scale(o.Factor) })
	out.Transform.Scale = out.Transform.Scale.Scale(o.Factor)
	return out, nil
}

func (h *meshHandler) Rotate(o operation.Rotate) (*geometry.Mesh, error) {
	axis, err := o.Axis.Index()
	if err != nil {
		return nil, err
	}
	out := h.mesh.Clone()
	r := out.Transform.Rotation
	out.Transform.Rotation = r.WithAxis(axis, r.Axis(axis)+o.Degrees*math.Pi/180)
	return out, nil
}

// Mirror negates one axis. The winding is flipped so normals stay outward.
func (h *meshHandler) Mirror(o operation.Mirror) (*geometry.Mesh, error) {
	axis, err := o.Axis.Index()
	if err != nil {
		return nil, err
	}
	out := h.mesh.MapVertices(func(v geometry.Vec3) geometry.Vec3 {
		return v.WithAxis(axis, -v.Axis(axis))
	})
	out.FlipWinding()
	return out, nil
}

func (h *meshHandler) Move(o operation.Move) (*geometry.Mesh, error) {
	out := h.mesh.Clone()
	out.Transform.Position = out.Transform.Position.Add(geometry.Vec3{X: o.X, Y: o.Y, Z: o.Z})
	return out, nil
}

func (h *meshHandler) Color(o operation.Color) (*geometry.Mesh, error) {
	c, err := geometry.ParseColor(o.Color)
	if err != nil {
		return nil, err
	}
	out := h.mesh.Clone()
	out.Color = c
	return out, nil
}

// Resize scales each requested axis so the bounding box matches the target size
func (h *meshHandler) Resize(o operation.Resize) (*geometry.Mesh, error) {
	bbox, err := geometry.CalculateBoundingBox(h.mesh)
	if err != nil {
		return nil, err
	}
	size := bbox.Size()
	targets := [3]float64{o.Width, o.Depth, o.Height}

	factors := geometry.Vec3{X: 1, Y: 1, Z: 1}
	for axis, target := range targets {
		if target == 0 {
			continue
		}
		current := size.Axis(axis)
		if current <= 0 {
			return nil, fmt.Errorf("cannot resize a flat model along axis %d", axis)
		}
		factors = factors.WithAxis(axis, target/current)
	}

	out := h.mesh.MapVertices(func(v geometry.Vec3) geometry.Vec3 { return v.Mul(factors) })
	out.Transform.Scale = out.Transform.Scale.Mul(factors)
	return out, nil
}
