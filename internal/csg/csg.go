// Package csg implements boolean operations on closed triangle meshes using
// binary space partitioning trees.
package csg

import (
	"github.com/philipparndt/modelforge/internal/geometry"
)

// Evaluator combines two closed meshes. Results keep the display transform and
// color of the first operand.
type Evaluator interface {
	Union(a, b *geometry.Mesh) (*geometry.Mesh, error)
	Subtract(a, b *geometry.Mesh) (*geometry.Mesh, error)
	Intersect(a, b *geometry.Mesh) (*geometry.Mesh, error)
}

// BSP is the default Evaluator
type BSP struct{}

// NewBSP creates a BSP evaluator
func NewBSP() *BSP {
	return &BSP{}
}

// Union returns the volume covered by a or b
func (BSP) Union(a, b *geometry.Mesh) (*geometry.Mesh, error) {
	if a.IsEmpty() {
		return withStyle(b.Clone(), a), nil
	}
	if b.IsEmpty() {
		return a.Clone(), nil
	}

	na, nb := newNode(toPolygons(a)), newNode(toPolygons(b))
	na.clipTo(nb)
	nb.clipTo(na)
	nb.invert()
	nb.clipTo(na)
	nb.invert()
	na.build(nb.allPolygons())

	return fromPolygons(na.allPolygons(), a), nil
}

// Subtract returns the volume of a not covered by b
func (BSP) Subtract(a, b *geometry.Mesh) (*geometry.Mesh, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return a.Clone(), nil
	}

	na, nb := newNode(toPolygons(a)), newNode(toPolygons(b))
	na.invert()
	na.clipTo(nb)
	nb.clipTo(na)
	nb.invert()
	nb.clipTo(na)
	nb.invert()
	na.build(nb.allPolygons())
	na.invert()

	return fromPolygons(na.allPolygons(), a), nil
}

// Intersect returns the volume covered by both a and b
func (BSP) Intersect(a, b *geometry.Mesh) (*geometry.Mesh, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return withStyle(geometry.NewMesh(a.Name, nil), a), nil
	}

	na, nb := newNode(toPolygons(a)), newNode(toPolygons(b))
	na.invert()
	nb.clipTo(na)
	nb.invert()
	na.clipTo(nb)
	nb.clipTo(na)
	na.build(nb.allPolygons())
	na.invert()

	return fromPolygons(na.allPolygons(), a), nil
}

func toPolygons(m *geometry.Mesh) []*polygon {
	out := make([]*polygon, 0, len(m.Triangles))
	for _, t := range m.Triangles {
		if p, ok := newPolygon([]geometry.Vec3{t.V[0], t.V[1], t.V[2]}); ok {
			out = append(out, p)
		}
	}
	return out
}

// fromPolygons fan-triangulates the convex polygons back into a mesh
func fromPolygons(polygons []*polygon, style *geometry.Mesh) *geometry.Mesh {
	tris := make([]geometry.Triangle, 0, len(polygons))
	for _, p := range polygons {
		for i := 2; i < len(p.vertices); i++ {
			t := geometry.Triangle{
				Normal: p.plane.normal,
				V:      [3]geometry.Vec3{p.vertices[0], p.vertices[i-1], p.vertices[i]},
			}
			if t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0])).Length() < 1e-12 {
				continue
			}
			tris = append(tris, t)
		}
	}
	return withStyle(geometry.NewMesh(style.Name, tris), style)
}

func withStyle(m, style *geometry.Mesh) *geometry.Mesh {
	m.Name = style.Name
	m.Transform = style.Transform
	m.Color = style.Color
	return m
}
