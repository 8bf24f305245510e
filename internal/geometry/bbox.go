package geometry

import (
	"errors"
	"math"
)

// ErrEmptyMesh is returned when a calculation needs at least one facet
var ErrEmptyMesh = errors.New("mesh has no triangles")

// BoundingBox represents a 3D bounding box
type BoundingBox struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Width returns the width (X dimension) of the bounding box
func (b *BoundingBox) Width() float64 {
	return b.MaxX - b.MinX
}

// Depth returns the depth (Y dimension) of the bounding box
func (b *BoundingBox) Depth() float64 {
	return b.MaxY - b.MinY
}

// Height returns the height (Z dimension, build direction) of the bounding box
func (b *BoundingBox) Height() float64 {
	return b.MaxZ - b.MinZ
}

// Min returns the lower corner
func (b *BoundingBox) Min() Vec3 { return Vec3{b.MinX, b.MinY, b.MinZ} }

// Max returns the upper corner
func (b *BoundingBox) Max() Vec3 { return Vec3{b.MaxX, b.MaxY, b.MaxZ} }

// Size returns width, depth and height as a vector
func (b *BoundingBox) Size() Vec3 {
	return Vec3{b.Width(), b.Depth(), b.Height()}
}

// Center returns the midpoint of the box
func (b *BoundingBox) Center() Vec3 {
	return Vec3{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2, (b.MinZ + b.MaxZ) / 2}
}

// Extend grows the box to contain p
func (b *BoundingBox) Extend(p Vec3) {
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MinZ = math.Min(b.MinZ, p.Z)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
	b.MaxZ = math.Max(b.MaxZ, p.Z)
}

// Union returns a box containing both boxes
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	b.Extend(o.Min())
	b.Extend(o.Max())
	return b
}

// CalculateBoundingBox calculates the bounding box of the mesh vertices
func CalculateBoundingBox(m *Mesh) (*BoundingBox, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}

	first := m.Triangles[0].V[0]
	bbox := &BoundingBox{
		MinX: first.X, MinY: first.Y, MinZ: first.Z,
		MaxX: first.X, MaxY: first.Y, MaxZ: first.Z,
	}

	for _, t := range m.Triangles {
		for _, v := range t.V {
			bbox.Extend(v)
		}
	}

	return bbox, nil
}
