package transform

import (
	"fmt"
	"math"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/operation"
)

// Tuning constants for generated geometry. These are empirical.
const (
	baseOverlap         = 0.01 // base plate rises into the model so the union merges
	circleBaseSegments  = 32
	hexagonBaseSegments = 6
	bedTolerance        = 0.001 // points this close to the bed need no pillar
	pillarSegments      = 8
	pillarFootScale     = 1.5
	maxPillars          = 400 // disjoint pillars are appended, so they are cheap
	maxFusedPillars     = 24  // overlapping pillars each cost a boolean union
	holeSegments        = 16
	holeRingRatio       = 0.3  // ring radius as a share of the smaller footprint side
	holeDepthRatio      = 0.25 // holes reach this share of the model height
	holeBelowBed        = 1.0
)

// solidInput returns the mesh with its display rotation applied to the vertices,
// so generated geometry lines up with the build direction
func (h *meshHandler) solidInput() (*geometry.Mesh, *geometry.BoundingBox, error) {
	m := h.mesh
	if m.Transform.Rotation != (geometry.Vec3{}) {
		rot := geometry.RotationMatrix(m.Transform.Rotation.X, m.Transform.Rotation.Y, m.Transform.Rotation.Z)
		m = m.MapVertices(rot.Apply)
		m.Transform.Rotation = geometry.Vec3{}
	}
	bbox, err := geometry.CalculateBoundingBox(m)
	if err != nil {
		return nil, nil, err
	}
	return m, bbox, nil
}

// AddBase unions a plate sized from the footprint plus margin under the model
func (h *meshHandler) AddBase(o operation.AddBase) (*geometry.Mesh, error) {
	m, bbox, err := h.solidInput()
	if err != nil {
		return nil, err
	}

	var plate *geometry.Mesh
	radius := math.Max(bbox.Width(), bbox.Depth())/2 + o.Margin
	switch o.Type {
	case operation.BaseRectangle:
		plate = geometry.Box(bbox.Width()+2*o.Margin, bbox.Depth()+2*o.Margin, o.Thickness)
	case operation.BaseCircle:
		plate = geometry.Cylinder(radius, o.Thickness, circleBaseSegments)
	case operation.BaseHexagon:
		plate = geometry.Cylinder(radius, o.Thickness, hexagonBaseSegments)
	default:
		return nil, fmt.Errorf("unknown base type %q", o.Type)
	}

	center := bbox.Center()
	plate = plate.Translate(geometry.Vec3{X: center.X, Y: center.Y, Z: bbox.MinZ - o.Thickness/2 + baseOverlap})
	return h.eval.Union(m, plate)
}

// Hollow subtracts a copy shrunk about the bounding box center so walls are
// roughly WallThickness thick
func (h *meshHandler) Hollow(o operation.Hollow) (*geometry.Mesh, error) {
	m, bbox, err := h.solidInput()
	if err != nil {
		return nil, err
	}

	size := bbox.Size()
	var factors geometry.Vec3
	for axis := 0; axis < 3; axis++ {
		s := size.Axis(axis)
		inner := s - 2*o.WallThickness
		if inner <= 0 {
			return nil, fmt.Errorf("model is too thin to hollow with %gmm walls", o.WallThickness)
		}
		factors = factors.WithAxis(axis, inner/s)
	}

	center := bbox.Center()
	inner := m.MapVertices(func(v geometry.Vec3) geometry.Vec3 {
		return v.Sub(center).Mul(factors).Add(center)
	})
	return h.eval.Subtract(m, inner)
}

type gridCell struct{ x, y int64 }

// Support unions tapered pillars from the bed up to grid-snapped overhang points
func (h *meshHandler) Support(o operation.Support) (*geometry.Mesh, error) {
	m, bbox, err := h.solidInput()
	if err != nil {
		return nil, err
	}

	// a facet needs support when its normal points further down than the overhang angle allows
	threshold := math.Sin(o.Angle * math.Pi / 180)
	tops := map[gridCell]geometry.Vec3{}
	for _, t := range m.Triangles {
		n := t.ComputeNormal()
		if -n.Z <= threshold {
			continue
		}
		c := t.Centroid()
		if c.Z <= bbox.MinZ+bedTolerance {
			continue
		}
		cell := gridCell{int64(math.Round(c.X / o.Spacing)), int64(math.Round(c.Y / o.Spacing))}
		if prev, ok := tops[cell]; !ok || c.Z < prev.Z {
			tops[cell] = geometry.Vec3{X: float64(cell.x) * o.Spacing, Y: float64(cell.y) * o.Spacing, Z: c.Z}
		}
	}
	if len(tops) == 0 {
		return m.Clone(), nil
	}

	// pillars further apart than their feet cannot touch and are merged without booleans
	disjoint := o.Spacing > 2*pillarFootScale*o.Thickness
	limit := maxPillars
	if !disjoint {
		limit = maxFusedPillars
	}
	if len(tops) > limit {
		return nil, fmt.Errorf("%w: %d support pillars exceed the limit of %d, increase the spacing",
			ErrTooComplex, len(tops), limit)
	}
	pillars := geometry.NewMesh("supports", nil)
	for _, top := range tops {
		height := top.Z - bbox.MinZ
		pillar := geometry.Frustum(o.Thickness*pillarFootScale, o.Thickness, height, pillarSegments).
			Translate(geometry.Vec3{X: top.X, Y: top.Y, Z: bbox.MinZ + height/2})
		if disjoint {
			pillars.Append(pillar)
			continue
		}
		if pillars, err = h.eval.Union(pillars, pillar); err != nil {
			return nil, err
		}
	}

	return h.eval.Union(m, pillars)
}

// AddHoles subtracts evenly spaced vertical cylinders through the lower part of the model
func (h *meshHandler) AddHoles(o operation.AddHoles) (*geometry.Mesh, error) {
	m, bbox, err := h.solidInput()
	if err != nil {
		return nil, err
	}

	center := bbox.Center()
	ring := math.Min(bbox.Width(), bbox.Depth()) * holeRingRatio
	depth := bbox.Height()*holeDepthRatio + holeBelowBed
	zCenter := bbox.MinZ - holeBelowBed + depth/2

	out := m
	for i := 0; i < o.Count; i++ {
		angle := float64(i) / float64(o.Count) * 2 * math.Pi
		hole := geometry.Cylinder(o.Diameter/2, depth, holeSegments).Translate(geometry.Vec3{
			X: center.X + ring*math.Cos(angle),
			Y: center.Y + ring*math.Sin(angle),
			Z: zCenter,
		})
		if out, err = h.eval.Subtract(out, hole); err != nil {
			return nil, err
		}
	}
	return out, nil
}
