package csg

import "github.com/philipparndt/modelforge/internal/geometry"

// epsilon is the tolerance used to classify points against planes
const epsilon = 1e-5

const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = 3
)

type plane struct {
	normal geometry.Vec3
	w      float64
}

func planeFromPoints(a, b, c geometry.Vec3) (plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Length() < 1e-12 {
		return plane{}, false
	}
	n = n.Normalize()
	return plane{normal: n, w: n.Dot(a)}, true
}

func (p plane) flipped() plane {
	return plane{normal: p.normal.Negate(), w: -p.w}
}

// polygon is a convex planar polygon
type polygon struct {
	vertices []geometry.Vec3
	plane    plane
}

func newPolygon(vertices []geometry.Vec3) (*polygon, bool) {
	pl, ok := planeFromPoints(vertices[0], vertices[1], vertices[2])
	if !ok {
		return nil, false
	}
	return &polygon{vertices: vertices, plane: pl}, true
}

func (p *polygon) clone() *polygon {
	v := make([]geometry.Vec3, len(p.vertices))
	copy(v, p.vertices)
	return &polygon{vertices: v, plane: p.plane}
}

func (p *polygon) flip() {
	for i, j := 0, len(p.vertices)-1; i < j; i, j = i+1, j-1 {
		p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i]
	}
	p.plane = p.plane.flipped()
}

// split sorts poly into the four buckets relative to pl, splitting it when it spans the plane
func (pl plane) split(poly *polygon, coplanarFront, coplanarBack, fronts, backs *[]*polygon) {
	polygonType := 0
	types := make([]int, len(poly.vertices))
	for i, v := range poly.vertices {
		t := pl.normal.Dot(v) - pl.w
		typ := coplanar
		if t < -epsilon {
			typ = back
		} else if t > epsilon {
			typ = front
		}
		polygonType |= typ
		types[i] = typ
	}

	switch polygonType {
	case coplanar:
		if pl.normal.Dot(poly.plane.normal) > 0 {
			*coplanarFront = append(*coplanarFront, poly)
		} else {
			*coplanarBack = append(*coplanarBack, poly)
		}
	case front:
		*fronts = append(*fronts, poly)
	case back:
		*backs = append(*backs, poly)
	case spanning:
		var f, b []geometry.Vec3
		n := len(poly.vertices)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.vertices[i], poly.vertices[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				b = append(b, vi)
			}
			if ti|tj == spanning {
				t := (pl.w - pl.normal.Dot(vi)) / pl.normal.Dot(vj.Sub(vi))
				v := vi.Lerp(vj, t)
				f = append(f, v)
				b = append(b, v)
			}
		}
		if len(f) >= 3 {
			*fronts = append(*fronts, &polygon{vertices: f, plane: poly.plane})
		}
		if len(b) >= 3 {
			*backs = append(*backs, &polygon{vertices: b, plane: poly.plane})
		}
	}
}
