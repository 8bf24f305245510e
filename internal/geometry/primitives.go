package geometry

import "math"

// Primitive builders produce closed meshes centered on the origin with Z up.

type builder struct {
	tris []Triangle
}

func (b *builder) tri(a, c, d Vec3) {
	t := Triangle{V: [3]Vec3{a, c, d}}
	n := t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0]))
	if n.Length() < 1e-12 {
		return
	}
	t.Normal = n.Normalize()
	b.tris = append(b.tris, t)
}

func (b *builder) quad(a, c, d, e Vec3) {
	b.tri(a, c, d)
	b.tri(d, e, a)
}

// Box builds an axis-aligned box of the given width (X), depth (Y) and height (Z)
func Box(width, depth, height float64) *Mesh {
	x0, y0, z0 := -width/2, -depth/2, -height/2
	x1, y1, z1 := width/2, depth/2, height/2

	p000 := Vec3{x0, y0, z0}
	p100 := Vec3{x1, y0, z0}
	p110 := Vec3{x1, y1, z0}
	p010 := Vec3{x0, y1, z0}
	p001 := Vec3{x0, y0, z1}
	p101 := Vec3{x1, y0, z1}
	p111 := Vec3{x1, y1, z1}
	p011 := Vec3{x0, y1, z1}

	b := &builder{}
	b.quad(p000, p010, p110, p100) // Bottom
	b.quad(p101, p111, p011, p001) // Top
	b.quad(p000, p100, p101, p001) // Front
	b.quad(p100, p110, p111, p101) // Right
	b.quad(p110, p010, p011, p111) // Back
	b.quad(p010, p000, p001, p011) // Left

	return NewMesh("Box", b.tris)
}

// Frustum builds a capped truncated cone along Z. A zero top radius gives a cone,
// equal radii a cylinder, and six segments a hexagonal prism.
func Frustum(bottomRadius, topRadius, height float64, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	z0, z1 := -height/2, height/2
	ring := func(r, z float64, i int) Vec3 {
		a := 2 * math.Pi * float64(i%segments) / float64(segments)
		return Vec3{r * math.Cos(a), r * math.Sin(a), z}
	}

	b := &builder{}
	bottomCenter := Vec3{0, 0, z0}
	topCenter := Vec3{0, 0, z1}
	for i := 0; i < segments; i++ {
		b0, b1 := ring(bottomRadius, z0, i), ring(bottomRadius, z0, i+1)
		t0, t1 := ring(topRadius, z1, i), ring(topRadius, z1, i+1)

		b.quad(b0, b1, t1, t0)
		if bottomRadius > 0 {
			b.tri(bottomCenter, b1, b0)
		}
		if topRadius > 0 {
			b.tri(topCenter, t0, t1)
		}
	}

	return NewMesh("Frustum", b.tris)
}

// Cylinder builds a capped cylinder along Z
func Cylinder(radius, height float64, segments int) *Mesh {
	m := Frustum(radius, radius, height, segments)
	m.Name = "Cylinder"
	return m
}

// Cone builds a cone along Z with its apex at the top
func Cone(radius, height float64, segments int) *Mesh {
	m := Frustum(radius, 0, height, segments)
	m.Name = "Cone"
	return m
}

// Sphere builds a UV sphere
func Sphere(radius float64, widthSegments, heightSegments int) *Mesh {
	if widthSegments < 3 {
		widthSegments = 3
	}
	if heightSegments < 2 {
		heightSegments = 2
	}
	point := func(j, i int) Vec3 {
		phi := math.Pi * float64(j) / float64(heightSegments)
		theta := 2 * math.Pi * float64(i%widthSegments) / float64(widthSegments)
		return Vec3{
			radius * math.Sin(phi) * math.Cos(theta),
			radius * math.Sin(phi) * math.Sin(theta),
			radius * math.Cos(phi),
		}
	}

	b := &builder{}
	for j := 0; j < heightSegments; j++ {
		for i := 0; i < widthSegments; i++ {
			b.quad(point(j, i), point(j+1, i), point(j+1, i+1), point(j, i+1))
		}
	}

	return NewMesh("Sphere", b.tris)
}

// Torus builds a ring around Z with the given major and tube radius
func Torus(radius, tube float64, radialSegments, tubularSegments int) *Mesh {
	if radialSegments < 3 {
		radialSegments = 3
	}
	if tubularSegments < 3 {
		tubularSegments = 3
	}
	point := func(i, j int) Vec3 {
		u := 2 * math.Pi * float64(i%tubularSegments) / float64(tubularSegments)
		v := 2 * math.Pi * float64(j%radialSegments) / float64(radialSegments)
		r := radius + tube*math.Cos(v)
		return Vec3{r * math.Cos(u), r * math.Sin(u), tube * math.Sin(v)}
	}

	b := &builder{}
	for i := 0; i < tubularSegments; i++ {
		for j := 0; j < radialSegments; j++ {
			b.quad(point(i, j), point(i+1, j), point(i+1, j+1), point(i, j+1))
		}
	}

	return NewMesh("Torus", b.tris)
}

// Pyramid builds a square pyramid with the apex on +Z
func Pyramid(base, height float64) *Mesh {
	s, z0, z1 := base/2, -height/2, height/2
	p := [4]Vec3{{-s, -s, z0}, {s, -s, z0}, {s, s, z0}, {-s, s, z0}}
	apex := Vec3{0, 0, z1}

	b := &builder{}
	b.quad(p[0], p[3], p[2], p[1])
	for i := 0; i < 4; i++ {
		b.tri(p[i], p[(i+1)%4], apex)
	}

	return NewMesh("Pyramid", b.tris)
}
