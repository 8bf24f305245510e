package geometry

// Triangle is a single facet with its outward normal
type Triangle struct {
	Normal Vec3
	V      [3]Vec3
}

// ComputeNormal returns the right-handed facet normal from the vertex winding
func (t Triangle) ComputeNormal() Vec3 {
	return t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0])).Normalize()
}

// Centroid returns the average of the three vertices
func (t Triangle) Centroid() Vec3 {
	return t.V[0].Add(t.V[1]).Add(t.V[2]).Scale(1.0 / 3.0)
}

// Transform is the display transform of a mesh. Scale is bookkeeping of the
// cumulative factor already applied to the vertices; Rotation (radians, applied
// Z, Y, X) and Position are applied when the mesh is baked for export.
type Transform struct {
	Scale    Vec3
	Rotation Vec3
	Position Vec3
}

// IdentityTransform returns a transform that leaves vertices unchanged
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// Mesh is a triangle soup with a display transform and material color
type Mesh struct {
	Name      string
	Triangles []Triangle
	Transform Transform
	Color     Color
}

// NewMesh creates a mesh with identity transform and the default color
func NewMesh(name string, triangles []Triangle) *Mesh {
	return &Mesh{
		Name:      name,
		Triangles: triangles,
		Transform: IdentityTransform(),
		Color:     DefaultColor,
	}
}

// Clone returns a deep copy
func (m *Mesh) Clone() *Mesh {
	tris := make([]Triangle, len(m.Triangles))
	copy(tris, m.Triangles)
	return &Mesh{
		Name:      m.Name,
		Triangles: tris,
		Transform: m.Transform,
		Color:     m.Color,
	}
}

// MapVertices returns a copy whose vertices have been passed through fn.
// Normals are recomputed from the new winding.
func (m *Mesh) MapVertices(fn func(Vec3) Vec3) *Mesh {
	out := m.Clone()
	for i := range out.Triangles {
		t := &out.Triangles[i]
		for j := range t.V {
			t.V[j] = fn(t.V[j])
		}
		t.Normal = t.ComputeNormal()
	}
	return out
}

// FlipWinding reverses the vertex order of every triangle and its normal
func (m *Mesh) FlipWinding() {
	for i := range m.Triangles {
		t := &m.Triangles[i]
		t.V[1], t.V[2] = t.V[2], t.V[1]
		t.Normal = t.Normal.Negate()
	}
}

// RecomputeNormals rebuilds every facet normal from the vertex winding
func (m *Mesh) RecomputeNormals() {
	for i := range m.Triangles {
		m.Triangles[i].Normal = m.Triangles[i].ComputeNormal()
	}
}

// Translate moves all vertices by offset
func (m *Mesh) Translate(offset Vec3) *Mesh {
	return m.MapVertices(func(v Vec3) Vec3 { return v.Add(offset) })
}

// Append adds the triangles of other in place
func (m *Mesh) Append(other *Mesh) {
	m.Triangles = append(m.Triangles, other.Triangles...)
}

// VertexCount returns the number of unique vertices
func (m *Mesh) VertexCount() int {
	seen := make(map[Vec3]struct{}, len(m.Triangles))
	for _, t := range m.Triangles {
		for _, v := range t.V {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// IsEmpty reports whether the mesh has no facets
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Triangles) == 0
}
