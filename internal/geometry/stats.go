package geometry

import "math"

// Stats summarizes a mesh for inspection output
type Stats struct {
	Vertices    int
	Triangles   int
	Volume      float64 // mm³, from signed tetrahedra; only meaningful for closed meshes
	SurfaceArea float64 // mm²
	Bounds      BoundingBox
}

// CalculateStats computes vertex and facet counts, volume, area and bounds
func CalculateStats(m *Mesh) (*Stats, error) {
	bbox, err := CalculateBoundingBox(m)
	if err != nil {
		return nil, err
	}

	var volume, area float64
	for _, t := range m.Triangles {
		volume += t.V[0].Dot(t.V[1].Cross(t.V[2])) / 6
		area += t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0])).Length() / 2
	}

	return &Stats{
		Vertices:    m.VertexCount(),
		Triangles:   len(m.Triangles),
		Volume:      math.Abs(volume),
		SurfaceArea: area,
		Bounds:      *bbox,
	}, nil
}
