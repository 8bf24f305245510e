package gallery

import (
	"fmt"
	"strings"

	"github.com/philipparndt/modelforge/internal/geometry"
)

const builtinPrefix = "builtin-"

type builtin struct {
	name        string
	thumbnail   string
	description string
	build       func() *geometry.Mesh
}

var catalog = []builtin{
	{"Cube", "🧊", "20 mm cube", func() *geometry.Mesh { return geometry.Box(20, 20, 20) }},
	{"Sphere", "⚪", "20 mm sphere", func() *geometry.Mesh { return geometry.Sphere(10, 32, 16) }},
	{"Cylinder", "🥫", "20 mm cylinder", func() *geometry.Mesh { return geometry.Cylinder(10, 20, 32) }},
	{"Cone", "🍦", "20 mm cone", func() *geometry.Mesh { return geometry.Cone(10, 20, 32) }},
	{"Torus", "🍩", "Ring, 26 mm across", func() *geometry.Mesh { return geometry.Torus(10, 3, 32, 16) }},
	{"Pyramid", "🔺", "Square pyramid", func() *geometry.Mesh { return geometry.Pyramid(20, 20) }},
}

// Catalog returns the built-in models
func Catalog() []*Model {
	out := make([]*Model, 0, len(catalog))
	for _, b := range catalog {
		out = append(out, &Model{
			ID:          builtinPrefix + strings.ToLower(b.name),
			Name:        b.name,
			Description: b.description,
			Format:      "stl",
			Thumbnail:   b.thumbnail,
			Builtin:     true,
		})
	}
	return out
}

// IsBuiltin reports whether id names a catalog model
func IsBuiltin(id string) bool {
	return strings.HasPrefix(id, builtinPrefix)
}

// BuiltinMesh generates the mesh of a catalog model
func BuiltinMesh(id string) (*geometry.Mesh, error) {
	for _, b := range catalog {
		if builtinPrefix+strings.ToLower(b.name) == id {
			m := b.build()
			m.Name = b.name
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
