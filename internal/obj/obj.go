// Package obj reads and writes Wavefront OBJ geometry. Only vertex and face
// records are used; materials, texture coordinates and groups are ignored.
package obj

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/philipparndt/modelforge/internal/geometry"
)

// ErrNoFaces is returned when the file has no face records
var ErrNoFaces = errors.New("no faces found")

// Decode parses OBJ text. Polygons are fan-triangulated and negative
// indices count back from the most recent vertex.
func Decode(r io.Reader, name string) (*geometry.Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var vertices []geometry.Vec3
	mesh := geometry.NewMesh(name, nil)
	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "o":
			if name == "" && len(fields) > 1 {
				mesh.Name = strings.Join(fields[1:], " ")
			}
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
			}
			var c [3]float64
			for i := range c {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid coordinate: %w", line, err)
				}
				c[i] = v
			}
			vertices = append(vertices, geometry.Vec3{X: c[0], Y: c[1], Z: c[2]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least three vertices", line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				i, err := resolveIndex(ref, len(vertices))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				tri := geometry.Triangle{V: [3]geometry.Vec3{vertices[idx[0]], vertices[idx[k]], vertices[idx[k+1]]}}
				tri.Normal = tri.ComputeNormal()
				mesh.Triangles = append(mesh.Triangles, tri)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading OBJ: %w", err)
	}
	if mesh.IsEmpty() {
		return nil, ErrNoFaces
	}
	return mesh, nil
}

// resolveIndex turns a face reference like "3", "3/1/2" or "-1" into a zero-based vertex index
func resolveIndex(ref string, count int) (int, error) {
	if slash := strings.IndexByte(ref, '/'); slash >= 0 {
		ref = ref[:slash]
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("invalid face index %q", ref)
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	}
	return 0, fmt.Errorf("face index %d out of range (%d vertices)", n, count)
}

// Encode writes the mesh as OBJ with shared vertices
func Encode(w io.Writer, mesh *geometry.Mesh) error {
	bw := bufio.NewWriter(w)
	name := mesh.Name
	if name == "" {
		name = "model"
	}
	fmt.Fprintf(bw, "# modelforge\no %s\n", name)

	index := make(map[geometry.Vec3]int)
	faces := make([][3]int, 0, len(mesh.Triangles))
	for _, t := range mesh.Triangles {
		var face [3]int
		for j, v := range t.V {
			i, ok := index[v]
			if !ok {
				i = len(index) + 1
				index[v] = i
				fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
			}
			face[j] = i
		}
		faces = append(faces, face)
	}
	for _, f := range faces {
		fmt.Fprintf(bw, "f %d %d %d\n", f[0], f[1], f[2])
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
