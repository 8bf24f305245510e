package threemf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/models"
)

const modelPath = "3D/3dmodel.model"

// ErrNoMesh is returned when a package has no printable mesh geometry
var ErrNoMesh = errors.New("no mesh objects found in 3MF file")

// Reader reads 3MF files
type Reader struct{}

// NewReader creates a new 3MF reader
func NewReader() *Reader {
	return &Reader{}
}

// Read reads a 3MF file and merges its build items into one mesh
func (r *Reader) Read(filename string) (*geometry.Mesh, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening 3MF file: %w", err)
	}
	base := filepath.Base(filename)
	return r.ReadBytes(data, strings.TrimSuffix(base, filepath.Ext(base)))
}

// Decode reads a 3MF package from r
func (r *Reader) Decode(in io.Reader, name string) (*geometry.Mesh, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("error reading 3MF: %w", err)
	}
	return r.ReadBytes(data, name)
}

// ReadBytes parses an in-memory 3MF package
func (r *Reader) ReadBytes(data []byte, name string) (*geometry.Mesh, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error opening ZIP: %w", err)
	}

	pkg := &archive{zr: zr, parts: map[string]*models.Model{}}
	model, err := pkg.model(modelPath)
	if err != nil {
		return nil, err
	}

	mesh := geometry.NewMesh(name, nil)
	colorSet := false
	for _, item := range model.Build.Items {
		itemMatrix, err := parseTransform(item.Transform)
		if err != nil {
			return nil, fmt.Errorf("build item %s: %w", item.ObjectID, err)
		}
		color, err := pkg.collect(model, modelPath, item.ObjectID, itemMatrix, mesh, 0)
		if err != nil {
			return nil, err
		}
		if color != nil && !colorSet {
			mesh.Color = *color
			colorSet = true
		}
	}

	if mesh.IsEmpty() {
		return nil, ErrNoMesh
	}
	if name == "" && len(model.Resources.Objects) > 0 {
		mesh.Name = model.Resources.Objects[0].Name
	}
	return mesh, nil
}

// ReadDocument returns the root model part of a 3MF file without resolving geometry
func (r *Reader) ReadDocument(filename string) (*models.Model, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening ZIP: %w", err)
	}
	defer zr.Close()

	pkg := &archive{zr: &zr.Reader, parts: map[string]*models.Model{}}
	return pkg.model(modelPath)
}

// archive caches the model parts of a package; components may point into other parts
type archive struct {
	zr    *zip.Reader
	parts map[string]*models.Model
}

func (a *archive) model(path string) (*models.Model, error) {
	clean := strings.TrimPrefix(path, "/")
	if m, ok := a.parts[clean]; ok {
		return m, nil
	}

	var file *zip.File
	for _, f := range a.zr.File {
		if f.Name == clean {
			file = f
			break
		}
	}
	if file == nil {
		return nil, fmt.Errorf("%s not found in archive", clean)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening model file: %w", err)
	}
	defer rc.Close()

	var model models.Model
	if err := xml.NewDecoder(rc).Decode(&model); err != nil {
		return nil, fmt.Errorf("error parsing XML: %w", err)
	}
	a.parts[clean] = &model
	return &model, nil
}

const maxComponentDepth = 16

// collect appends the triangles of object id (and its components) to out
func (a *archive) collect(model *models.Model, part, id string, m matrix, out *geometry.Mesh, depth int) (*geometry.Color, error) {
	if depth > maxComponentDepth {
		return nil, fmt.Errorf("component nesting deeper than %d", maxComponentDepth)
	}

	obj := findObject(model, id)
	if obj == nil {
		return nil, fmt.Errorf("object %s not found in %s", id, part)
	}

	if obj.Mesh != nil {
		if err := appendMesh(out, obj.Mesh, m); err != nil {
			return nil, fmt.Errorf("object %s: %w", id, err)
		}
		return objectColor(model, obj), nil
	}

	var color *geometry.Color
	if obj.Components != nil {
		for _, comp := range obj.Components.Component {
			local, err := parseTransform(comp.Transform)
			if err != nil {
				return nil, fmt.Errorf("component of object %s: %w", id, err)
			}
			target, targetPart := model, part
			if comp.Path != "" {
				targetPart = strings.TrimPrefix(comp.Path, "/")
				if target, err = a.model(targetPart); err != nil {
					return nil, err
				}
			}
			c, err := a.collect(target, targetPart, comp.ObjectID, local.then(m), out, depth+1)
			if err != nil {
				return nil, err
			}
			if color == nil {
				color = c
			}
		}
	}
	return color, nil
}

func findObject(model *models.Model, id string) *models.Object {
	for i := range model.Resources.Objects {
		if model.Resources.Objects[i].ID == id {
			return &model.Resources.Objects[i]
		}
	}
	return nil
}

func appendMesh(out *geometry.Mesh, mesh *models.Mesh, m matrix) error {
	verts := mesh.Vertices.Vertex
	for _, t := range mesh.Triangles.Triangle {
		idx := [3]int{t.V1, t.V2, t.V3}
		var tri geometry.Triangle
		for j, i := range idx {
			if i < 0 || i >= len(verts) {
				return fmt.Errorf("triangle references vertex %d of %d", i, len(verts))
			}
			v := verts[i]
			tri.V[j] = m.apply(geometry.Vec3{X: v.X, Y: v.Y, Z: v.Z})
		}
		tri.Normal = tri.ComputeNormal()
		out.Triangles = append(out.Triangles, tri)
	}
	return nil
}

// objectColor resolves the pid/pindex property of an object against basematerials
func objectColor(model *models.Model, obj *models.Object) *geometry.Color {
	if obj.PID == "" {
		return nil
	}
	index := 0
	if obj.PIndex != "" {
		i, err := strconv.Atoi(obj.PIndex)
		if err != nil {
			return nil
		}
		index = i
	}
	for _, group := range model.Resources.BaseMaterials {
		if group.ID != obj.PID || index < 0 || index >= len(group.Bases) {
			continue
		}
		hex := group.Bases[index].DisplayColor
		if len(hex) == 9 {
			hex = hex[:7] // drop alpha
		}
		c, err := geometry.ParseColor(hex)
		if err != nil {
			return nil
		}
		return &c
	}
	return nil
}

// matrix is a 3MF affine transform in row-vector form: m00 m01 m02 m10 ... m32
type matrix [12]float64

var identity = matrix{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}

func parseTransform(s string) (matrix, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return identity, nil
	}
	if len(fields) != 12 {
		return matrix{}, fmt.Errorf("transform has %d values, want 12", len(fields))
	}
	var m matrix
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return matrix{}, fmt.Errorf("invalid transform value %q: %w", f, err)
		}
		m[i] = v
	}
	return m, nil
}

func (m matrix) apply(p geometry.Vec3) geometry.Vec3 {
	return geometry.Vec3{
		X: p.X*m[0] + p.Y*m[3] + p.Z*m[6] + m[9],
		Y: p.X*m[1] + p.Y*m[4] + p.Z*m[7] + m[10],
		Z: p.X*m[2] + p.Y*m[5] + p.Z*m[8] + m[11],
	}
}

// then returns the transform that applies m first and n second
func (m matrix) then(n matrix) matrix {
	var out matrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 3; col++ {
			var v float64
			for k := 0; k < 3; k++ {
				v += m[row*3+k] * n[k*3+col]
			}
			if row == 3 {
				v += n[9+col]
			}
			out[row*3+col] = v
		}
	}
	return out
}
