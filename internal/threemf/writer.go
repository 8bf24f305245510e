package threemf

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/models"
	"github.com/philipparndt/modelforge/version"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
	<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
	<Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
	<Relationship Id="rel0" Target="/3D/3dmodel.model" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>`

// Writer writes 3MF files
type Writer struct{}

// NewWriter creates a new 3MF writer
func NewWriter() *Writer {
	return &Writer{}
}

// Write writes a mesh to a 3MF file
func (w *Writer) Write(mesh *geometry.Mesh, outputFile string) error {
	outFile, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := w.Encode(outFile, mesh); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}

// Encode writes a single-object 3MF package. The vertices are written as
// stored and the display rotation and position go into the build item
// transform; the color becomes a basematerials entry.
func (w *Writer) Encode(out io.Writer, mesh *geometry.Mesh) error {
	zipWriter := zip.NewWriter(out)

	modelWriter, err := zipWriter.Create(modelPath)
	if err != nil {
		return fmt.Errorf("error creating model entry: %w", err)
	}
	if _, err := io.WriteString(modelWriter, xml.Header); err != nil {
		return fmt.Errorf("error writing XML header: %w", err)
	}
	enc := xml.NewEncoder(modelWriter)
	enc.Indent("", "\t")
	if err := enc.Encode(buildModel(mesh)); err != nil {
		return fmt.Errorf("error marshaling XML: %w", err)
	}

	for name, content := range map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsXML,
	} {
		entry, err := zipWriter.Create(name)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", name, err)
		}
		if _, err := io.WriteString(entry, content); err != nil {
			return fmt.Errorf("error writing %s: %w", name, err)
		}
	}

	return zipWriter.Close()
}

func buildModel(mesh *geometry.Mesh) *models.Model {
	name := mesh.Name
	if name == "" {
		name = "model"
	}

	return &models.Model{
		Xmlns: models.CoreNamespace,
		Unit:  "millimeter",
		Lang:  "en-US",
		Metadata: []models.Metadata{
			{Name: "Application", Value: "modelforge " + version.Version},
			{Name: "Title", Value: name},
		},
		Resources: models.Resources{
			BaseMaterials: []models.BaseMaterials{{
				ID:    "1",
				Bases: []models.Base{{Name: name, DisplayColor: mesh.Color.Hex() + "FF"}},
			}},
			Objects: []models.Object{{
				ID:     "2",
				Name:   name,
				Type:   "model",
				PID:    "1",
				PIndex: "0",
				Mesh:   buildMesh(mesh),
			}},
		},
		Build: models.Build{
			Items: []models.Item{{
				ObjectID:  "2",
				Transform: geometry.ItemTransform(mesh.Transform),
				Printable: "1",
			}},
		},
	}
}

// buildMesh indexes the triangle soup, sharing identical vertices
func buildMesh(mesh *geometry.Mesh) *models.Mesh {
	vertexMap := make(map[geometry.Vec3]int)
	out := &models.Mesh{}

	getVertexIndex := func(v geometry.Vec3) int {
		if idx, exists := vertexMap[v]; exists {
			return idx
		}
		idx := len(out.Vertices.Vertex)
		vertexMap[v] = idx
		out.Vertices.Vertex = append(out.Vertices.Vertex, models.Vertex{X: v.X, Y: v.Y, Z: v.Z})
		return idx
	}

	for _, tri := range mesh.Triangles {
		out.Triangles.Triangle = append(out.Triangles.Triangle, models.Triangle{
			V1: getVertexIndex(tri.V[0]),
			V2: getVertexIndex(tri.V[1]),
			V3: getVertexIndex(tri.V[2]),
		})
	}
	return out
}
