package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/philipparndt/modelforge/internal/geometry"
)

// Writer writes STL files
type Writer struct{}

// NewWriter creates a new STL writer
func NewWriter() *Writer {
	return &Writer{}
}

// WriteBinary writes the mesh as a binary STL file
func (w *Writer) WriteBinary(mesh *geometry.Mesh, filename string) error {
	return writeFile(filename, func(out io.Writer) error { return w.EncodeBinary(out, mesh) })
}

// WriteASCII writes the mesh as an ASCII STL file
func (w *Writer) WriteASCII(mesh *geometry.Mesh, filename string) error {
	return writeFile(filename, func(out io.Writer) error { return w.EncodeASCII(out, mesh) })
}

// EncodeBinary writes a binary STL payload with float32 coordinates
func (w *Writer) EncodeBinary(out io.Writer, mesh *geometry.Mesh) error {
	bw := bufio.NewWriter(out)

	header := make([]byte, headerSize)
	copy(header, "modelforge "+mesh.Name)
	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(mesh.Triangles))); err != nil {
		return fmt.Errorf("error writing triangle count: %w", err)
	}

	facet := make([]byte, facetSize)
	for _, t := range mesh.Triangles {
		putVec(facet[0:], t.Normal)
		for j := 0; j < 3; j++ {
			putVec(facet[12*(j+1):], t.V[j])
		}
		binary.LittleEndian.PutUint16(facet[48:], 0)
		if _, err := bw.Write(facet); err != nil {
			return fmt.Errorf("error writing facet: %w", err)
		}
	}

	return bw.Flush()
}

// EncodeASCII writes an ASCII STL payload
func (w *Writer) EncodeASCII(out io.Writer, mesh *geometry.Mesh) error {
	bw := bufio.NewWriter(out)
	name := mesh.Name
	if name == "" {
		name = "model"
	}

	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range mesh.Triangles {
		fmt.Fprintf(bw, "  facet normal %e %e %e\n", t.Normal.X, t.Normal.Y, t.Normal.Z)
		fmt.Fprintln(bw, "    outer loop")
		for _, v := range t.V {
			fmt.Fprintf(bw, "      vertex %e %e %e\n", v.X, v.Y, v.Z)
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)

	return bw.Flush()
}

func putVec(b []byte, v geometry.Vec3) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

func writeFile(filename string, encode func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
