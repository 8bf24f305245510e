package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/philipparndt/modelforge/internal/geometry"
)

const (
	headerSize   = 80
	facetSize    = 50
	minBinarySTL = headerSize + 4
)

// ErrNoFacets is returned when a file parses but contains no triangles
var ErrNoFacets = errors.New("no facets found")

// Parser parses STL files
type Parser struct{}

// NewParser creates a new STL parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an STL file and returns the mesh data
func (p *Parser) Parse(filename string) (*geometry.Mesh, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	return p.ParseBytes(data, nameFromPath(filename))
}

// Decode reads an STL payload from r
func (p *Parser) Decode(r io.Reader, name string) (*geometry.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading STL: %w", err)
	}
	return p.ParseBytes(data, name)
}

// ParseBytes detects ASCII or binary encoding and parses the payload
func (p *Parser) ParseBytes(data []byte, name string) (*geometry.Mesh, error) {
	var (
		mesh *geometry.Mesh
		err  error
	)
	if isASCII(data) {
		mesh, err = p.parseASCII(bytes.NewReader(data), name)
	} else {
		mesh, err = p.parseBinary(data, name)
	}
	if err != nil {
		return nil, err
	}
	if len(mesh.Triangles) == 0 {
		return nil, ErrNoFacets
	}
	return mesh, nil
}

// isASCII checks for the "solid" keyword. Some exporters write binary files
// whose header also starts with "solid", so a payload whose length matches
// the binary facet count is treated as binary.
func isASCII(data []byte) bool {
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return false
	}
	if len(data) >= minBinarySTL {
		count := binary.LittleEndian.Uint32(data[headerSize:minBinarySTL])
		if uint64(len(data)) == minBinarySTL+uint64(count)*facetSize {
			return false
		}
	}
	return true
}

// parseASCII parses an ASCII STL file
func (p *Parser) parseASCII(reader io.Reader, name string) (*geometry.Mesh, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	mesh := geometry.NewMesh(name, []geometry.Triangle{})

	var current geometry.Triangle
	var vertexCount int
	line := 0

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 && name == "" {
				mesh.Name = strings.Join(fields[1:], " ")
			}
		case "facet":
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseVec(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid normal: %w", line, err)
				}
				current.Normal = n
			}
			vertexCount = 0
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
			}
			v, err := parseVec(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid vertex: %w", line, err)
			}
			if vertexCount < 3 {
				current.V[vertexCount] = v
			}
			vertexCount++
		case "endfacet":
			if vertexCount != 3 {
				return nil, fmt.Errorf("line %d: facet has %d vertices", line, vertexCount)
			}
			if current.Normal == (geometry.Vec3{}) {
				current.Normal = current.ComputeNormal()
			}
			mesh.Triangles = append(mesh.Triangles, current)
			current = geometry.Triangle{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return mesh, nil
}

func parseVec(fields []string) (geometry.Vec3, error) {
	var out [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geometry.Vec3{}, err
		}
		out[i] = v
	}
	return geometry.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// parseBinary parses a binary STL file
func (p *Parser) parseBinary(data []byte, name string) (*geometry.Mesh, error) {
	if len(data) < minBinarySTL {
		return nil, fmt.Errorf("error reading header: file is only %d bytes", len(data))
	}

	triangleCount := binary.LittleEndian.Uint32(data[headerSize:minBinarySTL])
	if uint64(len(data)) < minBinarySTL+uint64(triangleCount)*facetSize {
		return nil, fmt.Errorf("truncated binary STL: header declares %d facets", triangleCount)
	}

	mesh := geometry.NewMesh(name, make([]geometry.Triangle, triangleCount))
	offset := minBinarySTL
	for i := range mesh.Triangles {
		t := &mesh.Triangles[i]
		t.Normal = readVec(data[offset:])
		for j := 0; j < 3; j++ {
			t.V[j] = readVec(data[offset+12*(j+1):])
		}
		if t.Normal == (geometry.Vec3{}) {
			t.Normal = t.ComputeNormal()
		}
		// trailing two bytes are the attribute byte count
		offset += facetSize
	}

	return mesh, nil
}

func readVec(b []byte) geometry.Vec3 {
	return geometry.Vec3{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))),
	}
}

func nameFromPath(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
