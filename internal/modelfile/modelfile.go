// Package modelfile picks the reader or writer for a model file by its extension.
package modelfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/obj"
	"github.com/philipparndt/modelforge/internal/stl"
	"github.com/philipparndt/modelforge/internal/threemf"
)

// Format is a supported model file format
type Format string

const (
	STL     Format = "stl"
	OBJ     Format = "obj"
	ThreeMF Format = "3mf"
)

// ErrUnsupportedFormat is returned for extensions other than .stl, .obj and .3mf
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Formats lists the supported formats
func Formats() []Format {
	return []Format{STL, OBJ, ThreeMF}
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when serving the format
func (f Format) ContentType() string {
	switch f {
	case STL:
		return "model/stl"
	case OBJ:
		return "model/obj"
	case ThreeMF:
		return "model/3mf"
	}
	return "application/octet-stream"
}

// ParseFormat accepts a format name with or without a leading dot
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// DetectFormat determines the format from the file extension
func DetectFormat(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}

// Load reads a model file; the mesh is named after the file
func Load(path string) (*geometry.Mesh, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	return Decode(format, BaseName(path), f)
}

// Decode parses a model payload in the given format
func Decode(format Format, name string, r io.Reader) (*geometry.Mesh, error) {
	var (
		mesh *geometry.Mesh
		err  error
	)
	switch format {
	case STL:
		mesh, err = stl.NewParser().Decode(r, name)
	case OBJ:
		mesh, err = obj.Decode(r, name)
	case ThreeMF:
		mesh, err = threemf.NewReader().Decode(r, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", strings.ToUpper(string(format)), err)
	}
	return mesh, nil
}

// Encode writes the mesh in the given format. STL and OBJ carry no
// transform, so the display rotation and position are baked into the
// vertices; 3MF keeps them in the build item.
func Encode(format Format, w io.Writer, mesh *geometry.Mesh) error {
	switch format {
	case STL:
		return stl.NewWriter().EncodeBinary(w, mesh.Baked())
	case OBJ:
		return obj.Encode(w, mesh.Baked())
	case ThreeMF:
		return threemf.NewWriter().Encode(w, mesh)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Save writes the mesh to path in the format implied by its extension
func Save(path string, mesh *geometry.Mesh) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := Encode(format, f, mesh); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// BaseName returns the file name without directory and extension
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CleanName replaces characters that are not allowed in file names
func CleanName(name string) string {
	if name == "" {
		return "model"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// OutputPath derives the default output path for a customized model:
// <dir>/<name>_custom.<ext>
func OutputPath(dir, name string, format Format) string {
	return filepath.Join(dir, CleanName(name)+"_custom"+format.Extension())
}
