package inspect

import (
	"fmt"
	"os"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/threemf"
	"github.com/philipparndt/modelforge/internal/ui"
)

// Inspector provides functionality to inspect model files
type Inspector struct {
	printer *ModelPrinter
}

// NewInspector creates a new Inspector
func NewInspector() *Inspector {
	return &Inspector{printer: NewModelPrinter()}
}

// Report is the summary shown for a model file
type Report struct {
	Path   string
	Format modelfile.Format
	Name   string
	Color  geometry.Color
	Stats  *geometry.Stats
}

// Analyze loads a model file and computes its statistics
func (i *Inspector) Analyze(filename string) (*Report, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("file not found: %s", filename)
	}

	format, err := modelfile.DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	mesh, err := modelfile.Load(filename)
	if err != nil {
		return nil, err
	}
	stats, err := geometry.CalculateStats(mesh)
	if err != nil {
		return nil, err
	}

	return &Report{
		Path:   filename,
		Format: format,
		Name:   mesh.Name,
		Color:  mesh.Color,
		Stats:  stats,
	}, nil
}

// Inspect reads and displays the contents of a model file
func (i *Inspector) Inspect(filename string) error {
	report, err := i.Analyze(filename)
	if err != nil {
		return err
	}

	ui.PrintHeader(fmt.Sprintf("Inspecting: %s", filename))
	i.printer.PrintReport(report)

	if report.Format != modelfile.ThreeMF {
		return nil
	}

	model, err := threemf.NewReader().ReadDocument(filename)
	if err != nil {
		return fmt.Errorf("error reading 3MF file: %w", err)
	}
	i.printer.PrintDocument(model)
	return nil
}
