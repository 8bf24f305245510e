package inspect

import (
	"path/filepath"
	"testing"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.3mf")
	block := geometry.Box(10, 20, 5)
	block.Color = geometry.Color{R: 0, G: 128, B: 0}
	require.NoError(t, modelfile.Save(path, block))

	report, err := NewInspector().Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, modelfile.ThreeMF, report.Format)
	assert.Equal(t, 8, report.Stats.Vertices)
	assert.Equal(t, 12, report.Stats.Triangles)
	assert.InDelta(t, 1000, report.Stats.Volume, 1e-9)
	assert.Equal(t, block.Color, report.Color)

	require.NoError(t, NewInspector().Inspect(path))
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := NewInspector().Analyze(filepath.Join(t.TempDir(), "nope.stl"))
	assert.ErrorContains(t, err, "file not found")
}

func TestParseTransformOffset(t *testing.T) {
	x, y, z, ok := ParseTransformOffset("1 0 0 0 1 0 0 0 1 1.5 -2 3")
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, -2, 3}, []float64{x, y, z})

	_, _, _, ok = ParseTransformOffset("1 0 0")
	assert.False(t, ok)
}

func TestDisplayColor(t *testing.T) {
	model := &models.Model{Resources: models.Resources{
		BaseMaterials: []models.BaseMaterials{{ID: "1", Bases: []models.Base{{Name: "a", DisplayColor: "#FF0000FF"}}}},
	}}
	assert.Equal(t, "#FF0000", displayColor(model, &models.Object{PID: "1", PIndex: "0"}))
	assert.Equal(t, "", displayColor(model, &models.Object{}))
	assert.Equal(t, "", displayColor(model, &models.Object{PID: "1", PIndex: "4"}))
}
