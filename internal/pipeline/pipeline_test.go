package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/internal/printer"
	"github.com/philipparndt/modelforge/internal/prompt"
	"github.com/philipparndt/modelforge/internal/transform"
)

type fakeOpener struct{ opened []string }

func (f *fakeOpener) OpenFile(path string) error {
	f.opened = append(f.opened, path)
	return nil
}

func writeCube(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cube.stl")
	require.NoError(t, modelfile.Save(path, geometry.Box(10, 10, 10)))
	return path
}

func stepNames(p *Plan) []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name()
	}
	return names
}

func newPlanner(t *testing.T, downloads string, opener Opener) *Planner {
	t.Helper()
	return NewPlanner(
		prompt.NewKeyword(),
		transform.NewDispatcher(nil, nil),
		printer.NewDispatcher(nil, nil, downloads, nil),
		opener,
	)
}

func TestCreatePlanSteps(t *testing.T) {
	p := newPlanner(t, t.TempDir(), &fakeOpener{})

	plan, err := p.CreatePlan(Request{Input: "cube.stl", Prompt: "make it red"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Check preconditions", "Load model", "Interpret prompt", "Apply operation", "Export model"}, stepNames(plan))
	assert.Equal(t, "cube_custom.stl", plan.Context().OutputFile)

	plan, err = p.CreatePlan(Request{
		Mesh:        geometry.Box(1, 1, 1),
		Instruction: operation.NewInstruction(operation.Scale{Factor: 2}),
		Format:      modelfile.ThreeMF,
		Send:        true,
		Open:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Check preconditions", "Apply operation", "Export model", "Send to printer", "Open result"}, stepNames(plan))
	assert.Equal(t, "Box_custom.3mf", plan.Context().OutputFile)

	unnamed := geometry.Box(1, 1, 1)
	unnamed.Name = ""
	plan, err = p.CreatePlan(Request{
		Mesh:        unnamed,
		Instruction: operation.NewInstruction(operation.Scale{Factor: 2}),
		Format:      modelfile.OBJ,
	})
	require.NoError(t, err)
	assert.Equal(t, "model_custom.obj", plan.Context().OutputFile)
}

func TestCreatePlanRejects(t *testing.T) {
	p := NewPlanner(prompt.NewKeyword(), nil, nil, nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"no input", Request{Prompt: "x"}},
		{"no prompt", Request{Input: "a.stl"}},
		{"send without dispatcher", Request{Input: "a.stl", Prompt: "x", Send: true}},
		{"open without opener", Request{Input: "a.stl", Prompt: "x", Open: true}},
		{"format mismatch", Request{Input: "a.stl", Prompt: "x", Output: "b.stl", Format: modelfile.OBJ}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.CreatePlan(tt.req)
			assert.Error(t, err)
		})
	}
}

func TestExecuteCustomizesAndDownloads(t *testing.T) {
	dir := t.TempDir()
	downloads := t.TempDir()
	opener := &fakeOpener{}
	input := writeCube(t, dir)
	output := filepath.Join(dir, "big.obj")

	plan, err := newPlanner(t, downloads, opener).CreatePlan(Request{
		Input:  input,
		Prompt: "make it twice as big",
		Output: output,
		Send:   true,
		Open:   true,
	})
	require.NoError(t, err)
	require.NoError(t, plan.Execute(context.Background()))

	c := plan.Context()
	assert.Equal(t, "scale", c.Instruction.Op.Name())

	got, err := modelfile.Load(output)
	require.NoError(t, err)
	bbox, err := geometry.CalculateBoundingBox(got)
	require.NoError(t, err)
	assert.InDelta(t, 20, bbox.Width(), 1e-6)

	require.NotNil(t, c.Delivery)
	assert.Equal(t, printer.MethodDownload, c.Delivery.Method)
	_, err = os.Stat(filepath.Join(downloads, "big.stl"))
	assert.NoError(t, err)

	assert.Equal(t, []string{output}, opener.opened)
}

func TestExecuteStopsAtFailingStep(t *testing.T) {
	dir := t.TempDir()
	input := writeCube(t, dir)

	plan, err := newPlanner(t, t.TempDir(), nil).CreatePlan(Request{Input: input, Prompt: "frobnicate the widget"})
	require.NoError(t, err)

	err = plan.Execute(context.Background())
	assert.ErrorIs(t, err, operation.ErrNotImplemented)
	assert.ErrorContains(t, err, "Apply operation")
	_, statErr := os.Stat(plan.Context().OutputFile)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestExecuteMissingInput(t *testing.T) {
	plan, err := newPlanner(t, t.TempDir(), nil).CreatePlan(Request{
		Input:  filepath.Join(t.TempDir(), "missing.stl"),
		Prompt: "make it red",
	})
	require.NoError(t, err)
	assert.ErrorContains(t, plan.Execute(context.Background()), "Check preconditions")
}
