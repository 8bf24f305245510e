package preconditions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "cube.stl")
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(model, []byte("solid"), 0o644))
	require.NoError(t, os.WriteFile(notes, []byte("hi"), 0o644))

	assert.NoError(t, ValidateFiles([]string{model}))
	assert.Error(t, ValidateFiles([]string{notes}))
	assert.Error(t, ValidateFiles([]string{dir}))
	assert.Error(t, ValidateFiles([]string{filepath.Join(dir, "missing.obj")}))
}

func TestValidateOutputPath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, ValidateOutputPath(filepath.Join(dir, "out.stl")))
	assert.Error(t, ValidateOutputPath(filepath.Join(dir, "nope", "out.stl")))
}

func TestCheckExecutable(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "slicer")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))

	assert.NoError(t, CheckExecutable(exe))
	assert.Error(t, CheckExecutable(filepath.Join(dir, "missing")))
	assert.Error(t, CheckExecutable(dir))
	assert.Error(t, CheckExecutable(""))
	assert.Error(t, CheckExecutable("definitely-not-a-real-slicer-binary"))
}

func TestCheckStopsAtFirstFailure(t *testing.T) {
	ran := 0
	err := Check(
		NamedCheck{Name: "first", Fn: func() error { ran++; return errors.New("boom") }},
		NamedCheck{Name: "second", Fn: func() error { ran++; return nil }},
	)
	assert.EqualError(t, err, "first: boom")
	assert.Equal(t, 1, ran)
}
