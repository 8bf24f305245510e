package preconditions

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/philipparndt/modelforge/internal/modelfile"
)

// Check runs the named checks in order and stops at the first failure
func Check(checks ...NamedCheck) error {
	for _, check := range checks {
		if err := check.Fn(); err != nil {
			return fmt.Errorf("%s: %w", check.Name, err)
		}
	}
	return nil
}

// NamedCheck is one precondition
type NamedCheck struct {
	Name string
	Fn   func() error
}

// Slicer returns a check that the slicer executable exists
func Slicer(path string) NamedCheck {
	return NamedCheck{Name: "Slicer", Fn: func() error { return CheckExecutable(path) }}
}

// ModelFiles returns a check for the given model paths
func ModelFiles(paths ...string) NamedCheck {
	return NamedCheck{Name: "Model", Fn: func() error { return ValidateFiles(paths) }}
}

// OutputPath returns a check that path can be written
func OutputPath(path string) NamedCheck {
	return NamedCheck{Name: "Output", Fn: func() error { return ValidateOutputPath(path) }}
}

// CheckExecutable accepts an absolute path to an existing file or a command on PATH
func CheckExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("no executable configured")
	}
	if filepath.IsAbs(path) {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("not found at %s", path)
		}
		// macOS application bundles are directories
		if info.IsDir() && filepath.Ext(path) != ".app" {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("%s not found in PATH", path)
	}
	return nil
}

// ValidateFiles checks if model files exist, are readable and have a supported extension
func ValidateFiles(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot access file %s: %w", path, err)
		}

		if info.IsDir() {
			return fmt.Errorf("%s is a directory, not a file", path)
		}

		if _, err := modelfile.DetectFormat(path); err != nil {
			return fmt.Errorf("%s: %w (must end in .stl, .obj or .3mf)", path, err)
		}

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("cannot read file %s: %w", path, err)
		}
		file.Close()
	}

	return nil
}

// ValidateOutputPath checks if the directory of the output path is writable
func ValidateOutputPath(path string) error {
	dir := filepath.Dir(path)
	if path == "" {
		dir = "."
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %s does not exist", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if info.Mode()&0o200 == 0 {
		return fmt.Errorf("output directory %s is not writable", dir)
	}
	return nil
}
