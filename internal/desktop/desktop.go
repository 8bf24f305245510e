// Package desktop hands files and links to the operating system.
package desktop

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Opener runs the platform commands
type Opener struct {
	goos string
	run  func(name string, args ...string) error
}

// New returns an opener for the running platform
func New() *Opener {
	return &Opener{goos: runtime.GOOS, run: start}
}

func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// OpenFile opens path with its default application
func (o *Opener) OpenFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	name, args := o.openCommand(abs)
	return o.exec(name, args...)
}

// Reveal shows path selected in the file manager
func (o *Opener) Reveal(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	switch o.goos {
	case "darwin":
		return o.exec("open", "-R", abs)
	case "windows":
		return o.exec("explorer", "/select,"+abs)
	default:
		// most Linux file managers cannot select a file, open the folder instead
		return o.exec("xdg-open", filepath.Dir(abs))
	}
}

// OpenURL opens an http(s) link in the browser
func (o *Opener) OpenURL(link string) error {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("refusing to open %q: only http and https links are allowed", link)
	}
	name, args := o.openCommand(u.String())
	return o.exec(name, args...)
}

func (o *Opener) openCommand(target string) (string, []string) {
	switch o.goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

func (o *Opener) exec(name string, args ...string) error {
	if err := o.run(name, args...); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}
