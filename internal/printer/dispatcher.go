package printer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/modelfile"
)

// ErrUSBUnsupported is returned for USB profiles; serial printing needs the desktop bridge
var ErrUSBUnsupported = errors.New("USB printing is not supported")

// Method names how a model was delivered
type Method string

const (
	MethodSlicer    Method = "slicer"
	MethodOctoPrint Method = "octoprint"
	MethodKlipper   Method = "klipper"
	MethodPrusaLink Method = "prusalink"
	MethodDownload  Method = "download"
)

// Result reports a delivery
type Result struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Method       Method          `json:"method"`
	Path         string          `json:"path,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Uploader delivers to firmware REST APIs
type Uploader interface {
	Upload(ctx context.Context, p *Profile, filename string, payload []byte, notify Notify) (*UploadResult, error)
	Test(ctx context.Context, p *Profile) (string, error)
}

// SlicerLauncher opens files in a desktop slicer
type SlicerLauncher interface {
	Launch(p *Profile, filename string, payload []byte) (string, error)
}

// Dispatcher sends a model to whatever a profile points at
type Dispatcher struct {
	uploader    Uploader
	launcher    SlicerLauncher
	downloadDir string
	logger      *zap.Logger
}

// NewDispatcher wires the delivery methods; downloadDir receives fallback downloads
func NewDispatcher(uploader Uploader, launcher SlicerLauncher, downloadDir string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		uploader:    uploader,
		launcher:    launcher,
		downloadDir: downloadDir,
		logger:      logger.With(zap.String("component", "printer")),
	}
}

// Send delivers the STL payload using the profile. Without a profile the file
// is saved to the download directory.
func (d *Dispatcher) Send(ctx context.Context, payload []byte, filename string, p *Profile, notify Notify) (*Result, error) {
	if p == nil {
		return d.Download(payload, filename, "", notify)
	}

	notify.send(10, fmt.Sprintf("Preparing to send to %s...", p.Name))
	result, err := d.send(ctx, payload, filename, p, notify)
	if err != nil {
		notify.send(0, "Error: "+err.Error())
		d.logger.Warn("delivery failed", zap.String("printer", p.Name), zap.String("type", string(p.Type)), zap.Error(err))
		return nil, err
	}
	notify.send(100, result.Message)
	return result, nil
}

func (d *Dispatcher) send(ctx context.Context, payload []byte, filename string, p *Profile, notify Notify) (*Result, error) {
	switch p.Type {
	case ConnectionSlicer:
		notify.send(20, "Saving model file...")
		notify.send(40, "Launching slicer...")
		path, err := d.launcher.Launch(p, filename, payload)
		if err != nil {
			return nil, err
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Model opened in %s", slicerLabel(p)),
			Method:  MethodSlicer,
			Path:    path,
		}, nil

	case ConnectionOctoPrint, ConnectionKlipper, ConnectionPrusaLink:
		up, err := d.uploader.Upload(ctx, p, filename, payload, notify)
		if err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("Uploaded to %s", p.Name)
		if up.Started {
			msg = fmt.Sprintf("Print started on %s", p.Name)
		}
		return &Result{Success: true, Message: msg, Method: Method(p.Type), Data: up.Body}, nil

	case ConnectionUSB:
		return nil, fmt.Errorf("%w: %s on %s", ErrUSBUnsupported, p.Name, p.Port)
	}
	return nil, fmt.Errorf("unknown connection type: %s", p.Type)
}

// Download saves the payload to the download directory. There is no delivery
// confirmation; the result carries manual slicer instructions.
func (d *Dispatcher) Download(payload []byte, filename string, slicer SlicerType, notify Notify) (*Result, error) {
	notify.send(50, "Saving model file...")
	if err := os.MkdirAll(d.downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating download directory: %w", err)
	}
	path := uniquePath(filepath.Join(d.downloadDir, modelfile.CleanName(filename)))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, fmt.Errorf("error saving model: %w", err)
	}

	label := "your slicer"
	if slicer != "" {
		label = string(slicer)
	}
	notify.send(100, "File downloaded. Please open in your slicer manually.")
	d.logger.Info("saved model for manual slicing", zap.String("path", path))
	return &Result{
		Success:      true,
		Message:      fmt.Sprintf("%s downloaded. Please open in %s manually.", filepath.Base(path), label),
		Method:       MethodDownload,
		Path:         path,
		Instructions: SlicerInstructions(slicer),
	}, nil
}

// Test checks that a profile is reachable. Only REST profiles make a request.
func (d *Dispatcher) Test(ctx context.Context, p *Profile) (*Result, error) {
	switch p.Type {
	case ConnectionOctoPrint, ConnectionKlipper, ConnectionPrusaLink:
		msg, err := d.uploader.Test(ctx, p)
		if err != nil {
			return &Result{Success: false, Message: err.Error(), Method: Method(p.Type)}, err
		}
		return &Result{Success: true, Message: msg, Method: Method(p.Type)}, nil
	case ConnectionSlicer:
		return &Result{Success: true, Message: "Slicer path configured. Connection will be tested when launching.", Method: MethodSlicer}, nil
	case ConnectionUSB:
		return &Result{Success: true, Message: "USB connection will be tested when sending print."}, nil
	}
	err := fmt.Errorf("unknown connection type: %s", p.Type)
	return &Result{Success: false, Message: err.Error()}, err
}

func slicerLabel(p *Profile) string {
	if p.SlicerType != "" {
		return string(p.SlicerType)
	}
	return filepath.Base(p.SlicerPath)
}

// uniquePath appends a counter before the extension until the path is free
func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}
