package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/internal/preconditions"
	"github.com/philipparndt/modelforge/internal/printer"
	"github.com/philipparndt/modelforge/internal/prompt"
	"github.com/philipparndt/modelforge/internal/transform"
	"github.com/philipparndt/modelforge/internal/ui"
)

// CheckPreconditionsStep validates the input file and the output directory
type CheckPreconditionsStep struct{}

func (s *CheckPreconditionsStep) Name() string {
	return "Check preconditions"
}

func (s *CheckPreconditionsStep) Execute(_ context.Context, c *Context) error {
	checks := []preconditions.NamedCheck{preconditions.OutputPath(c.OutputFile)}
	if c.Mesh == nil {
		checks = append([]preconditions.NamedCheck{preconditions.ModelFiles(c.InputPath)}, checks...)
	}
	if err := preconditions.Check(checks...); err != nil {
		return err
	}
	if ui.IsVerbose() {
		ui.PrintSuccess("✓ Input and output paths are valid")
	}
	return nil
}

// LoadModelStep reads the input model
type LoadModelStep struct{}

func (s *LoadModelStep) Name() string {
	return "Load model"
}

func (s *LoadModelStep) Execute(_ context.Context, c *Context) error {
	mesh, err := modelfile.Load(c.InputPath)
	if err != nil {
		return err
	}
	c.Mesh = mesh
	ui.PrintSuccess(fmt.Sprintf("Loaded %s (%d triangles)", filepath.Base(c.InputPath), len(mesh.Triangles)))
	return nil
}

// InterpretStep turns the prompt into an instruction
type InterpretStep struct {
	Interpreter prompt.Interpreter
}

func (s *InterpretStep) Name() string {
	return "Interpret prompt"
}

func (s *InterpretStep) Execute(ctx context.Context, c *Context) error {
	if s.Interpreter == nil {
		return errors.New("no interpreter configured")
	}
	inst, err := s.Interpreter.Interpret(ctx, c.Prompt)
	if err != nil {
		return err
	}
	c.Instruction = inst
	ui.PrintInfo(inst.Explanation)
	if ui.IsVerbose() {
		ui.PrintKeyValue("Operation", inst.Op.Name())
	}
	return nil
}

// ApplyOperationStep runs the instruction against the mesh
type ApplyOperationStep struct {
	Transform *transform.Dispatcher
}

func (s *ApplyOperationStep) Name() string {
	return "Apply operation"
}

func (s *ApplyOperationStep) Execute(_ context.Context, c *Context) error {
	if s.Transform == nil {
		s.Transform = transform.NewDispatcher(nil, nil)
	}
	if c.Instruction == nil {
		return fmt.Errorf("%w: no instruction", operation.ErrNotImplemented)
	}
	out, err := s.Transform.ApplyInstruction(c.Mesh, c.Instruction)
	if err != nil {
		return err
	}
	c.Result = out
	ui.PrintSuccess(fmt.Sprintf("Applied %s", c.Instruction.Op.Name()))
	if ui.IsVerbose() {
		if bbox, err := geometry.CalculateBoundingBox(out.Baked()); err == nil {
			ui.PrintKeyValue("Dimensions", fmt.Sprintf("%.2f × %.2f × %.2f mm", bbox.Width(), bbox.Depth(), bbox.Height()))
		}
	}
	return nil
}

// ExportStep writes the result in the requested format
type ExportStep struct{}

func (s *ExportStep) Name() string {
	return "Export model"
}

func (s *ExportStep) Execute(_ context.Context, c *Context) error {
	if err := modelfile.Save(c.OutputFile, c.Result); err != nil {
		return err
	}
	ui.PrintSuccess("Saved " + filepath.Base(c.OutputFile))
	return nil
}

// DispatchStep sends the result as STL to a printer, slicer or the download folder
type DispatchStep struct {
	Sender  Sender
	Printer *printer.Profile
	Notify  printer.Notify
}

func (s *DispatchStep) Name() string {
	return "Send to printer"
}

func (s *DispatchStep) Execute(ctx context.Context, c *Context) error {
	var buf bytes.Buffer
	if err := modelfile.Encode(modelfile.STL, &buf, c.Result); err != nil {
		return err
	}
	filename := modelfile.BaseName(c.OutputFile) + modelfile.STL.Extension()
	res, err := s.Sender.Send(ctx, buf.Bytes(), filename, s.Printer, s.Notify)
	if err != nil {
		return err
	}
	c.Delivery = res
	ui.PrintSuccess(res.Message)
	if res.Instructions != "" {
		ui.PrintBox(res.Instructions)
	}
	return nil
}

// OpenStep opens the exported file with its default application
type OpenStep struct {
	Opener Opener
}

func (s *OpenStep) Name() string {
	return "Open result"
}

func (s *OpenStep) Execute(_ context.Context, c *Context) error {
	return s.Opener.OpenFile(c.OutputFile)
}
