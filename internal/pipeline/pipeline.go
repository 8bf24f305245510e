// Package pipeline plans and runs a model customization: load, interpret,
// apply, export and optionally hand the result to a printer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/philipparndt/modelforge/internal/geometry"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/internal/printer"
	"github.com/philipparndt/modelforge/internal/prompt"
	"github.com/philipparndt/modelforge/internal/transform"
	"github.com/philipparndt/modelforge/internal/ui"
)

// Step is a single step of a plan
type Step interface {
	Name() string
	Execute(ctx context.Context, c *Context) error
}

// Context holds the data passed between the steps of one plan
type Context struct {
	InputPath   string
	Prompt      string
	Instruction *operation.Instruction
	Mesh        *geometry.Mesh
	Result      *geometry.Mesh
	Format      modelfile.Format
	OutputFile  string
	Delivery    *printer.Result
}

// Plan is an ordered list of steps sharing one context
type Plan struct {
	Steps []Step
	ctx   *Context
}

// Context returns the state after (or during) execution
func (p *Plan) Context() *Context {
	return p.ctx
}

// Request describes a customization
type Request struct {
	// Input is a model file; ignored when Mesh is set
	Input string
	Mesh  *geometry.Mesh
	// Prompt is interpreted unless Instruction is set
	Prompt      string
	Instruction *operation.Instruction
	Output      string
	Format      modelfile.Format
	// Send delivers the result to Printer, or to the download folder when Printer is nil
	Send    bool
	Printer *printer.Profile
	Open    bool
}

// Sender delivers an STL payload
type Sender interface {
	Send(ctx context.Context, payload []byte, filename string, p *printer.Profile, notify printer.Notify) (*printer.Result, error)
}

// Opener opens a file with its default application
type Opener interface {
	OpenFile(path string) error
}

// Planner creates plans from requests
type Planner struct {
	interpreter prompt.Interpreter
	transform   *transform.Dispatcher
	sender      Sender
	opener      Opener
	notify      printer.Notify
}

// NewPlanner creates a planner. sender and opener are only needed for plans that use them.
func NewPlanner(interpreter prompt.Interpreter, tr *transform.Dispatcher, sender Sender, opener Opener) *Planner {
	return &Planner{interpreter: interpreter, transform: tr, sender: sender, opener: opener}
}

// WithNotify reports upload progress of the dispatch step
func (p *Planner) WithNotify(n printer.Notify) *Planner {
	p.notify = n
	return p
}

// CreatePlan validates the request and lays out the steps
func (p *Planner) CreatePlan(req Request) (*Plan, error) {
	if req.Mesh == nil && req.Input == "" {
		return nil, errors.New("no input model")
	}
	if req.Instruction == nil && req.Prompt == "" {
		return nil, errors.New("no prompt or instruction")
	}
	if req.Send && p.sender == nil {
		return nil, errors.New("no printer dispatcher configured")
	}
	if req.Open && p.opener == nil {
		return nil, errors.New("no opener configured")
	}

	format := req.Format
	if format == "" {
		format = modelfile.STL
		if f, err := modelfile.DetectFormat(req.Output); req.Output != "" && err == nil {
			format = f
		}
	}
	output := req.Output
	if output != "" {
		if f, err := modelfile.DetectFormat(output); err != nil || f != format {
			return nil, fmt.Errorf("output %s does not match format %s", output, format)
		}
	} else {
		name := "model"
		dir := "."
		if req.Mesh != nil && req.Mesh.Name != "" {
			name = req.Mesh.Name
		}
		if req.Input != "" {
			name = modelfile.BaseName(req.Input)
			dir = filepath.Dir(req.Input)
		}
		output = modelfile.OutputPath(dir, name, format)
	}

	c := &Context{
		InputPath:   req.Input,
		Prompt:      req.Prompt,
		Instruction: req.Instruction,
		Mesh:        req.Mesh,
		Format:      format,
		OutputFile:  output,
	}
	plan := &Plan{ctx: c}

	plan.Steps = append(plan.Steps, &CheckPreconditionsStep{})
	if c.Mesh == nil {
		plan.Steps = append(plan.Steps, &LoadModelStep{})
	}
	if c.Instruction == nil {
		plan.Steps = append(plan.Steps, &InterpretStep{Interpreter: p.interpreter})
	}
	plan.Steps = append(plan.Steps,
		&ApplyOperationStep{Transform: p.transform},
		&ExportStep{},
	)
	if req.Send {
		plan.Steps = append(plan.Steps, &DispatchStep{Sender: p.sender, Printer: req.Printer, Notify: p.notify})
	}
	if req.Open {
		plan.Steps = append(plan.Steps, &OpenStep{Opener: p.opener})
	}
	return plan, nil
}

// Execute runs all steps in order and stops at the first failure
func (p *Plan) Execute(ctx context.Context) error {
	if ui.IsVerbose() {
		ui.PrintTitle("Customization Plan")
		ui.PrintInfo(fmt.Sprintf("Total steps: %d", len(p.Steps)))
		ui.PrintSeparator()
	}

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ui.IsVerbose() {
			ui.PrintHeader(fmt.Sprintf("Step %d/%d: %s", i+1, len(p.Steps), step.Name()))
		}
		if err := step.Execute(ctx, p.ctx); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	ui.PrintSeparator()
	ui.PrintSuccess("Customization completed successfully!")
	relPath, err := filepath.Rel(".", p.ctx.OutputFile)
	if err != nil {
		relPath = p.ctx.OutputFile
	}
	ui.PrintKeyValue("Output file", relPath)
	return nil
}
