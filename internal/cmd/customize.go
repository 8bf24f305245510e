package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/philipparndt/modelforge/internal/app"
	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/internal/pipeline"
	"github.com/philipparndt/modelforge/internal/printer"
	"github.com/philipparndt/modelforge/internal/ui"
)

type CustomizeCmd struct {
	Model     string `arg:"" help:"Model file (.stl, .obj, .3mf) or gallery model id"`
	Prompt    string `help:"What to change, e.g. \"make it twice as big\"" short:"p"`
	Operation string `help:"Apply this operation instead of interpreting a prompt"`
	Params    string `help:"JSON parameters of --operation" default:"{}"`
	Output    string `help:"Output file path (default: <name>_custom.<format>)" short:"o" type:"path"`
	Format    string `help:"Output format: stl, obj or 3mf" short:"f"`
	Printer   string `help:"Send to this printer profile (id)"`
	Send      bool   `help:"Send the result to the default printer, or save it to the download folder"`
	Open      bool   `help:"Open the result file in the default application"`
}

// Help adds additional help text with examples
func (c *CustomizeCmd) Help() string {
	return renderCustomizeHelp()
}

func (c *CustomizeCmd) Run(ctx context.Context, g *Globals) error {
	if (c.Prompt == "") == (c.Operation == "") {
		return errors.New("use either --prompt or --operation")
	}

	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := c.request(ctx, a)
	if err != nil {
		return err
	}

	planner := pipeline.NewPlanner(a.Interpreter, a.Transform, a.Dispatcher, a.Desktop).
		WithNotify(func(percent int, message string) {
			ui.PrintProgress(int64(percent), 100, message)
		})
	plan, err := planner.CreatePlan(req)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return plan.Execute(ctx)
}

func (c *CustomizeCmd) request(ctx context.Context, a *app.App) (pipeline.Request, error) {
	req := pipeline.Request{
		Prompt: c.Prompt,
		Output: c.Output,
		Send:   c.Send || c.Printer != "",
		Open:   c.Open,
	}

	if c.Format != "" {
		f, err := modelfile.ParseFormat(c.Format)
		if err != nil {
			return req, err
		}
		req.Format = f
	}

	if c.Operation != "" {
		op, err := operation.Decode(c.Operation, json.RawMessage(c.Params))
		if err != nil {
			return req, err
		}
		req.Instruction = operation.NewInstruction(op)
	}

	if _, err := os.Stat(c.Model); err == nil {
		req.Input = c.Model
	} else {
		mesh, err := a.Gallery.Open(ctx, a.User().ID, c.Model)
		if errors.Is(err, gallery.ErrNotFound) {
			return req, fmt.Errorf("%s is neither a file nor a gallery model", c.Model)
		}
		if err != nil {
			return req, err
		}
		req.Mesh = mesh
	}

	if req.Send {
		p, err := resolvePrinter(a.Printers, c.Printer)
		if err != nil {
			return req, err
		}
		req.Printer = p
	}
	return req, nil
}

// resolvePrinter returns the profile with id, the default profile when id is
// empty, or nil when no profiles exist so the dispatcher falls back to a download
func resolvePrinter(store *printer.Store, id string) (*printer.Profile, error) {
	if id != "" {
		return store.Get(id)
	}
	p, err := store.Default()
	if errors.Is(err, printer.ErrNoProfiles) {
		return nil, nil
	}
	return p, err
}
