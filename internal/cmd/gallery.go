package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/ui"
)

type GalleryCmd struct {
	List   GalleryListCmd   `cmd:"" default:"1" help:"List built-in and imported models"`
	Import GalleryImportCmd `cmd:"" help:"Import a model file"`
	Rename GalleryRenameCmd `cmd:"" help:"Rename an imported model"`
	Delete GalleryDeleteCmd `cmd:"" help:"Delete an imported model"`
	Export GalleryExportCmd `cmd:"" help:"Write the file of a model"`
	Search GallerySearchCmd `cmd:"" help:"Search Thingiverse and Printables"`
}

type GalleryListCmd struct {
	JSON bool `help:"Print JSON instead of a table"`
}

func (c *GalleryListCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	models, err := a.Gallery.List(ctx, a.User().ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return ui.PrintJSON(models)
	}

	ui.PrintHeader(fmt.Sprintf("Gallery (%s)", a.Accounts.Tier(ctx, a.User().ID)))
	table := ui.NewTable(38, 24, 6, 10)
	table.PrintHeader("ID", "Name", "Format", "Size")
	for _, m := range models {
		size := formatSize(m.FileSize)
		if m.Builtin {
			size = "built-in"
		}
		table.PrintRow(m.ID, m.Thumbnail+" "+m.Name, m.Format, size)
	}
	return nil
}

type GalleryImportCmd struct {
	File        string `arg:"" help:"STL, OBJ or 3MF file" type:"existingfile"`
	Name        string `help:"Display name (default: file name)" short:"n"`
	Description string `help:"Description" short:"d"`
}

func (c *GalleryImportCmd) Run(ctx context.Context, g *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Gallery.Import(ctx, a.User().ID, gallery.Upload{
		Filename:    filepath.Base(c.File),
		Name:        c.Name,
		Description: c.Description,
		Data:        data,
	})
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Imported %s", m.Name))
	ui.PrintKeyValue("ID", m.ID)
	return nil
}

type GalleryRenameCmd struct {
	ID   string `arg:"" help:"Model id"`
	Name string `arg:"" help:"New name"`
}

func (c *GalleryRenameCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Gallery.Rename(ctx, a.User().ID, c.ID, c.Name)
	if err != nil {
		return err
	}
	ui.PrintSuccess("Renamed to " + m.Name)
	return nil
}

type GalleryDeleteCmd struct {
	ID string `arg:"" help:"Model id"`
}

func (c *GalleryDeleteCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Gallery.Delete(ctx, a.User().ID, c.ID); err != nil {
		return err
	}
	ui.PrintSuccess("Deleted " + c.ID)
	return nil
}

type GalleryExportCmd struct {
	ID     string `arg:"" help:"Model id"`
	Output string `help:"Output file path (default: <name>.<format> in the current directory)" short:"o" type:"path"`
}

func (c *GalleryExportCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rc, m, err := a.Gallery.File(ctx, a.User().ID, c.ID)
	if err != nil {
		return err
	}
	defer rc.Close()

	output := c.Output
	if output == "" {
		output = modelfile.CleanName(m.Name) + modelfile.Format(m.Format).Extension()
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ui.PrintSuccess("Saved " + output)
	return nil
}

type GallerySearchCmd struct {
	Query    []string `arg:"" help:"Search terms"`
	Platform []string `help:"Only search these platforms"`
}

func (c *GallerySearchCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(c.Query, " ")
	results, err := a.Search.Search(ctx, query, c.Platform...)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		ui.PrintWarning("No models found for " + query)
		return nil
	}
	table := ui.NewTable(12, 40, 20)
	table.PrintHeader("Source", "Name", "Creator")
	for _, r := range results {
		table.PrintRow(r.Source, r.Name, r.Creator)
		ui.PrintItem(r.URL)
	}
	return nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
