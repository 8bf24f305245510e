package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/philipparndt/modelforge/internal/app"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/printer"
	"github.com/philipparndt/modelforge/internal/ui"
)

type PrinterCmd struct {
	List    PrinterListCmd    `cmd:"" default:"1" help:"List printer profiles"`
	Add     PrinterAddCmd     `cmd:"" help:"Add a printer profile"`
	Remove  PrinterRemoveCmd  `cmd:"" help:"Remove a printer profile"`
	Default PrinterDefaultCmd `cmd:"" help:"Choose the default printer"`
	Test    PrinterTestCmd    `cmd:"" help:"Test the connection to a printer"`
	Send    PrinterSendCmd    `cmd:"" help:"Send a model file to a printer"`
	Export  PrinterExportCmd  `cmd:"" help:"Write a backup of all profiles"`
	Import  PrinterImportCmd  `cmd:"" help:"Replace all profiles with a backup"`
}

type PrinterListCmd struct{}

func (c *PrinterListCmd) Run(g *Globals) error {
	store, err := printerStore(g)
	if err != nil {
		return err
	}
	profiles, err := store.List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		ui.PrintInfo("No printer profiles configured. Add one with: modelforge printer add")
		return nil
	}
	defaultID, err := store.DefaultID()
	if err != nil {
		return err
	}

	table := ui.NewTable(2, 44, 20, 10)
	table.PrintHeader("", "ID", "Name", "Type")
	for _, p := range profiles {
		marker := ""
		if p.ID == defaultID {
			marker = "*"
		}
		table.PrintRow(marker, p.ID, p.Name, string(p.Type))
		if target := p.Target(); target != "" {
			ui.PrintItem(target)
		}
	}
	return nil
}

type PrinterAddCmd struct {
	Name       string `arg:"" help:"Display name"`
	Type       string `help:"Connection type" enum:"slicer,octoprint,klipper,prusalink,usb" default:"slicer" short:"t"`
	Slicer     string `help:"Slicer: prusaslicer, cura, orcaslicer, superslicer, simplify3d or bambustudio" default:"prusaslicer"`
	SlicerPath string `help:"Slicer executable (default: platform install location)" type:"path"`
	SlicerArgs string `help:"Slicer arguments; {file} is replaced by the model path" default:"--load {file}"`
	URL        string `help:"Printer API URL" name:"url"`
	APIKey     string `help:"Printer API key" name:"api-key"`
	Port       string `help:"Serial port"`
	Baud       int    `help:"Serial speed" default:"115200"`
	AutoStart  bool   `help:"Start printing after upload"`
	Default    bool   `help:"Make this the default printer"`
}

func (c *PrinterAddCmd) Run(g *Globals) error {
	store, err := printerStore(g)
	if err != nil {
		return err
	}

	p := printer.NewProfile(c.Name, printer.ConnectionType(c.Type))
	p.SlicerType = printer.SlicerType(c.Slicer)
	p.SlicerPath = c.SlicerPath
	if p.Type == printer.ConnectionSlicer && p.SlicerPath == "" {
		p.SlicerPath = printer.DefaultSlicerPath(p.SlicerType)
	}
	p.SlicerArgs = c.SlicerArgs
	p.APIURL = c.URL
	p.APIKey = c.APIKey
	p.Port = c.Port
	p.BaudRate = c.Baud
	p.AutoStart = c.AutoStart

	saved, err := store.Save(p)
	if err != nil {
		return err
	}
	if c.Default {
		if err := store.SetDefault(saved.ID); err != nil {
			return err
		}
	}
	ui.PrintSuccess(fmt.Sprintf("Added %s", saved.Name))
	ui.PrintKeyValue("ID", saved.ID)
	return nil
}

type PrinterRemoveCmd struct {
	ID string `arg:"" help:"Profile id"`
}

func (c *PrinterRemoveCmd) Run(g *Globals) error {
	store, err := printerStore(g)
	if err != nil {
		return err
	}
	if err := store.Delete(c.ID); err != nil {
		return err
	}
	ui.PrintSuccess("Removed " + c.ID)
	return nil
}

type PrinterDefaultCmd struct {
	ID string `arg:"" optional:"" help:"Profile id; omit to clear the default"`
}

func (c *PrinterDefaultCmd) Run(g *Globals) error {
	store, err := printerStore(g)
	if err != nil {
		return err
	}
	if err := store.SetDefault(c.ID); err != nil {
		return err
	}
	if c.ID == "" {
		ui.PrintSuccess("Default printer cleared")
	} else {
		ui.PrintSuccess("Default printer set to " + c.ID)
	}
	return nil
}

type PrinterTestCmd struct {
	ID string `arg:"" optional:"" help:"Profile id (default: the default printer)"`
}

func (c *PrinterTestCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := resolvePrinter(a.Printers, c.ID)
	if err != nil {
		return err
	}
	if p == nil {
		return printer.ErrNoProfiles
	}
	res, err := a.Dispatcher.Test(ctx, p)
	if err != nil {
		return err
	}
	ui.PrintSuccess(res.Message)
	return nil
}

type PrinterSendCmd struct {
	File    string `arg:"" help:"STL, OBJ or 3MF file" type:"existingfile"`
	Printer string `help:"Profile id (default: the default printer, or the download folder without profiles)"`
}

func (c *PrinterSendCmd) Run(ctx context.Context, g *Globals) error {
	mesh, err := modelfile.Load(c.File)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := modelfile.Encode(modelfile.STL, &buf, mesh); err != nil {
		return err
	}

	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := resolvePrinter(a.Printers, c.Printer)
	if err != nil {
		return err
	}
	filename := modelfile.BaseName(c.File) + modelfile.STL.Extension()
	res, err := a.Dispatcher.Send(ctx, buf.Bytes(), filename, p, func(percent int, message string) {
		ui.PrintProgress(int64(percent), 100, message)
	})
	if err != nil {
		return err
	}
	ui.PrintSuccess(res.Message)
	if res.Instructions != "" {
		ui.PrintBox(res.Instructions)
	}
	return nil
}

type PrinterExportCmd struct {
	Output string `help:"Backup file (default: stdout)" short:"o" type:"path"`
}

func (c *PrinterExportCmd) Run(g *Globals) error {
	store, err := printerStore(g)
	if err != nil {
		return err
	}
	data, err := store.Export()
	if err != nil {
		return err
	}
	if c.Output == "" {
		return ui.HighlightJSON(os.Stdout, string(data))
	}
	if err := os.WriteFile(c.Output, data, 0o600); err != nil {
		return err
	}
	ui.PrintSuccess("Saved " + c.Output)
	return nil
}

type PrinterImportCmd struct {
	File string `arg:"" help:"Backup file" type:"existingfile"`
}

func (c *PrinterImportCmd) Run(g *Globals) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	store, err := printerStore(g)
	if err != nil {
		return err
	}
	n, err := store.Import(data)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Imported %d printer profiles", n))
	return nil
}

// printerStore opens only the profile file, without the databases
func printerStore(g *Globals) (*printer.Store, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return printer.NewStore(app.PrinterStorePath(cfg.Data.Dir)), nil
}
