package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/philipparndt/modelforge/internal/operation"
)

// renderCustomizeHelp renders the help text for the customize command with lipgloss styling
func renderCustomizeHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginTop(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("10"))

	commandStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("14"))

	commentStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Examples"))
	b.WriteString("\n\n")

	examples := []struct {
		title   string
		command string
	}{
		{"Describe the change in plain language", `modelforge customize vase.stl -p "make it twice as big"`},
		{"Start from a built-in model and write 3MF", `modelforge customize builtin-cube -p "paint it blue" -f 3mf`},
		{"Apply an operation directly", `modelforge customize bracket.obj --operation rotate --params '{"axis":"z","degrees":90}'`},
		{"Send the result to a printer profile", `modelforge customize part.3mf -p "add a base" --printer printer_1234`},
	}
	for _, e := range examples {
		b.WriteString(sectionStyle.Render(e.title))
		b.WriteString("\n")
		b.WriteString("  " + commandStyle.Render(e.command))
		b.WriteString("\n\n")
	}

	b.WriteString(sectionStyle.Render("Operations:"))
	b.WriteString("\n")

	names := operation.Names()
	maxWidth := 0
	for _, n := range names {
		if len(n) > maxWidth {
			maxWidth = len(n)
		}
	}
	for _, n := range names {
		padding := strings.Repeat(" ", maxWidth-len(n)+2)
		b.WriteString("  " + flagStyle.Render(n) + padding + commentStyle.Render(operationHelp[n]))
		b.WriteString("\n")
	}

	return b.String()
}

var operationHelp = map[string]string{
	"scale":    "Resize by a factor",
	"rotate":   "Turn around the x, y or z axis",
	"mirror":   "Mirror along one axis",
	"move":     "Move the model by an offset",
	"color":    "Set the display color",
	"resize":   "Set one dimension in millimeters",
	"addBase":  "Add a flat base below the model",
	"hollow":   "Remove the inside, keeping a wall",
	"support":  "Add supports below overhangs",
	"addHoles": "Drill holes through the model",
	"modify":   "Free-form change that could not be mapped to an operation",
}
