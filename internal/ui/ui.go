package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#00D9FF")
	successColor   = lipgloss.Color("#04B575")
	errorColor     = lipgloss.Color("#FF5F87")
	warningColor   = lipgloss.Color("#FFAF00")
	mutedColor     = lipgloss.Color("#626262")

	indent = lipgloss.NewStyle().PaddingLeft(2)
	muted  = lipgloss.NewStyle().Foreground(mutedColor)
	label  = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)

	banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		Margin(1, 0).
		PaddingLeft(1)

	section = lipgloss.NewStyle().
		Bold(true).
		Foreground(secondaryColor).
		MarginTop(1).
		PaddingLeft(1)

	framed = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(0, 1).
		Margin(1, 0)
)

// icon pairs a symbol with the color of the message that follows it
type icon struct {
	symbol string
	color  lipgloss.Color
	bold   bool
}

var (
	iconStep    = icon{"→", secondaryColor, false}
	iconItem    = icon{"•", mutedColor, false}
	iconSuccess = icon{"✓", successColor, true}
	iconError   = icon{"✗", errorColor, true}
	iconWarning = icon{"⚠", warningColor, false}
)

func (i icon) line(message string, colored bool) string {
	mark := lipgloss.NewStyle().Foreground(i.color).Bold(i.bold).Render(i.symbol)
	if colored {
		message = lipgloss.NewStyle().Foreground(i.color).Bold(i.bold).Render(message)
	}
	return mark + " " + message
}

// PrintTitle prints the framed name of a major section
func PrintTitle(title string) {
	fmt.Println(banner.Render("╭─ " + title + " ─╮"))
}

// PrintHeader prints a section header
func PrintHeader(title string) {
	fmt.Println(section.Render("\n▸ " + title))
}

func PrintStep(step string) {
	fmt.Println(indent.Render(iconStep.line(step, false)))
}

func PrintItem(item string) {
	fmt.Println(indent.PaddingLeft(4).Render(iconItem.line(item, false)))
}

func PrintSuccess(message string) {
	fmt.Println(indent.Render(iconSuccess.line(message, true)))
}

func PrintError(message string) {
	fmt.Println(indent.Render(iconError.line(message, true)))
}

func PrintWarning(message string) {
	fmt.Println(indent.Render(iconWarning.line(message, true)))
}

// PrintInfo prints a muted note
func PrintInfo(message string) {
	fmt.Println(indent.Render(muted.Render(message)))
}

// PrintBox prints text in a rounded frame
func PrintBox(content string) {
	fmt.Println(framed.Render(content))
}

func PrintSeparator() {
	fmt.Println(muted.Render(strings.Repeat("─", 45)))
}

// PrintKeyValue prints "key: value" with the key highlighted
func PrintKeyValue(key, value string) {
	fmt.Println(indent.Render(label.Render(key+":") + " " + value))
}

// Swatch renders a small block in the given #RRGGBB color followed by the hex code
func Swatch(hex string) string {
	block := lipgloss.NewStyle().
		Background(lipgloss.Color(hex)).
		Render("   ")
	return block + " " + hex
}

// Table prints rows under a header with fixed column widths
type Table struct {
	Widths []int
}

// NewTable creates a table with the given column widths
func NewTable(widths ...int) *Table {
	return &Table{Widths: widths}
}

// fit pads col to w, or cuts it. Cut columns end in "..." when ellipsis is set.
func fit(col string, w int, ellipsis bool) string {
	switch {
	case len(col) <= w:
		return col + strings.Repeat(" ", w-len(col))
	case ellipsis && w > 3:
		return col[:w-3] + "..."
	default:
		return col[:w]
	}
}

func (t *Table) format(columns []string, ellipsis bool) string {
	var b strings.Builder
	for i, col := range columns {
		if i >= len(t.Widths) {
			break
		}
		b.WriteString(fit(col, t.Widths[i], ellipsis))
		if i < len(columns)-1 {
			b.WriteString(" │ ")
		}
	}
	return b.String()
}

// PrintHeader prints the header row over a ruler matching the column widths
func (t *Table) PrintHeader(headers ...string) {
	fmt.Println(indent.Render(label.Render(t.format(headers, false))))

	var ruler []string
	for i := range headers {
		if i >= len(t.Widths) {
			break
		}
		ruler = append(ruler, strings.Repeat("─", t.Widths[i]))
	}
	fmt.Println(indent.Render(muted.Render(strings.Join(ruler, "─┼─"))))
}

// PrintRow prints a formatted row
func (t *Table) PrintRow(columns ...string) {
	if len(columns) == 0 {
		return
	}
	fmt.Println(indent.Render(t.format(columns, true)))
}

// PrintJSON pretty-prints v as syntax highlighted JSON
func PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return HighlightJSON(os.Stdout, string(data))
}

// HighlightJSON writes source with terminal colors. Output that is not a
// terminal gets the plain text.
func HighlightJSON(w io.Writer, source string) error {
	if f, ok := w.(*os.File); !ok || !isTerminal(f) {
		_, err := fmt.Fprintln(w, source)
		return err
	}
	if err := quick.Highlight(w, source+"\n", "json", "terminal256", "monokai"); err != nil {
		_, err = fmt.Fprintln(w, source)
		return err
	}
	return nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

var verbose bool

// SetVerbose enables plain progress output
func SetVerbose(v bool) {
	verbose = v
}

// IsVerbose checks if verbose output is enabled
func IsVerbose() bool {
	// CI logs do not handle carriage returns well
	if os.Getenv("CI") != "" {
		return true
	}
	return verbose
}

// PrintProgress prints a progress indicator
func PrintProgress(current, total int64, message string) {
	if total <= 0 {
		return
	}
	if IsVerbose() {
		if current >= total {
			PrintInfo(message + " done")
		}
		return
	}

	const width = 30
	filled := min(current*width/total, width)
	bar := strings.Repeat("█", int(filled)) + strings.Repeat("░", int(width-filled))

	// the carriage return redraws the bar in place
	fmt.Printf("\r  [%s] %3d%% %s", bar, current*100/total, message)
	if current >= total {
		fmt.Println()
	}
}
