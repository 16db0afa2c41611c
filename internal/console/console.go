// Package console holds the terminal helpers used by the interactive commands:
// ANSI colours, screen clearing, display-width padding and bordered tables.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Terminal control sequences
const (
	ColorReset   = "\033[0m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorRed     = "\033[31m"
	ColorCyan    = "\033[36m"
	ColorMagenta = "\033[35m"

	clearScreen    = "\033[2J"
	moveCursorHome = "\033[H"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// Colorize wraps s in the given colour sequence.
func Colorize(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + ColorReset
}

// ClearScreen wipes the terminal and homes the cursor.
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, clearScreen+moveCursorHome)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of w, or DefaultWidth when unknown.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// FitColumns returns the cell width that lets cols bordered columns fit in
// width terminal cells, capped at limit and never below minColumnWidth.
func FitColumns(width, cols, limit int) int {
	if cols <= 0 {
		return limit
	}
	fit := (width - 3*cols - 1) / cols
	if fit < minColumnWidth {
		fit = minColumnWidth
	}
	if limit > 0 && fit > limit {
		return limit
	}
	return fit
}

const minColumnWidth = 20

// DisplayWidth is the number of terminal cells s occupies.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Pad right-pads s with spaces to width cells. Longer strings are returned as is.
func Pad(s string, width int) string {
	w := DisplayWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// Table renders rows in the bordered layout:
//
//	+---------+------------+
//	| Commits | Timesheets |
//	+---------+------------+
//	| ...     | ...        |
//	+---------+------------+
type Table struct {
	Headers []string
	Rows    [][]string
	// MinWidths sets a lower bound on the content width of each column.
	MinWidths []int
}

// Render writes the table to w.
func (t Table) Render(w io.Writer) {
	widths := t.widths()
	t.border(w, widths)
	if len(t.Headers) > 0 {
		t.row(w, widths, t.Headers)
		t.border(w, widths)
	}
	for _, r := range t.Rows {
		t.row(w, widths, r)
	}
	if len(t.Rows) > 0 {
		t.border(w, widths)
	}
}

func (t Table) columns() int {
	n := len(t.Headers)
	for _, r := range t.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

func (t Table) widths() []int {
	widths := make([]int, t.columns())
	for i := range widths {
		if i < len(t.MinWidths) {
			widths[i] = t.MinWidths[i]
		}
	}
	measure := func(cells []string) {
		for i, c := range cells {
			if w := DisplayWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, r := range t.Rows {
		measure(r)
	}
	return widths
}

func (t Table) border(w io.Writer, widths []int) {
	var b strings.Builder
	b.WriteString("+")
	for _, width := range widths {
		b.WriteString(strings.Repeat("-", width+2))
		b.WriteString("+")
	}
	fmt.Fprintln(w, b.String())
}

func (t Table) row(w io.Writer, widths []int, cells []string) {
	var b strings.Builder
	b.WriteString("|")
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		b.WriteString(" ")
		b.WriteString(Pad(cell, width))
		b.WriteString(" |")
	}
	fmt.Fprintln(w, b.String())
}
