package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pbaricco/kimai-cli/internal/model"
)

type csvExporter struct{ dir string }

func (csvExporter) ID() string { return "csv" }

func (e csvExporter) Render(entries []model.Timesheet, _ model.TimesheetQuery) (*Result, error) {
	return writeTemp(e.dir, "csv", func(out io.Writer) error {
		w := bufio.NewWriter(out)
		writeCSVLine(w, columns)
		for _, ts := range entries {
			writeCSVLine(w, row(ts))
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		return nil
	})
}

func writeCSVLine(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(csvEscape(field))
	}
	w.WriteByte('\n')
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type markdownExporter struct{ dir string }

func (markdownExporter) ID() string { return "md" }

func (e markdownExporter) Render(entries []model.Timesheet, q model.TimesheetQuery) (*Result, error) {
	return writeTemp(e.dir, "md", func(out io.Writer) error {
		w := bufio.NewWriter(out)
		fmt.Fprintf(w, "# Timesheets %s – %s\n\n", q.Begin.Format("2006-01-02"), q.End.Format("2006-01-02"))
		writeMarkdownLine(w, columns)
		sep := make([]string, len(columns))
		for i := range sep {
			sep[i] = "---"
		}
		writeMarkdownLine(w, sep)
		for _, ts := range entries {
			writeMarkdownLine(w, row(ts))
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("writing markdown: %w", err)
		}
		return nil
	})
}

var mdCell = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func writeMarkdownLine(w *bufio.Writer, cells []string) {
	w.WriteString("|")
	for _, c := range cells {
		w.WriteString(" " + mdCell.Replace(c) + " |")
	}
	w.WriteString("\n")
}
