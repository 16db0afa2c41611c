package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/pbaricco/kimai-cli/internal/console"
	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

var (
	reportPeriod string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report <user>",
	Short: "Show hours per customer and project",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportPeriod, "period", "week", "week, month, week-n or month-n")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, json")
}

type reportLine struct {
	Customer string  `json:"customer"`
	Project  string  `json:"project"`
	Hours    float64 `json:"hours"`
	seconds  int64
}

// aggregate sums durations per customer and project, sorted by both names.
func aggregate(entries []model.Timesheet) ([]reportLine, float64) {
	index := map[[2]string]int{}
	var lines []reportLine
	var total int64
	for _, e := range entries {
		customer := ""
		if e.Project.Customer != nil {
			customer = e.Project.Customer.Name
		}
		key := [2]string{customer, e.Project.Name}
		i, ok := index[key]
		if !ok {
			i = len(lines)
			index[key] = i
			lines = append(lines, reportLine{Customer: customer, Project: e.Project.Name})
		}
		lines[i].seconds += e.Duration
		total += e.Duration
	}
	for i := range lines {
		lines[i].Hours = timecalc.RoundHours(lines[i].seconds)
	}
	sort.Slice(lines, func(a, b int) bool {
		if lines[a].Customer != lines[b].Customer {
			return lines[a].Customer < lines[b].Customer
		}
		return lines[a].Project < lines[b].Project
	})
	return lines, timecalc.RoundHours(total)
}

func runReport(cmd *cobra.Command, args []string) error {
	entries, err := queryTimesheets(cmd, args[0], reportPeriod, 0)
	if err != nil {
		return err
	}
	lines, total := aggregate(entries)
	return printReport(cmd.OutOrStdout(), reportFormat, lines, total)
}

func printReport(w io.Writer, format string, lines []reportLine, total float64) error {
	switch format {
	case "json":
		data, err := sonic.ConfigStd.MarshalIndent(map[string]any{
			"period":   reportPeriod,
			"projects": lines,
			"total":    total,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "md":
		rows := make([][]string, 0, len(lines)+1)
		for _, l := range lines {
			rows = append(rows, []string{l.Customer, l.Project, timecalc.FormatHours(l.Hours)})
		}
		rows = append(rows, []string{"Total", "", timecalc.FormatHours(total)})
		console.Table{Headers: []string{"Customer", "Project", "Hours"}, Rows: rows}.Render(w)
	default:
		return fmt.Errorf("unknown report format %q (md, json)", format)
	}
	return nil
}
