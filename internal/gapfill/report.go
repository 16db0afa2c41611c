package gapfill

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbaricco/kimai-cli/internal/console"
	"github.com/pbaricco/kimai-cli/internal/git"
	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

// Hour total classes against the daily target.
const (
	LevelRed    = "red"
	LevelYellow = "yellow"
	LevelGreen  = "green"
)

// HoursColor classifies hours: below half the target is red, below 80% yellow.
func HoursColor(hours, target float64) string {
	switch {
	case hours < target*0.5:
		return LevelRed
	case hours < target*0.8:
		return LevelYellow
	default:
		return LevelGreen
	}
}

// CustomerReport is one customer's block on the day screen.
type CustomerReport struct {
	Customer       model.Customer
	DefaultProject string
	Timesheets     []model.Timesheet
	Commits        []model.Commit
	Rows           [][]string
	Hours          float64
	Level          string
}

// DayReport is everything rendered for one day.
type DayReport struct {
	Day        time.Time
	Customers  []CustomerReport
	TotalHours float64
}

// FormatTimesheet renders a timesheet cell: hours, start time, description, activity.
func FormatTimesheet(ts model.Timesheet) string {
	return strings.Join([]string{
		console.Pad(timecalc.FormatHours(timecalc.RoundHours(ts.Duration))+" h", 10),
		console.Pad(ts.Begin.Format("15:04"), 5),
		ts.Description,
		ts.Activity.Name,
	}, " - ")
}

// FormatCommit renders a commit cell: repository, author, time, subject.
func FormatCommit(c model.Commit) string {
	return strings.Join([]string{
		console.Pad(c.Repo, 20),
		c.Author,
		c.Date,
		c.Message,
	}, " - ")
}

// BuildRows zips the two columns. The shorter side is filled with blanks.
func BuildRows(commits, timesheets []string) [][]string {
	n := max(len(commits), len(timesheets))
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		var c, t string
		if i < len(commits) {
			c = commits[i]
		}
		if i < len(timesheets) {
			t = timesheets[i]
		}
		rows = append(rows, []string{strings.TrimSpace(c), strings.TrimSpace(t)})
	}
	return rows
}

// BuildDayReport queries timesheets and commits for every registry customer
// on day. Git failures are logged and count as no commits.
func (s *Session) BuildDayReport(ctx context.Context, day time.Time) (DayReport, error) {
	from, to := timecalc.StartOfDay(day), timecalc.EndOfDay(day)
	report := DayReport{Day: from}
	var total float64

	for _, entry := range s.opts.Registry {
		cr := CustomerReport{Customer: model.Customer{ID: entry.CustomerID}}

		customers, err := s.store.CustomersByIDs(ctx, []int64{entry.CustomerID})
		if err != nil {
			return report, fmt.Errorf("loading customer %d: %w", entry.CustomerID, err)
		}
		if len(customers) > 0 {
			cr.Customer = customers[0]
		} else {
			s.log.Warn("customer from registry not found", zap.Int64("customer_id", entry.CustomerID))
		}

		projects, err := s.store.ProjectsForCustomers(ctx, []int64{entry.CustomerID})
		if err != nil {
			return report, fmt.Errorf("loading projects of customer %d: %w", entry.CustomerID, err)
		}
		if len(projects) > 0 {
			cr.DefaultProject = projects[0].Name
		}

		cr.Timesheets, err = s.store.TimesheetsForQuery(ctx, model.TimesheetQuery{
			User:      s.user,
			Customers: []int64{entry.CustomerID},
			Begin:     from,
			End:       to,
		})
		if err != nil {
			return report, fmt.Errorf("loading timesheets of customer %d: %w", entry.CustomerID, err)
		}

		cr.Commits = s.commits(ctx, entry.Remotes, from, to)

		var seconds int64
		tsCol := make([]string, 0, len(cr.Timesheets))
		for _, ts := range cr.Timesheets {
			seconds += ts.Duration
			tsCol = append(tsCol, FormatTimesheet(ts))
		}
		commitCol := make([]string, 0, len(cr.Commits))
		for _, c := range cr.Commits {
			commitCol = append(commitCol, FormatCommit(c))
		}

		cr.Rows = BuildRows(commitCol, tsCol)
		cr.Hours = timecalc.RoundHours(seconds)
		cr.Level = HoursColor(cr.Hours, s.opts.TargetHours)
		total += cr.Hours
		report.Customers = append(report.Customers, cr)
	}

	report.TotalHours = math.Round(total*100) / 100
	return report, nil
}

func (s *Session) commits(ctx context.Context, remotes []string, from, to time.Time) []model.Commit {
	var out []model.Commit
	for _, url := range remotes {
		path := git.CachePath(s.opts.CacheDir, url)
		found, err := s.git.ListCommits(ctx, path, git.RepoName(url), from, to)
		if err != nil {
			s.log.Warn("git log failed", zap.String("remote", url), zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, found...)
	}
	return out
}

var levelColors = map[string]string{
	LevelRed:    console.ColorRed,
	LevelYellow: console.ColorYellow,
	LevelGreen:  console.ColorGreen,
}

func (s *Session) paint(color, text string) string {
	if !s.opts.Color {
		return text
	}
	return console.Colorize(color, text)
}

// PrintDayReport writes the day screen to w.
func (s *Session) PrintDayReport(w io.Writer, r DayReport) {
	if s.opts.ClearScreen {
		console.ClearScreen(w)
	}
	fmt.Fprintln(w, timecalc.FormatDayShort(r.Day))
	dayColor := console.ColorGreen
	if timecalc.IsWeekend(r.Day) {
		dayColor = console.ColorRed
	}
	fmt.Fprintln(w, s.paint(dayColor, r.Day.Weekday().String()))

	for _, c := range r.Customers {
		fmt.Fprintf(w, "\n\n%s: %s, Default project: %s\n",
			s.paint(console.ColorMagenta, fmt.Sprint(c.Customer.ID)),
			s.paint(console.ColorCyan, c.Customer.Name),
			s.paint(console.ColorYellow, c.DefaultProject))
		fmt.Fprintf(w, "Total hours: %s\n", s.paint(levelColors[c.Level], timecalc.FormatHours(c.Hours)))

		console.Table{
			Headers:   []string{"Commits", "Timesheets"},
			Rows:      c.Rows,
			MinWidths: []int{s.opts.ColumnWidth, s.opts.ColumnWidth},
		}.Render(w)
	}

	fmt.Fprintf(w, "\n\n%s\n\n", s.paint(console.ColorGreen, "Total hours: "+timecalc.FormatHours(r.TotalHours)))
}
