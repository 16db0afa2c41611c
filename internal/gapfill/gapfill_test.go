package gapfill

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pbaricco/kimai-cli/internal/config"
	"github.com/pbaricco/kimai-cli/internal/git"
	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/storage"
)

// memStore is an in-memory Store.
type memStore struct {
	customers  []model.Customer
	projects   []model.Project
	rates      []model.CustomerRate
	activities []model.Activity
	timesheets []model.Timesheet
	saved      []model.Timesheet
	queries    []model.TimesheetQuery
}

func (m *memStore) CustomersByIDs(_ context.Context, ids []int64) ([]model.Customer, error) {
	var out []model.Customer
	for _, id := range ids {
		for _, c := range m.customers {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (m *memStore) ProjectsForCustomers(_ context.Context, ids []int64) ([]model.Project, error) {
	var out []model.Project
	for _, p := range m.projects {
		for _, id := range ids {
			if p.CustomerID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m *memStore) TimesheetsForQuery(_ context.Context, q model.TimesheetQuery) ([]model.Timesheet, error) {
	m.queries = append(m.queries, q)
	var out []model.Timesheet
	for _, ts := range m.timesheets {
		if ts.Begin.Before(q.Begin) || ts.Begin.After(q.End) {
			continue
		}
		for _, id := range q.Customers {
			if ts.Project.CustomerID == id {
				out = append(out, ts)
			}
		}
	}
	return out, nil
}

func (m *memStore) RatesForCustomer(_ context.Context, id int64) ([]model.CustomerRate, error) {
	var out []model.CustomerRate
	for _, r := range m.rates {
		if r.CustomerID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ActivityByID(_ context.Context, id int64) (model.Activity, error) {
	for _, a := range m.activities {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Activity{}, storage.ErrNotFound
}

func (m *memStore) SaveTimesheet(_ context.Context, ts *model.Timesheet) error {
	ts.ID = int64(len(m.saved) + 1)
	ts.End = ts.Begin.Add(time.Duration(ts.Duration) * time.Second)
	m.saved = append(m.saved, *ts)
	return nil
}

// fakeGit serves commits per clone path.
type fakeGit struct {
	commits map[string][]model.Commit
	fail    map[string]bool
}

func (f *fakeGit) ListCommits(_ context.Context, path, name string, _, _ time.Time) ([]model.Commit, error) {
	if f.fail[path] {
		return nil, errors.New("not a git repository")
	}
	var out []model.Commit
	for _, c := range f.commits[path] {
		c.Repo = name
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeGit) EnsureCloned(context.Context, string, string) (bool, error) { return false, nil }

func (f *fakeGit) Pull(context.Context, string) error { return errors.New("no network") }

type fixedRand int

func (r fixedRand) Intn(int) int { return int(r) }

const (
	cacheDir   = "/cache"
	remoteWeb  = "git@github.com:acme/website.git"
	remoteApp  = "git@github.com:acme/app.git"
	remoteBill = "git@github.com:globex/billing.git"
)

var wednesday = time.Date(2024, 6, 12, 0, 0, 0, 0, time.Local)

func fixture() (*memStore, *fakeGit) {
	acme := model.Customer{ID: 1, Name: "Acme"}
	globex := model.Customer{ID: 2, Name: "Globex"}
	devel := model.Activity{ID: 2, Name: "devel"}
	website := model.Project{ID: 10, CustomerID: 1, Name: "Website", Customer: &acme}
	at := func(h, m int) time.Time {
		return wednesday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	}

	store := &memStore{
		customers: []model.Customer{acme, globex},
		projects: []model.Project{
			website,
			{ID: 20, CustomerID: 2, Name: "Billing"},
			{ID: 21, CustomerID: 2, Name: "Support"},
		},
		rates:      []model.CustomerRate{{ID: 1, CustomerID: 1, Rate: 60}, {ID: 2, CustomerID: 1, Rate: 90}},
		activities: []model.Activity{devel},
		timesheets: []model.Timesheet{
			{Project: website, Activity: devel, Begin: at(9, 0), Duration: 3600, Description: "homepage"},
			{Project: website, Activity: devel, Begin: at(11, 30), Duration: 5400, Description: "login"},
			{Project: website, Activity: devel, Begin: at(15, 0), Duration: 1800, Description: "deploy"},
			{Project: website, Activity: devel, Begin: at(33, 0), Duration: 3600, Description: "tomorrow"},
		},
	}
	gc := &fakeGit{commits: map[string][]model.Commit{
		git.CachePath(cacheDir, remoteWeb): {{Hash: "a1", Date: "09:12", Author: "Pietro", Message: "Homepage hero"}},
		git.CachePath(cacheDir, remoteApp): {{Hash: "b2", Date: "11:40", Author: "Pietro", Message: "Login form"}},
	}}
	return store, gc
}

func options() Options {
	return Options{
		Registry: []config.CustomerRepos{
			{CustomerID: 1, Remotes: []string{remoteWeb, remoteApp}},
			{CustomerID: 2, Remotes: []string{remoteBill}},
		},
		CacheDir:    cacheDir,
		ActivityID:  2,
		TargetHours: 8,
		ColumnWidth: 10,
		PauseAfter:  2 * time.Second,
	}
}

func newTestSession(t *testing.T, store Store, gc git.Client, lines ...string) (*Session, *ScriptedInput, *bytes.Buffer, *[]time.Duration) {
	t.Helper()
	in := &ScriptedInput{Lines: lines}
	var out bytes.Buffer
	var pauses []time.Duration
	s := NewSession(store, gc, in, &out, zaptest.NewLogger(t), model.User{ID: 1, Username: "pietro"}, wednesday.Add(15*time.Hour), options())
	s.Rand = fixedRand(2)
	s.Pause = func(d time.Duration) { pauses = append(pauses, d) }
	return s, in, &out, &pauses
}

func TestHoursColor(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0, LevelRed},
		{3.99, LevelRed},
		{4.0, LevelYellow},
		{6.39, LevelYellow},
		{6.4, LevelGreen},
		{8, LevelGreen},
		{12, LevelGreen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HoursColor(tt.hours, 8), "hours=%v", tt.hours)
	}
}

func TestFormatCells(t *testing.T) {
	ts := model.Timesheet{
		Begin:       time.Date(2024, 6, 12, 9, 30, 0, 0, time.Local),
		Duration:    5400,
		Description: "Fix login",
		Activity:    model.Activity{Name: "devel"},
	}
	assert.Equal(t, "1.5 h"+strings.Repeat(" ", 5)+" - 09:30 - Fix login - devel", FormatTimesheet(ts))

	c := model.Commit{Repo: "website.git", Author: "Pietro", Date: "09:12", Message: "Homepage hero"}
	assert.Equal(t, "website.git"+strings.Repeat(" ", 9)+" - Pietro - 09:12 - Homepage hero", FormatCommit(c))
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows([]string{"c1  "}, []string{"t1", " t2 ", "t3"})
	assert.Equal(t, [][]string{{"c1", "t1"}, {"", "t2"}, {"", "t3"}}, rows)

	assert.Empty(t, BuildRows(nil, nil))
	assert.Equal(t, [][]string{{"c1", ""}}, BuildRows([]string{"c1"}, nil))
}

func TestBuildDayReportTwoCommitsThreeTimesheets(t *testing.T) {
	store, gc := fixture()
	s, _, _, _ := newTestSession(t, store, gc)

	report, err := s.BuildDayReport(context.Background(), wednesday)
	require.NoError(t, err)
	require.Len(t, report.Customers, 2)

	acme := report.Customers[0]
	assert.Equal(t, "Acme", acme.Customer.Name)
	assert.Equal(t, "Website", acme.DefaultProject)
	require.Len(t, acme.Rows, 3)
	assert.Contains(t, acme.Rows[0][0], "website.git")
	assert.Contains(t, acme.Rows[1][0], "app.git")
	assert.Equal(t, "", acme.Rows[2][0])
	assert.Contains(t, acme.Rows[2][1], "deploy")
	assert.Equal(t, 3.0, acme.Hours)
	assert.Equal(t, LevelRed, acme.Level)

	globex := report.Customers[1]
	assert.Equal(t, "Billing", globex.DefaultProject)
	assert.Empty(t, globex.Rows)
	assert.Zero(t, globex.Hours)

	assert.Equal(t, 3.0, report.TotalHours)

	q := store.queries[0]
	assert.Equal(t, []int64{1}, q.Customers)
	assert.Equal(t, int64(1), q.User.ID)
	assert.True(t, q.Begin.Equal(wednesday))
	assert.True(t, q.End.Equal(wednesday.Add(24*time.Hour-time.Second)))
}

func TestBuildDayReportGitFailureMeansNoCommits(t *testing.T) {
	store, gc := fixture()
	gc.fail = map[string]bool{git.CachePath(cacheDir, remoteWeb): true}
	s, _, _, _ := newTestSession(t, store, gc)

	report, err := s.BuildDayReport(context.Background(), wednesday)
	require.NoError(t, err)
	acme := report.Customers[0]
	require.Len(t, acme.Commits, 1)
	assert.Equal(t, "app.git", acme.Commits[0].Repo)
}

func TestPrintDayReport(t *testing.T) {
	store, gc := fixture()
	s, _, out, _ := newTestSession(t, store, gc)

	report, err := s.BuildDayReport(context.Background(), wednesday)
	require.NoError(t, err)
	s.PrintDayReport(out, report)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "12/6/2024\nWednesday\n"), text)
	assert.Contains(t, text, "\n\n1: Acme, Default project: Website\nTotal hours: 3\n")
	assert.Contains(t, text, "\n\n2: Globex, Default project: Billing\nTotal hours: 0\n")
	assert.Contains(t, text, "| Commits")
	assert.True(t, strings.HasSuffix(text, "\n\nTotal hours: 3\n\n"), text)
	assert.NotContains(t, text, "\033[")
}

func TestPrintDayReportColors(t *testing.T) {
	store, gc := fixture()
	s, _, out, _ := newTestSession(t, store, gc)
	s.opts.Color = true
	s.opts.ClearScreen = true

	report, err := s.BuildDayReport(context.Background(), wednesday.AddDate(0, 0, 3))
	require.NoError(t, err)
	s.PrintDayReport(out, report)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "\033[2J\033[H15/6/2024\n\033[31mSaturday\033[0m"), text)
	assert.Contains(t, text, "Total hours: \033[31m0\033[0m")
}

func TestRunNavigation(t *testing.T) {
	store, gc := fixture()
	s, in, out, _ := newTestSession(t, store, gc, "n", "p", "p", "q")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateDone, s.State())
	assert.True(t, s.Day().Equal(wednesday.AddDate(0, 0, -1)))
	assert.Equal(t, []string{PromptCommand, PromptCommand, PromptCommand, PromptCommand}, in.Prompts)

	text := out.String()
	i12 := strings.Index(text, "12/6/2024\n")
	i13 := strings.Index(text, "13/6/2024\n")
	i11 := strings.Index(text, "11/6/2024\n")
	assert.True(t, i12 >= 0 && i12 < i13 && i13 < i11, text)
}

func TestRunInvalidInputRepromptsWithoutRender(t *testing.T) {
	store, gc := fixture()
	s, in, out, _ := newTestSession(t, store, gc, "x", "q")

	require.NoError(t, s.Run(context.Background()))
	assert.Contains(t, out.String(), "Invalid input: x\n")
	assert.Equal(t, 1, strings.Count(out.String(), "12/6/2024\n"))
	assert.Len(t, in.Prompts, 2)
}

func TestRunEndsOnEOF(t *testing.T) {
	store, gc := fixture()
	s, _, _, _ := newTestSession(t, store, gc)
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateDone, s.State())
}

func TestAddSingleProjectSkipsProjectPrompt(t *testing.T) {
	store, gc := fixture()
	s, in, out, pauses := newTestSession(t, store, gc, "a", "1", "1.5", "Fix login", "y", "q")

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{
		PromptCommand, PromptCustomer, PromptDuration, PromptDescription, PromptConfirm, PromptCommand,
	}, in.Prompts)
	assert.NotContains(t, out.String(), "Select project:")
	assert.Contains(t, out.String(), "Customer: Acme\nProject: Website\nDuration: 1.5\nDescription: Fix login\n")
	assert.Contains(t, out.String(), "Timesheet saved\n")
	assert.Equal(t, []time.Duration{2 * time.Second}, *pauses)

	require.Len(t, store.saved, 1)
	ts := store.saved[0]
	assert.Equal(t, "Website", ts.Project.Name)
	assert.Equal(t, "devel", ts.Activity.Name)
	assert.Equal(t, "pietro", ts.User.Username)
	assert.True(t, ts.Begin.Equal(wednesday.Add(10*time.Hour)), ts.Begin)
	assert.Equal(t, int64(5400), ts.Duration)
	assert.Equal(t, 60.0, ts.HourlyRate)
	assert.True(t, ts.Billable)
	assert.Equal(t, "work", ts.Category)
	assert.Equal(t, "Fix login", ts.Description)

	// The day is rendered again after saving.
	assert.Equal(t, 2, strings.Count(out.String(), "12/6/2024\n"))
}

func TestAddSelectsProjectByIndex(t *testing.T) {
	store, gc := fixture()
	s, in, out, _ := newTestSession(t, store, gc, "a", "2", "1", "2", "Invoices", "y", "q")

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, in.Prompts, PromptProject)
	assert.Contains(t, out.String(), "Select project:\n0: Billing\n1: Support\n")
	require.Len(t, store.saved, 1)
	assert.Equal(t, "Support", store.saved[0].Project.Name)
	assert.Zero(t, store.saved[0].HourlyRate)
	assert.Equal(t, int64(7200), store.saved[0].Duration)
}

func TestAddAbortPaths(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		msg   string
	}{
		{"non numeric customer", []string{"a", "acme", "q"}, "Invalid customer id\n"},
		{"unknown customer", []string{"a", "99", "q"}, "Invalid customer id\n"},
		{"bad project index", []string{"a", "2", "5", "q"}, "Invalid project index\n"},
		{"non numeric project index", []string{"a", "2", "x", "q"}, "Invalid project index\n"},
		{"bad duration", []string{"a", "1", "two", "q"}, "Invalid duration\n"},
		{"not confirmed", []string{"a", "1", "1", "desc", "Y", "q"}, ""},
		{"eof while adding", []string{"a", "1", "1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, gc := fixture()
			s, _, out, pauses := newTestSession(t, store, gc, tt.lines...)

			require.NoError(t, s.Run(context.Background()))
			assert.Empty(t, store.saved)
			assert.Empty(t, *pauses)
			assert.NotContains(t, out.String(), "Timesheet saved")
			if tt.msg != "" {
				assert.Contains(t, out.String(), tt.msg)
			}
		})
	}
}

func TestAddMissingActivityIsSoftFailure(t *testing.T) {
	store, gc := fixture()
	store.activities = nil
	s, _, out, _ := newTestSession(t, store, gc, "a", "1", "1", "desc", "y", "q")

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, store.saved)
	assert.Contains(t, out.String(), "Invalid activity id 2\n")
}

func TestRefreshReportsFailures(t *testing.T) {
	store, gc := fixture()
	s, _, out, _ := newTestSession(t, store, gc)

	s.Refresh(context.Background())

	text := out.String()
	assert.Contains(t, text, "Refreshing "+remoteWeb+"\n")
	assert.Contains(t, text, "Refreshing "+remoteBill+"\n")
	assert.Contains(t, text, "Warning:")
}

func TestLineReader(t *testing.T) {
	var prompts bytes.Buffer
	r := NewLineReader(strings.NewReader("n\r\nlast"), &prompts)

	line, err := r.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "n", line)

	line, err = r.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = r.ReadLine("> ")
	assert.Error(t, err)
	assert.Equal(t, "> > > ", prompts.String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-command", StateAwaitingCommand.String())
	assert.Equal(t, "unknown", State(42).String())
}
