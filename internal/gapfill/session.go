// Package gapfill implements the interactive day-by-day review that puts
// git commits next to logged timesheets and lets the operator add the
// entries that are missing.
package gapfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbaricco/kimai-cli/internal/config"
	"github.com/pbaricco/kimai-cli/internal/console"
	"github.com/pbaricco/kimai-cli/internal/git"
	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/storage"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

// Prompts shown to the operator.
const (
	PromptCommand     = "(n)ext (p)revious (q)uit (a)dd:"
	PromptCustomer    = "Customer id: "
	PromptProject     = "Project index: "
	PromptDuration    = "Duration (in hours): "
	PromptDescription = "Description: "
	PromptConfirm     = "Confirm? (y/n): "
)

// Store is what the session needs from the timesheet repositories.
type Store interface {
	CustomersByIDs(ctx context.Context, ids []int64) ([]model.Customer, error)
	ProjectsForCustomers(ctx context.Context, customerIDs []int64) ([]model.Project, error)
	TimesheetsForQuery(ctx context.Context, q model.TimesheetQuery) ([]model.Timesheet, error)
	RatesForCustomer(ctx context.Context, customerID int64) ([]model.CustomerRate, error)
	ActivityByID(ctx context.Context, id int64) (model.Activity, error)
	SaveTimesheet(ctx context.Context, ts *model.Timesheet) error
}

// Rand picks the start hour of added entries.
type Rand interface {
	Intn(n int) int
}

// State of the review loop.
type State int

const (
	StateReviewing State = iota
	StateAwaitingCommand
	StateAdding
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReviewing:
		return "reviewing"
	case StateAwaitingCommand:
		return "awaiting-command"
	case StateAdding:
		return "adding"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Options configure a session.
type Options struct {
	Registry    []config.CustomerRepos
	CacheDir    string
	ActivityID  int64
	TargetHours float64
	ColumnWidth int
	PauseAfter  time.Duration
	Color       bool
	ClearScreen bool
}

// Session is one interactive review run for a single user.
type Session struct {
	store Store
	git   git.Client
	in    Input
	out   io.Writer
	log   *zap.Logger
	opts  Options

	// Rand and Pause may be replaced before Run.
	Rand  Rand
	Pause func(time.Duration)

	user  model.User
	day   time.Time
	state State
}

// NewSession starts reviewing day for user.
func NewSession(store Store, gc git.Client, in Input, out io.Writer, log *zap.Logger, user model.User, day time.Time, opts Options) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TargetHours <= 0 {
		opts.TargetHours = config.DefaultTargetHours
	}
	return &Session{
		store: store,
		git:   gc,
		in:    in,
		out:   out,
		log:   log,
		opts:  opts,
		Rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
		Pause: time.Sleep,
		user:  user,
		day:   timecalc.StartOfDay(day),
		state: StateReviewing,
	}
}

// Day is the day currently under review.
func (s *Session) Day() time.Time { return s.day }

// State is the current loop state.
func (s *Session) State() State { return s.state }

// Remotes flattens the registry in order, keeping duplicates.
func (o Options) Remotes() []string {
	var out []string
	for _, r := range o.Registry {
		out = append(out, r.Remotes...)
	}
	return out
}

// Refresh clones or pulls every registry remote. Failures are reported
// and do not stop the session.
func (s *Session) Refresh(ctx context.Context) {
	if err := git.Refresh(ctx, s.git, s.opts.Remotes(), s.opts.CacheDir, s.out, s.log); err != nil {
		fmt.Fprintf(s.out, "Warning: %v\n", err)
	}
}

// Run drives the loop until the operator quits or input ends.
func (s *Session) Run(ctx context.Context) error {
	for s.state != StateDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch s.state {
		case StateReviewing:
			err = s.review(ctx)
		case StateAwaitingCommand:
			err = s.awaitCommand()
		case StateAdding:
			err = s.add(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) review(ctx context.Context) error {
	report, err := s.BuildDayReport(ctx, s.day)
	if err != nil {
		return err
	}
	s.PrintDayReport(s.out, report)
	s.state = StateAwaitingCommand
	return nil
}

func (s *Session) awaitCommand() error {
	line, err := s.in.ReadLine(PromptCommand)
	if errors.Is(err, io.EOF) {
		s.state = StateDone
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading command: %w", err)
	}

	switch cmd := strings.TrimSpace(line); cmd {
	case "n":
		s.day = s.day.AddDate(0, 0, 1)
		s.state = StateReviewing
	case "p":
		s.day = s.day.AddDate(0, 0, -1)
		s.state = StateReviewing
	case "q":
		s.state = StateDone
	case "a":
		s.state = StateAdding
	default:
		fmt.Fprintf(s.out, "Invalid input: %s\n", cmd)
	}
	return nil
}

// errAbort ends the add flow without saving.
var errAbort = errors.New("add aborted")

// add collects a new entry and saves it. Whatever happens the session goes
// back to reviewing the same day; only store failures end the session.
func (s *Session) add(ctx context.Context) error {
	s.state = StateReviewing
	err := s.collectAndSave(ctx)
	if errors.Is(err, errAbort) {
		return nil
	}
	return err
}

func (s *Session) ask(prompt string) (string, error) {
	line, err := s.in.ReadLine(prompt)
	if errors.Is(err, io.EOF) {
		s.state = StateDone
		return "", errAbort
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return line, nil
}

func (s *Session) fail(msg string) error {
	fmt.Fprintln(s.out, msg)
	return errAbort
}

func (s *Session) collectAndSave(ctx context.Context) error {
	answer, err := s.ask(PromptCustomer)
	if err != nil {
		return err
	}
	customerID, err := strconv.ParseInt(strings.TrimSpace(answer), 10, 64)
	if err != nil {
		return s.fail("Invalid customer id")
	}
	customers, err := s.store.CustomersByIDs(ctx, []int64{customerID})
	if err != nil {
		return fmt.Errorf("loading customer %d: %w", customerID, err)
	}
	if len(customers) == 0 {
		return s.fail("Invalid customer id")
	}
	customer := customers[0]

	rates, err := s.store.RatesForCustomer(ctx, customer.ID)
	if err != nil {
		return fmt.Errorf("loading rates of customer %d: %w", customer.ID, err)
	}

	projects, err := s.store.ProjectsForCustomers(ctx, []int64{customer.ID})
	if err != nil {
		return fmt.Errorf("loading projects of customer %d: %w", customer.ID, err)
	}
	index := 0
	if len(projects) != 1 {
		fmt.Fprintln(s.out, "Select project:")
		for k, p := range projects {
			fmt.Fprintf(s.out, "%d: %s\n", k, p.Name)
		}
		answer, err := s.ask(PromptProject)
		if err != nil {
			return err
		}
		if index, err = strconv.Atoi(strings.TrimSpace(answer)); err != nil {
			return s.fail("Invalid project index")
		}
	}
	if index < 0 || index >= len(projects) {
		return s.fail("Invalid project index")
	}
	project := projects[index]

	durationText, err := s.ask(PromptDuration)
	if err != nil {
		return err
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(durationText), 64)
	if err != nil || hours <= 0 || math.IsInf(hours, 0) || math.IsNaN(hours) {
		return s.fail("Invalid duration")
	}

	description, err := s.ask(PromptDescription)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Customer: %s\n", s.paint(console.ColorCyan, customer.Name))
	fmt.Fprintf(s.out, "Project: %s\n", s.paint(console.ColorYellow, project.Name))
	fmt.Fprintf(s.out, "Duration: %s\n", s.paint(console.ColorGreen, strings.TrimSpace(durationText)))
	fmt.Fprintf(s.out, "Description: %s\n", s.paint(console.ColorGreen, description))

	confirm, err := s.ask(PromptConfirm)
	if err != nil {
		return err
	}
	if confirm != "y" {
		return errAbort
	}

	activity, err := s.store.ActivityByID(ctx, s.opts.ActivityID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.fail(fmt.Sprintf("Invalid activity id %d", s.opts.ActivityID))
	}
	if err != nil {
		return fmt.Errorf("loading activity %d: %w", s.opts.ActivityID, err)
	}

	var hourlyRate float64
	if len(rates) > 0 {
		hourlyRate = rates[0].Rate
	}

	y, m, d := s.day.Date()
	project.Customer = &customer
	ts := model.Timesheet{
		User:        s.user,
		Project:     project,
		Activity:    activity,
		Begin:       time.Date(y, m, d, 8+s.Rand.Intn(4), 0, 0, 0, s.day.Location()),
		Duration:    int64(math.Round(hours * 3600)),
		Description: description,
		HourlyRate:  hourlyRate,
		Billable:    true,
		Category:    "work",
	}
	if err := s.store.SaveTimesheet(ctx, &ts); err != nil {
		return fmt.Errorf("saving timesheet: %w", err)
	}
	s.log.Info("timesheet saved",
		zap.Int64("id", ts.ID),
		zap.Int64("customer_id", customer.ID),
		zap.Int64("project_id", project.ID),
		zap.Time("begin", ts.Begin),
		zap.Int64("duration", ts.Duration))

	fmt.Fprintln(s.out, "Timesheet saved")
	s.Pause(s.opts.PauseAfter)
	return nil
}
