// Package export renders timesheet entries into downloadable files and
// drives the export command: period resolution, rate hiding, e-mail
// delivery and final placement of the file.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

// ErrUnknownFormat is returned for a format no exporter is registered for.
var ErrUnknownFormat = errors.New("unknown export format")

// Result points at the rendered temporary file.
type Result struct {
	File string
}

// Exporter renders entries in one format.
type Exporter interface {
	ID() string
	Render(entries []model.Timesheet, query model.TimesheetQuery) (*Result, error)
}

// Service is the registry of exporters keyed by format name.
type Service struct {
	exporters map[string]Exporter
}

// NewService returns a registry holding the csv, json, xlsx and md exporters.
// Rendered files are created in dir, or the OS temp directory when empty.
func NewService(dir string) *Service {
	s := &Service{exporters: map[string]Exporter{}}
	s.Register(csvExporter{dir: dir})
	s.Register(jsonExporter{dir: dir})
	s.Register(xlsxExporter{dir: dir})
	s.Register(markdownExporter{dir: dir})
	return s
}

// Register adds e, replacing any exporter with the same ID.
func (s *Service) Register(e Exporter) {
	s.exporters[strings.ToLower(e.ID())] = e
}

// TimesheetExporterByID looks an exporter up case-insensitively.
func (s *Service) TimesheetExporterByID(id string) (Exporter, error) {
	e, ok := s.exporters[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFormat, id, strings.Join(s.IDs(), ", "))
	}
	return e, nil
}

// IDs lists the registered formats in alphabetical order.
func (s *Service) IDs() []string {
	ids := make([]string, 0, len(s.exporters))
	for id := range s.exporters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HideRates zeroes every rate field of entries in place.
func HideRates(entries []model.Timesheet) {
	for i := range entries {
		entries[i].Rate = 0
		entries[i].InternalRate = 0
		entries[i].FixedRate = 0
		entries[i].HourlyRate = 0
	}
}

// Title is the export subject, e.g. "ACME Timesheet data from 03/06/2024 to 09/06/2024".
func Title(custom string, from, to time.Time) string {
	return strings.TrimSpace(fmt.Sprintf("%s Timesheet data from %s to %s",
		custom, from.Format("02/01/2006"), to.Format("02/01/2006")))
}

// AttachmentName is the file name used for the e-mail attachment.
func AttachmentName(from, to time.Time, format string) string {
	return fmt.Sprintf("Timesheet_%s-%s.%s", from.Format("02_01_2006"), to.Format("02_01_2006"), format)
}

// columns shared by the tabular renderers.
var columns = []string{
	"Date", "From", "To", "Duration", "User", "Customer", "Project", "Activity",
	"Description", "Billable", "Category", "Rate", "Internal rate", "Hourly rate", "Fixed rate",
}

func row(ts model.Timesheet) []string {
	customer := ""
	if ts.Project.Customer != nil {
		customer = ts.Project.Customer.Name
	}
	user := ts.User.Alias
	if user == "" {
		user = ts.User.Username
	}
	return []string{
		ts.Begin.Format("2006-01-02"),
		ts.Begin.Format("15:04"),
		ts.End.Format("15:04"),
		timecalc.FormatHours(timecalc.RoundHours(ts.Duration)),
		user,
		customer,
		ts.Project.Name,
		ts.Activity.Name,
		ts.Description,
		strconv.FormatBool(ts.Billable),
		ts.Category,
		money(ts.Rate),
		money(ts.InternalRate),
		money(ts.HourlyRate),
		money(ts.FixedRate),
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// writeTemp creates a temporary export file and lets fill write it. The file
// is removed again when fill or closing it fails.
func writeTemp(dir, ext string, fill func(w io.Writer) error) (*Result, error) {
	f, err := os.CreateTemp(dir, "kimai-export-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}
	err = fill(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing export file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &Result{File: f.Name()}, nil
}
