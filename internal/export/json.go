package export

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"

	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

type jsonExporter struct{ dir string }

func (jsonExporter) ID() string { return "json" }

// jsonRow is the wire shape of one exported entry.
type jsonRow struct {
	ID           int64     `json:"id"`
	Begin        time.Time `json:"begin"`
	End          time.Time `json:"end"`
	Duration     int64     `json:"duration"`
	Hours        float64   `json:"hours"`
	User         string    `json:"user"`
	Customer     string    `json:"customer"`
	Project      string    `json:"project"`
	Activity     string    `json:"activity"`
	Description  string    `json:"description"`
	Billable     bool      `json:"billable"`
	Category     string    `json:"category"`
	Rate         float64   `json:"rate"`
	InternalRate float64   `json:"internal_rate"`
	HourlyRate   float64   `json:"hourly_rate"`
	FixedRate    float64   `json:"fixed_rate"`
}

func (e jsonExporter) Render(entries []model.Timesheet, _ model.TimesheetQuery) (*Result, error) {
	rows := make([]jsonRow, 0, len(entries))
	for _, ts := range entries {
		customer := ""
		if ts.Project.Customer != nil {
			customer = ts.Project.Customer.Name
		}
		rows = append(rows, jsonRow{
			ID:           ts.ID,
			Begin:        ts.Begin,
			End:          ts.End,
			Duration:     ts.Duration,
			Hours:        timecalc.RoundHours(ts.Duration),
			User:         ts.User.Username,
			Customer:     customer,
			Project:      ts.Project.Name,
			Activity:     ts.Activity.Name,
			Description:  ts.Description,
			Billable:     ts.Billable,
			Category:     ts.Category,
			Rate:         ts.Rate,
			InternalRate: ts.InternalRate,
			HourlyRate:   ts.HourlyRate,
			FixedRate:    ts.FixedRate,
		})
	}

	data, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	return writeTemp(e.dir, "json", func(w io.Writer) error {
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("writing json: %w", err)
		}
		return nil
	})
}
