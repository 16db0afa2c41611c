package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pbaricco/kimai-cli/internal/mailer"
	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

// Store is the read side of the timesheet repositories used by exports.
type Store interface {
	UserByName(ctx context.Context, username string) (model.User, error)
	TimesheetsForQuery(ctx context.Context, q model.TimesheetQuery) ([]model.Timesheet, error)
}

// Saver places the rendered file at its target.
type Saver interface {
	Save(ctx context.Context, src, dest string) error
}

// Deps are the collaborators of Run.
type Deps struct {
	Store   Store
	Service *Service
	Mailer  mailer.Sender // required only when Options.EmailTo is set
	Saver   Saver         // required only when Options.TargetFile is set
	Out     io.Writer
	Log     *zap.Logger
}

// Options mirror the export command line.
type Options struct {
	User        string
	Format      string
	CustomerID  int64 // 0 = all customers
	Period      string
	TargetFile  string
	HideRates   bool
	CustomTitle string
	EmailTo     string
	EmailFrom   string
	Now         time.Time
}

// Summary describes a finished export.
type Summary struct {
	Title   string
	Entries int
	File    string // final location, empty when the file was discarded
	Emailed bool
}

// Run performs one export.
func Run(ctx context.Context, d Deps, opts Options) (Summary, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	user, err := d.Store.UserByName(ctx, opts.User)
	if err != nil {
		return Summary{}, fmt.Errorf("loading user %q: %w", opts.User, err)
	}

	from, to, err := timecalc.ParsePeriod(opts.Period, now)
	if err != nil {
		return Summary{}, err
	}
	query := model.TimesheetQuery{User: user, Begin: from, End: to}
	if opts.CustomerID != 0 {
		query.Customers = []int64{opts.CustomerID}
	}

	exporter, err := d.Service.TimesheetExporterByID(opts.Format)
	if err != nil {
		return Summary{}, err
	}
	if opts.EmailTo != "" && d.Mailer == nil {
		return Summary{}, mailer.ErrNoTransport
	}

	title := Title(opts.CustomTitle, from, to)
	fmt.Fprintf(d.Out, "Exporting %s\n", title)
	sum := Summary{Title: title}

	entries, err := d.Store.TimesheetsForQuery(ctx, query)
	if err != nil {
		return sum, fmt.Errorf("querying timesheets: %w", err)
	}
	sum.Entries = len(entries)
	log.Debug("timesheets loaded",
		zap.String("user", user.Username),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int64s("customers", query.Customers),
		zap.Int("entries", len(entries)))

	if opts.HideRates {
		HideRates(entries)
	}

	res, err := exporter.Render(entries, query)
	if err != nil {
		return sum, fmt.Errorf("rendering %s: %w", exporter.ID(), err)
	}
	kept := false
	defer func() {
		if !kept {
			// Best effort, the file lives in a temp directory anyway.
			_ = os.Remove(res.File)
		}
	}()

	if opts.EmailTo != "" {
		msg := mailer.Message{
			From:           opts.EmailFrom,
			To:             opts.EmailTo,
			Subject:        title,
			Body:           fmt.Sprintf("Data is attached in %s format", opts.Format),
			Attachment:     res.File,
			AttachmentName: AttachmentName(from, to, opts.Format),
		}
		if err := d.Mailer.Send(ctx, msg); err != nil {
			return sum, fmt.Errorf("mailing export: %w", err)
		}
		sum.Emailed = true
		log.Info("export mailed", zap.String("to", opts.EmailTo))
	}

	if opts.TargetFile != "" {
		if d.Saver == nil {
			return sum, errors.New("no target saver configured")
		}
		if err := d.Saver.Save(ctx, res.File, opts.TargetFile); err != nil {
			kept = true
			sum.File = res.File
			return sum, fmt.Errorf("saving export to %s (rendered file kept at %s): %w", opts.TargetFile, res.File, err)
		}
		kept = true
		sum.File = opts.TargetFile
	}

	return sum, nil
}
