package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pbaricco/kimai-cli/internal/mailer"
	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/storage"
)

type fakeStore struct {
	entries []model.Timesheet
	query   model.TimesheetQuery
}

func (f *fakeStore) UserByName(_ context.Context, name string) (model.User, error) {
	if name != "pietro" {
		return model.User{}, storage.ErrNotFound
	}
	return model.User{ID: 1, Username: "pietro"}, nil
}

func (f *fakeStore) TimesheetsForQuery(_ context.Context, q model.TimesheetQuery) ([]model.Timesheet, error) {
	f.query = q
	return f.entries, nil
}

type fakeMailer struct {
	sent       []mailer.Message
	attachment string
}

func (f *fakeMailer) Send(_ context.Context, m mailer.Message) error {
	f.sent = append(f.sent, m)
	data, err := os.ReadFile(m.Attachment)
	if err != nil {
		return err
	}
	f.attachment = string(data)
	return nil
}

type moveSaver struct{}

func (moveSaver) Save(_ context.Context, src, dest string) error {
	return os.Rename(src, dest)
}

type failingSaver struct{ err error }

func (f failingSaver) Save(context.Context, string, string) error { return f.err }

// wednesday 2024-06-12
var now = time.Date(2024, 6, 12, 15, 0, 0, 0, time.Local)

func newDeps(t *testing.T, store *fakeStore) (Deps, *bytes.Buffer) {
	var out bytes.Buffer
	return Deps{
		Store:   store,
		Service: NewService(t.TempDir()),
		Saver:   moveSaver{},
		Out:     &out,
		Log:     zaptest.NewLogger(t),
	}, &out
}

func TestRunLastWeekToTarget(t *testing.T) {
	store := &fakeStore{entries: sampleEntries()}
	deps, out := newDeps(t, store)
	target := filepath.Join(t.TempDir(), "week.csv")

	sum, err := Run(context.Background(), deps, Options{
		User:        "pietro",
		Format:      "csv",
		Period:      "week-1",
		CustomerID:  7,
		TargetFile:  target,
		CustomTitle: "ACME",
		Now:         now,
	})
	require.NoError(t, err)

	assert.Equal(t, "Exporting ACME Timesheet data from 03/06/2024 to 09/06/2024\n", out.String())
	assert.True(t, store.query.Begin.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)))
	assert.True(t, store.query.End.Equal(time.Date(2024, 6, 9, 23, 59, 59, 0, time.Local)))
	assert.Equal(t, []int64{7}, store.query.Customers)
	assert.Equal(t, Summary{Title: "ACME Timesheet data from 03/06/2024 to 09/06/2024", Entries: 1, File: target}, sum)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "75.00")
}

func TestRunWithoutPeriodExportsToday(t *testing.T) {
	store := &fakeStore{}
	deps, _ := newDeps(t, store)

	_, err := Run(context.Background(), deps, Options{User: "pietro", Format: "json", Now: now})
	require.NoError(t, err)
	assert.True(t, store.query.Begin.Equal(time.Date(2024, 6, 12, 0, 0, 0, 0, time.Local)))
	assert.True(t, store.query.End.Equal(time.Date(2024, 6, 12, 23, 59, 59, 0, time.Local)))
	assert.Empty(t, store.query.Customers)
}

func TestRunHideRatesAndEmail(t *testing.T) {
	store := &fakeStore{entries: sampleEntries()}
	deps, _ := newDeps(t, store)
	m := &fakeMailer{}
	deps.Mailer = m
	tmp := t.TempDir()
	deps.Service = NewService(tmp)

	sum, err := Run(context.Background(), deps, Options{
		User:      "pietro",
		Format:    "csv",
		Period:    "month-1",
		HideRates: true,
		EmailTo:   "boss@example.com",
		EmailFrom: "kimai@example.com",
		Now:       now,
	})
	require.NoError(t, err)
	assert.True(t, sum.Emailed)
	assert.Empty(t, sum.File)

	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, "kimai@example.com", msg.From)
	assert.Equal(t, "boss@example.com", msg.To)
	assert.Equal(t, "Timesheet data from 01/05/2024 to 31/05/2024", msg.Subject)
	assert.Equal(t, "Data is attached in csv format", msg.Body)
	assert.Equal(t, "Timesheet_01_05_2024-31_05_2024.csv", msg.AttachmentName)
	assert.Contains(t, m.attachment, "0.00,0.00,0.00,0.00")
	assert.NotContains(t, m.attachment, "75.00")

	// Without a target the temporary file is discarded.
	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRunErrors(t *testing.T) {
	deps, _ := newDeps(t, &fakeStore{})

	_, err := Run(context.Background(), deps, Options{User: "nobody", Format: "csv", Now: now})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = Run(context.Background(), deps, Options{User: "pietro", Format: "pdf", Now: now})
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = Run(context.Background(), deps, Options{User: "pietro", Format: "csv", Period: "fortnight", Now: now})
	assert.Error(t, err)

	_, err = Run(context.Background(), deps, Options{User: "pietro", Format: "csv", EmailTo: "x@example.com", Now: now})
	assert.True(t, errors.Is(err, mailer.ErrNoTransport))
}

func TestRunKeepsRenderedFileWhenSaveFails(t *testing.T) {
	store := &fakeStore{entries: sampleEntries()}
	deps, _ := newDeps(t, store)
	boom := errors.New("access denied")
	deps.Saver = failingSaver{err: boom}

	sum, err := Run(context.Background(), deps, Options{
		User:       "pietro",
		Format:     "csv",
		Period:     "week-1",
		TargetFile: "s3://reports/week.csv",
		Now:        now,
	})
	require.ErrorIs(t, err, boom)
	require.NotEmpty(t, sum.File)
	assert.Contains(t, err.Error(), sum.File)

	data, err := os.ReadFile(sum.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "75.00")
}
