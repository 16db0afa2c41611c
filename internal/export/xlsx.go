package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

const xlsxSheet = "Timesheets"

type xlsxExporter struct{ dir string }

func (xlsxExporter) ID() string { return "xlsx" }

func (e xlsxExporter) Render(entries []model.Timesheet, _ model.TimesheetQuery) (*Result, error) {
	file, err := buildWorkbook(entries)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	return writeTemp(e.dir, "xlsx", func(w io.Writer) error {
		if err := file.Write(w); err != nil {
			return fmt.Errorf("save xlsx: %w", err)
		}
		return nil
	})
}

func buildWorkbook(entries []model.Timesheet) (*excelize.File, error) {
	file := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			_ = file.Close()
		}
	}()

	if err := file.SetSheetName(file.GetSheetName(0), xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := setColumnWidths(file); err != nil {
		return nil, err
	}

	for idx, title := range columns {
		cell, err := excelize.CoordinatesToCellName(idx+1, 1)
		if err != nil {
			return nil, fmt.Errorf("convert header cell: %w", err)
		}
		if err := file.SetCellValue(xlsxSheet, cell, title); err != nil {
			return nil, fmt.Errorf("write header %s: %w", cell, err)
		}
	}

	for i, ts := range entries {
		for col, value := range xlsxRow(ts) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("convert cell: %w", err)
			}
			if err := file.SetCellValue(xlsxSheet, cell, value); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	ok = true
	return file, nil
}

// xlsxRow keeps numbers and booleans typed so spreadsheets can sum them.
func xlsxRow(ts model.Timesheet) []any {
	cells := row(ts)
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	out[3] = timecalc.RoundHours(ts.Duration)
	out[9] = ts.Billable
	out[11] = ts.Rate
	out[12] = ts.InternalRate
	out[13] = ts.HourlyRate
	out[14] = ts.FixedRate
	return out
}

func setColumnWidths(file *excelize.File) error {
	if err := file.SetColWidth(xlsxSheet, "A", "D", 12); err != nil {
		return fmt.Errorf("set width for A-D: %w", err)
	}
	if err := file.SetColWidth(xlsxSheet, "E", "H", 20); err != nil {
		return fmt.Errorf("set width for E-H: %w", err)
	}
	if err := file.SetColWidth(xlsxSheet, "I", "I", 60); err != nil {
		return fmt.Errorf("set width for I: %w", err)
	}
	return nil
}
