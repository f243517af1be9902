package report

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Contributions"

// WriteXLSX writes the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, r *ContributionReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := setRow(f, 1, toAny(header)); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return err
	}

	rowNum := 2
	for _, row := range r.Rows {
		values := toAny(row.cells())
		values[6] = row.Amount.InexactFloat64()
		if err := setRow(f, rowNum, values); err != nil {
			return err
		}
		rowNum++
	}

	rowNum++
	for _, t := range r.totals() {
		if err := setRow(f, rowNum, []any{t[0], "", "", "", "", "", t[1]}); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheetName, rowNum, rowNum, bold); err != nil {
			return err
		}
		rowNum++
	}

	if err := f.SetColWidth(sheetName, "A", "G", 18); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
