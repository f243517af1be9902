package report

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes the header, one line per row and the totals footer.
func WriteCSV(w io.Writer, r *ContributionReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write(row.cells()); err != nil {
			return err
		}
	}
	for _, t := range r.totals() {
		if err := cw.Write([]string{t[0], "", "", "", "", "", t[1]}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
