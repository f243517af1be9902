package report

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"
)

var pdfColWidths = []float64{24, 24, 52, 28, 20, 36, 26}

// WritePDF writes the report as a landscape A4 table.
func WritePDF(w io.Writer, r *ContributionReport) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(r.Title, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, r.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Period: %s to %s", r.From.Format(dateLayout), r.To.Format(dateLayout)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+r.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(pdfColWidths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range r.Rows {
		for i, c := range row.cells() {
			align := "L"
			if i == len(header)-1 {
				align = "R"
			}
			pdf.CellFormat(pdfColWidths[i], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	labelWidth := 0.0
	for _, cw := range pdfColWidths[:len(pdfColWidths)-1] {
		labelWidth += cw
	}
	for _, t := range r.totals() {
		pdf.CellFormat(labelWidth, 7, t[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColWidths[len(pdfColWidths)-1], 7, t[1], "T", 1, "R", false, 0, "")
	}

	return pdf.Output(w)
}
