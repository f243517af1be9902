// Package report renders contribution reports as CSV, Excel or PDF.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"welfare/internal/domain"
)

// Format is an export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ErrUnknownFormat is returned for formats other than csv, xlsx and pdf.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a format name. An empty name means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, FormatPDF:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "text/csv"
}

// Row is one ledger line in a report.
type Row struct {
	Date         time.Time
	MemberNumber string
	MemberName   string
	Type         domain.LedgerEntryType
	Method       domain.PaymentMethod
	Reference    string
	Amount       decimal.Decimal
}

// ContributionReport is the data behind every report format.
type ContributionReport struct {
	Title         string
	From          time.Time
	To            time.Time
	GeneratedAt   time.Time
	Rows          []Row
	Contributions decimal.Decimal
	Disbursements decimal.Decimal
}

// Net returns contributions minus disbursements.
func (r *ContributionReport) Net() decimal.Decimal {
	return r.Contributions.Sub(r.Disbursements)
}

// NewContributionReport builds a report from rows and computes the totals.
func NewContributionReport(from, to, generatedAt time.Time, rows []Row) *ContributionReport {
	r := &ContributionReport{
		Title:         "Contributions Report",
		From:          from,
		To:            to,
		GeneratedAt:   generatedAt,
		Rows:          rows,
		Contributions: decimal.Zero,
		Disbursements: decimal.Zero,
	}
	for _, row := range rows {
		switch row.Type {
		case domain.LedgerContribution:
			r.Contributions = r.Contributions.Add(row.Amount)
		case domain.LedgerDisbursement:
			r.Disbursements = r.Disbursements.Add(row.Amount)
		}
	}
	return r
}

// Filename returns a download name for the report in format f.
func (r *ContributionReport) Filename(f Format) string {
	return fmt.Sprintf("contributions-%s-%s.%s", r.From.Format(dateLayout), r.To.Format(dateLayout), f)
}

// Render writes the report in the requested format.
func Render(r *ContributionReport, f Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatCSV:
		err = WriteCSV(&buf, r)
	case FormatXLSX:
		err = WriteXLSX(&buf, r)
	case FormatPDF:
		err = WritePDF(&buf, r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const dateLayout = "2006-01-02"

var header = []string{"Date", "Member No.", "Member", "Type", "Method", "Reference", "Amount"}

func (row Row) cells() []string {
	return []string{
		row.Date.Format(dateLayout),
		row.MemberNumber,
		row.MemberName,
		string(row.Type),
		string(row.Method),
		row.Reference,
		row.Amount.StringFixed(2),
	}
}

func (r *ContributionReport) totals() [][2]string {
	return [][2]string{
		{"Total contributions", r.Contributions.StringFixed(2)},
		{"Total disbursements", r.Disbursements.StringFixed(2)},
		{"Net", r.Net().StringFixed(2)},
	}
}
