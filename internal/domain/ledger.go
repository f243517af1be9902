package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryType distinguishes money in from money out.
type LedgerEntryType string

const (
	LedgerContribution LedgerEntryType = "contribution"
	LedgerDisbursement LedgerEntryType = "disbursement"
)

// LedgerEntryStatus represents the state of a ledger entry.
type LedgerEntryStatus string

const (
	LedgerEntryConfirmed LedgerEntryStatus = "confirmed"
)

// PaymentMethod is how the money moved.
type PaymentMethod string

const (
	PaymentMethodMpesa PaymentMethod = "mpesa"
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodBank  PaymentMethod = "bank"
)

// LedgerEntry is a confirmed financial record. Entries are append-only.
type LedgerEntry struct {
	ID               string
	MemberID         string
	Amount           decimal.Decimal
	Type             LedgerEntryType
	Status           LedgerEntryStatus
	Method           PaymentMethod
	PaymentRequestID string // set only for entries created from an STK Push
	Reference        string
	Description      string
	RecordedBy       string
	CreatedAt        time.Time
}

// LedgerFilter narrows ledger listings. Zero values mean "no constraint".
type LedgerFilter struct {
	MemberID string
	Type     LedgerEntryType
	From     time.Time
	To       time.Time
}

// Balance summarises a member's ledger.
type Balance struct {
	MemberID      string
	Contributions decimal.Decimal
	Disbursements decimal.Decimal
}

// Net returns contributions minus disbursements.
func (b Balance) Net() decimal.Decimal {
	return b.Contributions.Sub(b.Disbursements)
}
