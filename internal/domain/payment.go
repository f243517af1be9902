package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequestStatus represents the state of an STK Push payment request.
type PaymentRequestStatus string

const (
	PaymentRequestPending   PaymentRequestStatus = "pending"
	PaymentRequestCompleted PaymentRequestStatus = "completed"
	PaymentRequestFailed    PaymentRequestStatus = "failed"
)

// IsValid reports whether s is a known status.
func (s PaymentRequestStatus) IsValid() bool {
	switch s {
	case PaymentRequestPending, PaymentRequestCompleted, PaymentRequestFailed:
		return true
	}
	return false
}

// PaymentRequest is an STK Push initiated for a member, correlated with the
// gateway callback through CheckoutRequestID.
type PaymentRequest struct {
	ID                 string
	MemberID           string
	Amount             decimal.Decimal
	PhoneNumber        string
	CheckoutRequestID  string
	MerchantRequestID  string
	Status             PaymentRequestStatus
	MpesaReceiptNumber string
	ResultCode         *int
	ResultDesc         string
	TransactionDate    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsTerminal reports whether the request has already left the pending state.
func (p *PaymentRequest) IsTerminal() bool {
	return p.Status != PaymentRequestPending
}

// PaymentResult is the gateway's verdict on a pending request, from either a
// callback or a status query.
type PaymentResult struct {
	CheckoutRequestID  string
	MerchantRequestID  string
	ResultCode         int
	ResultDesc         string
	MpesaReceiptNumber string
	TransactionDate    *time.Time
}

// Succeeded reports whether the gateway confirmed the payment.
func (r PaymentResult) Succeeded() bool {
	return r.ResultCode == 0
}

// Apply moves a pending request to its terminal status and records the result fields.
func (p *PaymentRequest) Apply(result PaymentResult, now time.Time) {
	code := result.ResultCode
	p.ResultCode = &code
	p.ResultDesc = result.ResultDesc
	if result.Succeeded() {
		p.Status = PaymentRequestCompleted
		p.MpesaReceiptNumber = result.MpesaReceiptNumber
		p.TransactionDate = result.TransactionDate
	} else {
		p.Status = PaymentRequestFailed
	}
	p.UpdatedAt = now
}

// MissingReceipt reports whether the request completed without a receipt that
// result now carries. This happens when a status query settled the request
// before the callback arrived.
func (p *PaymentRequest) MissingReceipt(result PaymentResult) bool {
	return p.Status == PaymentRequestCompleted &&
		p.MpesaReceiptNumber == "" &&
		result.Succeeded() &&
		result.MpesaReceiptNumber != ""
}

// AttachReceipt copies the receipt fields of a late successful result.
func (p *PaymentRequest) AttachReceipt(result PaymentResult, now time.Time) {
	p.MpesaReceiptNumber = result.MpesaReceiptNumber
	if result.TransactionDate != nil {
		p.TransactionDate = result.TransactionDate
	}
	p.UpdatedAt = now
}
