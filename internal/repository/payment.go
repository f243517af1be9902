package repository

import (
	"context"
	"time"

	"welfare/internal/domain"
)

// PaymentRequestRepository defines the persistence operations for STK Push requests.
type PaymentRequestRepository interface {
	// Create persists a new payment request.
	Create(ctx context.Context, req *domain.PaymentRequest) error

	// GetByCheckoutRequestID retrieves a payment request by the gateway correlation id.
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error)

	// GetByCheckoutRequestIDForUpdate is GetByCheckoutRequestID with a row lock
	// held until the surrounding transaction ends.
	GetByCheckoutRequestIDForUpdate(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error)

	// UpdateResult stores the terminal status and result fields of a request.
	// It only affects rows still pending and returns ErrNotFound otherwise.
	UpdateResult(ctx context.Context, req *domain.PaymentRequest) error

	// AttachReceipt stores the receipt number and transaction date of a
	// completed request that has none. Returns ErrNotFound otherwise.
	AttachReceipt(ctx context.Context, req *domain.PaymentRequest) error

	// List retrieves payment requests, newest first, optionally filtered.
	List(ctx context.Context, status domain.PaymentRequestStatus, memberID string) ([]*domain.PaymentRequest, error)

	// ListPendingBefore retrieves pending requests created before cutoff.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.PaymentRequest, error)
}
