package postgres

import (
	"context"
	"database/sql"
	"time"

	"welfare/internal/domain"
	"welfare/internal/repository"
)

// PaymentRequestRepository is a PostgreSQL implementation of repository.PaymentRequestRepository.
type PaymentRequestRepository struct {
	q Querier
}

// NewPaymentRequestRepository creates a new PostgreSQL payment request repository.
func NewPaymentRequestRepository(db *sql.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{q: db}
}

// NewPaymentRequestRepositoryWithTx creates a payment request repository using a transaction.
func NewPaymentRequestRepositoryWithTx(tx *sql.Tx) *PaymentRequestRepository {
	return &PaymentRequestRepository{q: tx}
}

const paymentRequestColumns = `
	id, member_id, amount, phone_number, checkout_request_id, merchant_request_id,
	status, mpesa_receipt_number, result_code, result_desc, transaction_date,
	created_at, updated_at`

// Create persists a new payment request.
func (r *PaymentRequestRepository) Create(ctx context.Context, req *domain.PaymentRequest) error {
	query := `
		INSERT INTO payment_requests (
			id, member_id, amount, phone_number, checkout_request_id,
			merchant_request_id, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		req.ID,
		req.MemberID,
		req.Amount,
		req.PhoneNumber,
		req.CheckoutRequestID,
		req.MerchantRequestID,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)

	return mapError(err)
}

// GetByCheckoutRequestID retrieves a payment request by the gateway correlation id.
func (r *PaymentRequestRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	query := `SELECT` + paymentRequestColumns + ` FROM payment_requests WHERE checkout_request_id = $1`
	return scanPaymentRequest(r.q.QueryRowContext(ctx, query, checkoutRequestID))
}

// GetByCheckoutRequestIDForUpdate locks the row until the transaction ends.
func (r *PaymentRequestRepository) GetByCheckoutRequestIDForUpdate(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	query := `SELECT` + paymentRequestColumns + ` FROM payment_requests WHERE checkout_request_id = $1 FOR UPDATE`
	return scanPaymentRequest(r.q.QueryRowContext(ctx, query, checkoutRequestID))
}

// UpdateResult stores the terminal status of a request that is still pending.
func (r *PaymentRequestRepository) UpdateResult(ctx context.Context, req *domain.PaymentRequest) error {
	query := `
		UPDATE payment_requests
		SET status = $1, mpesa_receipt_number = $2, result_code = $3,
			result_desc = $4, transaction_date = $5, updated_at = $6
		WHERE id = $7 AND status = 'pending'
	`

	var resultCode sql.NullInt64
	if req.ResultCode != nil {
		resultCode = sql.NullInt64{Int64: int64(*req.ResultCode), Valid: true}
	}
	var txDate sql.NullTime
	if req.TransactionDate != nil {
		txDate = sql.NullTime{Time: *req.TransactionDate, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		req.Status,
		nullString(req.MpesaReceiptNumber),
		resultCode,
		nullString(req.ResultDesc),
		txDate,
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// AttachReceipt fills in the receipt of a completed request that has none.
func (r *PaymentRequestRepository) AttachReceipt(ctx context.Context, req *domain.PaymentRequest) error {
	query := `
		UPDATE payment_requests
		SET mpesa_receipt_number = $1,
			transaction_date = COALESCE($2, transaction_date),
			updated_at = $3
		WHERE id = $4 AND status = 'completed' AND mpesa_receipt_number IS NULL
	`

	var txDate sql.NullTime
	if req.TransactionDate != nil {
		txDate = sql.NullTime{Time: *req.TransactionDate, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		req.MpesaReceiptNumber,
		txDate,
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List retrieves payment requests, newest first.
func (r *PaymentRequestRepository) List(ctx context.Context, status domain.PaymentRequestStatus, memberID string) ([]*domain.PaymentRequest, error) {
	query := `SELECT` + paymentRequestColumns + `
		FROM payment_requests
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR member_id = $2)
		ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, string(status), memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPaymentRequests(rows)
}

// ListPendingBefore retrieves pending requests created before cutoff, oldest first.
func (r *PaymentRequestRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.PaymentRequest, error) {
	query := `SELECT` + paymentRequestColumns + `
		FROM payment_requests
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC`

	rows, err := r.q.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPaymentRequests(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaymentRequest(row rowScanner) (*domain.PaymentRequest, error) {
	var (
		req        domain.PaymentRequest
		receipt    sql.NullString
		resultCode sql.NullInt64
		resultDesc sql.NullString
		txDate     sql.NullTime
	)

	err := row.Scan(
		&req.ID,
		&req.MemberID,
		&req.Amount,
		&req.PhoneNumber,
		&req.CheckoutRequestID,
		&req.MerchantRequestID,
		&req.Status,
		&receipt,
		&resultCode,
		&resultDesc,
		&txDate,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	req.MpesaReceiptNumber = receipt.String
	req.ResultDesc = resultDesc.String
	if resultCode.Valid {
		code := int(resultCode.Int64)
		req.ResultCode = &code
	}
	if txDate.Valid {
		t := txDate.Time
		req.TransactionDate = &t
	}

	return &req, nil
}

func scanPaymentRequests(rows *sql.Rows) ([]*domain.PaymentRequest, error) {
	var out []*domain.PaymentRequest
	for rows.Next() {
		req, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
