package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"welfare/internal/domain"
)

// LedgerRepository is a PostgreSQL implementation of repository.LedgerRepository.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{q: db}
}

// NewLedgerRepositoryWithTx creates a ledger repository using a transaction.
func NewLedgerRepositoryWithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Create appends a ledger entry.
func (r *LedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			id, member_id, amount, type, status, method,
			payment_request_id, reference, description, recorded_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.MemberID,
		entry.Amount,
		entry.Type,
		entry.Status,
		entry.Method,
		nullString(entry.PaymentRequestID),
		nullString(entry.Reference),
		nullString(entry.Description),
		nullString(entry.RecordedBy),
		entry.CreatedAt,
	)

	return mapError(err)
}

// List retrieves ledger entries matching the filter, oldest first.
func (r *LedgerRepository) List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.MemberID != "" {
		add("member_id = ?", filter.MemberID)
	}
	if filter.Type != "" {
		add("type = ?", filter.Type)
	}
	if !filter.From.IsZero() {
		add("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at < ?", filter.To)
	}

	query := `
		SELECT id, member_id, amount, type, status, method,
			payment_request_id, reference, description, recorded_by, created_at
		FROM ledger_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var (
			e                                        domain.LedgerEntry
			paymentID, ref, description, recordedBy sql.NullString
		)
		if err := rows.Scan(
			&e.ID,
			&e.MemberID,
			&e.Amount,
			&e.Type,
			&e.Status,
			&e.Method,
			&paymentID,
			&ref,
			&description,
			&recordedBy,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.PaymentRequestID = paymentID.String
		e.Reference = ref.String
		e.Description = description.String
		e.RecordedBy = recordedBy.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Balance sums a member's confirmed contributions and disbursements.
func (r *LedgerRepository) Balance(ctx context.Context, memberID string) (*domain.Balance, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'contribution'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'disbursement'), 0)
		FROM ledger_entries
		WHERE member_id = $1 AND status = 'confirmed'
	`

	balance := domain.Balance{MemberID: memberID}
	err := r.q.QueryRowContext(ctx, query, memberID).Scan(&balance.Contributions, &balance.Disbursements)
	if err != nil {
		return nil, err
	}
	return &balance, nil
}
