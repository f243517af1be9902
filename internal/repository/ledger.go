package repository

import (
	"context"

	"welfare/internal/domain"
)

// LedgerRepository defines the persistence operations for ledger entries.
type LedgerRepository interface {
	// Create appends a ledger entry. Returns ErrConflict when an entry already
	// exists for the same payment request.
	Create(ctx context.Context, entry *domain.LedgerEntry) error

	// List retrieves ledger entries matching the filter, oldest first.
	List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error)

	// Balance sums a member's confirmed contributions and disbursements.
	Balance(ctx context.Context, memberID string) (*domain.Balance, error)
}
