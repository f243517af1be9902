package postgres

import (
	"context"
	"database/sql"

	"welfare/internal/repository"
)

// Transactor implements repository.Transactor on a *sql.DB.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn with transaction-scoped repositories.
func (t *Transactor) WithinTx(ctx context.Context, fn func(repos repository.TxRepositories) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	err = fn(repository.TxRepositories{
		Payments: NewPaymentRequestRepositoryWithTx(tx),
		Ledger:   NewLedgerRepositoryWithTx(tx),
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}

var _ repository.Transactor = (*Transactor)(nil)
