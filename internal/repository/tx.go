package repository

import "context"

// TxRepositories are repositories bound to one database transaction.
type TxRepositories struct {
	Payments PaymentRequestRepository
	Ledger   LedgerRepository
}

// Transactor runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
