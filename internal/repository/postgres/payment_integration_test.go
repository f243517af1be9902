//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"welfare/internal/app"
	"welfare/internal/domain"
	"welfare/internal/repository"
	"welfare/internal/repository/postgres"
)

// Run with: TEST_DATABASE_DSN=... go test -tags integration ./internal/repository/postgres/
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := app.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createPendingRequest(t *testing.T, db *sql.DB) (*domain.Member, *domain.PaymentRequest) {
	t.Helper()
	ctx := context.Background()

	member := &domain.Member{
		ID:          uuid.New().String(),
		FullName:    "Jane Wanjiku",
		PhoneNumber: fmt.Sprintf("2547%08d", time.Now().UnixNano()%100000000),
	}
	if err := postgres.NewMemberRepository(db).Create(ctx, member); err != nil {
		t.Fatalf("create member: %v", err)
	}

	now := time.Now().UTC()
	req := &domain.PaymentRequest{
		ID:                uuid.New().String(),
		MemberID:          member.ID,
		Amount:            decimal.NewFromInt(100),
		PhoneNumber:       member.PhoneNumber,
		CheckoutRequestID: "ws_CO_" + uuid.New().String(),
		MerchantRequestID: "mr-" + uuid.New().String(),
		Status:            domain.PaymentRequestPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := postgres.NewPaymentRequestRepository(db).Create(ctx, req); err != nil {
		t.Fatalf("create payment request: %v", err)
	}
	return member, req
}

func TestPaymentRequestRepository_UpdateResultOnlyLeavesPendingOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, req := createPendingRequest(t, db)
	repo := postgres.NewPaymentRequestRepository(db)

	code := 0
	completed := *req
	completed.Status = domain.PaymentRequestCompleted
	completed.ResultCode = &code
	completed.ResultDesc = "The service request is processed successfully."
	completed.MpesaReceiptNumber = "NLJ7RT61SV"
	completed.UpdatedAt = time.Now().UTC()

	if err := repo.UpdateResult(ctx, &completed); err != nil {
		t.Fatalf("first update: %v", err)
	}

	failed := completed
	failed.Status = domain.PaymentRequestFailed
	if err := repo.UpdateResult(ctx, &failed); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second update: expected ErrNotFound, got %v", err)
	}

	stored, err := repo.GetByCheckoutRequestID(ctx, req.CheckoutRequestID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.PaymentRequestCompleted || stored.MpesaReceiptNumber != "NLJ7RT61SV" {
		t.Errorf("first result should stick, got %s/%q", stored.Status, stored.MpesaReceiptNumber)
	}
}

func TestPaymentRequestRepository_AttachReceiptFillsOnlyMissingReceipt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, req := createPendingRequest(t, db)
	repo := postgres.NewPaymentRequestRepository(db)

	code := 0
	completed := *req
	completed.Status = domain.PaymentRequestCompleted
	completed.ResultCode = &code
	completed.UpdatedAt = time.Now().UTC()
	if err := repo.UpdateResult(ctx, &completed); err != nil {
		t.Fatalf("update: %v", err)
	}

	txDate := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	completed.MpesaReceiptNumber = "NLJ7RT61SV"
	completed.TransactionDate = &txDate
	if err := repo.AttachReceipt(ctx, &completed); err != nil {
		t.Fatalf("attach: %v", err)
	}

	completed.MpesaReceiptNumber = "OTHER00000"
	if err := repo.AttachReceipt(ctx, &completed); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second attach: expected ErrNotFound, got %v", err)
	}

	stored, err := repo.GetByCheckoutRequestID(ctx, req.CheckoutRequestID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.MpesaReceiptNumber != "NLJ7RT61SV" {
		t.Errorf("receipt = %q", stored.MpesaReceiptNumber)
	}
	if stored.TransactionDate == nil || !stored.TransactionDate.Equal(txDate) {
		t.Errorf("transaction date = %v", stored.TransactionDate)
	}
}

func TestLedgerRepository_OneEntryPerPaymentRequest(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	member, req := createPendingRequest(t, db)
	ledger := postgres.NewLedgerRepository(db)

	entry := func(reference string) *domain.LedgerEntry {
		return &domain.LedgerEntry{
			ID:               uuid.New().String(),
			MemberID:         member.ID,
			Amount:           req.Amount,
			Type:             domain.LedgerContribution,
			Status:           domain.LedgerEntryConfirmed,
			Method:           domain.PaymentMethodMpesa,
			PaymentRequestID: req.ID,
			Reference:        reference,
			CreatedAt:        time.Now().UTC(),
		}
	}

	if err := ledger.Create(ctx, entry("NLJ7RT61SV")); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	if err := ledger.Create(ctx, entry("NLJ7RT61SW")); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("second entry: expected ErrConflict, got %v", err)
	}

	balance, err := ledger.Balance(ctx, member.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Contributions.Equal(decimal.NewFromInt(100)) {
		t.Errorf("contributions = %s, want 100", balance.Contributions)
	}
}

func TestTransactor_RollsBackStatusWhenLedgerInsertFails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, req := createPendingRequest(t, db)
	boom := errors.New("ledger unavailable")

	err := postgres.NewTransactor(db).WithinTx(ctx, func(repos repository.TxRepositories) error {
		locked, err := repos.Payments.GetByCheckoutRequestIDForUpdate(ctx, req.CheckoutRequestID)
		if err != nil {
			return err
		}
		locked.Status = domain.PaymentRequestCompleted
		locked.UpdatedAt = time.Now().UTC()
		if err := repos.Payments.UpdateResult(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	stored, err := postgres.NewPaymentRequestRepository(db).GetByCheckoutRequestID(ctx, req.CheckoutRequestID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.PaymentRequestPending {
		t.Errorf("status = %s, want pending after rollback", stored.Status)
	}
}
