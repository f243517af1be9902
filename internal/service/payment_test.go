package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"welfare/internal/domain"
	"welfare/internal/mpesa"
	"welfare/internal/service"
	"welfare/internal/testutil"
)

const checkoutID = "ws_CO_191220191020363925"

type paymentFixture struct {
	members  *testutil.MockMemberRepository
	payments *testutil.MockPaymentRequestRepository
	ledger   *testutil.MockLedgerRepository
	tx       *testutil.MockTransactor
	gateway  *testutil.MockGateway
	locks    *testutil.MockLockStore
	cache    *testutil.MockStatusCache
	mailer   *testutil.MockMailer
	svc      *service.PaymentService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		members:  testutil.NewMockMemberRepository(),
		payments: testutil.NewMockPaymentRequestRepository(),
		ledger:   testutil.NewMockLedgerRepository(),
		gateway:  testutil.NewMockGateway(checkoutID),
		locks:    testutil.NewMockLockStore(),
		cache:    testutil.NewMockStatusCache(),
		mailer:   &testutil.MockMailer{},
	}
	f.tx = testutil.NewMockTransactor(f.payments, f.ledger)
	f.members.AddMember(&domain.Member{
		ID:           "member-1",
		MemberNumber: "WF00001",
		FullName:     "Jane Wanjiku",
		PhoneNumber:  "254712345678",
		Email:        "jane@example.org",
	})

	notifications := service.NewNotificationService(discardLogger(), f.mailer)
	f.svc = service.NewPaymentService(f.members, f.payments, f.tx, f.gateway, f.locks, f.cache, notifications, discardLogger())
	return f
}

func (f *paymentFixture) addPending(checkout string, amount int64, createdAt time.Time) {
	f.payments.AddRequest(&domain.PaymentRequest{
		ID:                "pr-" + checkout,
		MemberID:          "member-1",
		Amount:            decimal.NewFromInt(amount),
		PhoneNumber:       "254712345678",
		CheckoutRequestID: checkout,
		Status:            domain.PaymentRequestPending,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	})
}

func successResult(checkout string) domain.PaymentResult {
	date := time.Date(2019, 12, 19, 7, 21, 15, 0, time.UTC)
	return domain.PaymentResult{
		CheckoutRequestID:  checkout,
		ResultCode:         0,
		ResultDesc:         "The service request is processed successfully.",
		MpesaReceiptNumber: "NLJ7RT61SV",
		TransactionDate:    &date,
	}
}

// ──────────────────────────────────────────────
// INITIATE
// ──────────────────────────────────────────────

func TestInitiate_StoresPendingRequest(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()

	req, err := f.svc.Initiate(context.Background(), service.InitiatePaymentRequest{
		MemberID:    "member-1",
		Amount:      decimal.NewFromInt(500),
		PhoneNumber: "0712345678",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Status != domain.PaymentRequestPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if req.CheckoutRequestID != checkoutID {
		t.Errorf("checkout id = %q", req.CheckoutRequestID)
	}

	stored := f.payments.GetRequest(checkoutID)
	if stored == nil {
		t.Fatal("request not stored")
	}
	if stored.PhoneNumber != "254712345678" {
		t.Errorf("stored phone = %q", stored.PhoneNumber)
	}
	if !stored.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("stored amount = %s", stored.Amount)
	}

	push := f.gateway.LastPush
	if push.PhoneNumber != "254712345678" || push.Amount != 500 || push.AccountReference != "WF00001" {
		t.Errorf("unexpected push params %+v", push)
	}
	if f.ledger.CountEntries() != 0 {
		t.Error("initiation must not write the ledger")
	}
}

func TestInitiate_RoundsToWholeShillings(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()

	req, err := f.svc.Initiate(context.Background(), service.InitiatePaymentRequest{
		MemberID:    "member-1",
		Amount:      decimal.RequireFromString("99.6"),
		PhoneNumber: "254712345678",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.Amount.Equal(decimal.NewFromInt(100)) || f.gateway.LastPush.Amount != 100 {
		t.Errorf("amount not rounded: stored %s pushed %d", req.Amount, f.gateway.LastPush.Amount)
	}
}

func TestInitiate_ValidationErrorsNeverReachGateway(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  service.InitiatePaymentRequest
		want error
	}{
		{"empty member", service.InitiatePaymentRequest{Amount: decimal.NewFromInt(10), PhoneNumber: "0712345678"}, service.ErrInvalidMemberID},
		{"zero amount", service.InitiatePaymentRequest{MemberID: "member-1", Amount: decimal.Zero, PhoneNumber: "0712345678"}, service.ErrInvalidAmount},
		{"negative amount", service.InitiatePaymentRequest{MemberID: "member-1", Amount: decimal.NewFromInt(-5), PhoneNumber: "0712345678"}, service.ErrInvalidAmount},
		{"sub-shilling amount", service.InitiatePaymentRequest{MemberID: "member-1", Amount: decimal.RequireFromString("0.4"), PhoneNumber: "0712345678"}, service.ErrInvalidAmount},
		{"bad phone", service.InitiatePaymentRequest{MemberID: "member-1", Amount: decimal.NewFromInt(10), PhoneNumber: "12ab"}, service.ErrInvalidPhoneNumber},
		{"unknown member", service.InitiatePaymentRequest{MemberID: "ghost", Amount: decimal.NewFromInt(10), PhoneNumber: "0712345678"}, service.ErrMemberNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newPaymentFixture()

			_, err := f.svc.Initiate(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.gateway.PushCallCount != 0 {
				t.Error("gateway must not be called")
			}
			if f.payments.CountRequests() != 0 {
				t.Error("no request should be stored")
			}
		})
	}
}

func TestInitiate_GatewayFailuresAreDistinguishable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pushErr error
		want    error
	}{
		{"auth", mpesa.ErrAuthFailed, service.ErrGatewayAuth},
		{"rejected", &mpesa.APIError{StatusCode: 200, Code: "1", Message: "Rejected"}, service.ErrGatewayRejected},
		{"unavailable", mpesa.ErrUnavailable, service.ErrGatewayUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newPaymentFixture()
			f.gateway.PushError = tt.pushErr

			_, err := f.svc.Initiate(context.Background(), service.InitiatePaymentRequest{
				MemberID:    "member-1",
				Amount:      decimal.NewFromInt(10),
				PhoneNumber: "0712345678",
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.payments.CountRequests() != 0 {
				t.Error("a failed push must not store a request")
			}
			if f.gateway.PushCallCount != 1 {
				t.Errorf("push must not be retried, called %d times", f.gateway.PushCallCount)
			}
		})
	}
}

func TestInitiate_StorageFailureAfterAcceptedPush(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.payments.CreateError = testutil.ErrMockTimeout

	_, err := f.svc.Initiate(context.Background(), service.InitiatePaymentRequest{
		MemberID:    "member-1",
		Amount:      decimal.NewFromInt(10),
		PhoneNumber: "0712345678",
	})
	if !errors.Is(err, service.ErrPaymentNotRecorded) {
		t.Fatalf("expected ErrPaymentNotRecorded, got %v", err)
	}
}

// ──────────────────────────────────────────────
// CALLBACK
// ──────────────────────────────────────────────

func TestHandleCallback_SuccessCompletesAndRecordsContribution(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())

	outcome, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.CallbackApplied {
		t.Fatalf("outcome = %s", outcome)
	}

	stored := f.payments.GetRequest(checkoutID)
	if stored.Status != domain.PaymentRequestCompleted {
		t.Errorf("status = %s", stored.Status)
	}
	if stored.MpesaReceiptNumber != "NLJ7RT61SV" || stored.ResultCode == nil || *stored.ResultCode != 0 {
		t.Errorf("result fields not stored: %+v", stored)
	}
	if stored.TransactionDate == nil {
		t.Error("transaction date not stored")
	}

	entries := f.ledger.EntriesFor(stored.ID)
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if !entry.Amount.Equal(stored.Amount) {
		t.Errorf("ledger amount %s != request amount %s", entry.Amount, stored.Amount)
	}
	if entry.MemberID != "member-1" || entry.Type != domain.LedgerContribution ||
		entry.Status != domain.LedgerEntryConfirmed || entry.Method != domain.PaymentMethodMpesa {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Reference != "NLJ7RT61SV" {
		t.Errorf("reference = %q", entry.Reference)
	}

	if f.cache.InvalidateCallCount != 1 {
		t.Errorf("expected cache invalidation, got %d", f.cache.InvalidateCallCount)
	}
	if f.mailer.Count() != 1 {
		t.Errorf("expected one email, got %d", f.mailer.Count())
	}
	if f.locks.IsLocked(checkoutID) {
		t.Error("lock should be released")
	}
}

func TestHandleCallback_FailureMarksFailedWithoutLedger(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())

	outcome, err := f.svc.HandleCallback(context.Background(), domain.PaymentResult{
		CheckoutRequestID: checkoutID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.CallbackApplied {
		t.Fatalf("outcome = %s", outcome)
	}

	stored := f.payments.GetRequest(checkoutID)
	if stored.Status != domain.PaymentRequestFailed {
		t.Errorf("status = %s", stored.Status)
	}
	if stored.ResultCode == nil || *stored.ResultCode != 1032 || stored.ResultDesc != "Request cancelled by user" {
		t.Errorf("result fields not stored: %+v", stored)
	}
	if f.ledger.CountEntries() != 0 {
		t.Error("failed payment must not create a ledger entry")
	}
}

func TestHandleCallback_UnknownCheckoutID(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()

	outcome, err := f.svc.HandleCallback(context.Background(), successResult("ws_CO_unknown"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.CallbackUnknown {
		t.Errorf("outcome = %s", outcome)
	}
	if f.ledger.CountEntries() != 0 {
		t.Error("unknown checkout id must not create ledger entries")
	}
}

func TestHandleCallback_DuplicateDeliveryIsNoOp(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())

	if _, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first := f.payments.GetRequest(checkoutID)

	// A late failure delivery must not flip a completed request.
	outcome, err := f.svc.HandleCallback(context.Background(), domain.PaymentResult{
		CheckoutRequestID: checkoutID,
		ResultCode:        1,
		ResultDesc:        "Insufficient funds",
	})
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if outcome != service.CallbackDuplicate {
		t.Errorf("outcome = %s", outcome)
	}

	again := f.payments.GetRequest(checkoutID)
	if again.Status != domain.PaymentRequestCompleted || again.ResultDesc != first.ResultDesc {
		t.Errorf("terminal request changed: %+v", again)
	}
	if n := len(f.ledger.EntriesFor(first.ID)); n != 1 {
		t.Errorf("expected exactly 1 ledger entry, got %d", n)
	}
}

func TestHandleCallback_ConcurrentDeliveriesRecordOnce(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.HandleCallback(context.Background(), successResult(checkoutID))
		}()
	}
	wg.Wait()

	if n := f.ledger.CountEntries(); n != 1 {
		t.Errorf("expected exactly 1 ledger entry, got %d", n)
	}
}

func TestHandleCallback_LockStoreDownFallsBackToDatabaseGuard(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())
	f.locks.AcquireError = testutil.ErrMockTimeout

	for i := 0; i < 3; i++ {
		if _, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID)); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	if n := f.ledger.CountEntries(); n != 1 {
		t.Errorf("expected exactly 1 ledger entry, got %d", n)
	}
}

func TestHandleCallback_LedgerFailureRollsBackStatus(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())
	f.ledger.CreateError = testutil.ErrMockDBConstraint

	_, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID))
	if err == nil {
		t.Fatal("expected error")
	}

	stored := f.payments.GetRequest(checkoutID)
	if stored.Status != domain.PaymentRequestPending {
		t.Errorf("status should stay pending after rollback, got %s", stored.Status)
	}
	if f.tx.RollbackCount != 1 {
		t.Errorf("expected 1 rollback, got %d", f.tx.RollbackCount)
	}

	// The next delivery succeeds once the ledger recovers.
	f.ledger.CreateError = nil
	outcome, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID))
	if err != nil || outcome != service.CallbackApplied {
		t.Fatalf("retry: outcome %s err %v", outcome, err)
	}
	if f.ledger.CountEntries() != 1 {
		t.Errorf("expected 1 ledger entry, got %d", f.ledger.CountEntries())
	}
}

func TestHandleCallback_BusyLockStillApplies(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())
	f.locks.ForceAcquireFailure = true

	outcome, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.CallbackApplied {
		t.Errorf("outcome = %s, want applied", outcome)
	}

	stored := f.payments.GetRequest(checkoutID)
	if stored.Status != domain.PaymentRequestCompleted || stored.MpesaReceiptNumber != "NLJ7RT61SV" {
		t.Errorf("unexpected request %+v", stored)
	}
	if f.ledger.CountEntries() != 1 {
		t.Errorf("expected 1 ledger entry, got %d", f.ledger.CountEntries())
	}
}

func TestHandleCallback_AttachesReceiptAfterReconciliation(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now().Add(-time.Hour))
	f.gateway.QueryResponses[checkoutID] = &mpesa.STKQueryResponse{
		CheckoutRequestID: checkoutID,
		ResponseCode:      "0",
		ResultCode:        "0",
		ResultDesc:        "The service request is processed successfully.",
	}

	if _, err := f.svc.ReconcilePending(context.Background(), time.Minute); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := f.payments.GetRequest(checkoutID); got.Status != domain.PaymentRequestCompleted || got.MpesaReceiptNumber != "" {
		t.Fatalf("reconciliation should complete without receipt, got %+v", got)
	}

	outcome, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.CallbackReceiptAttached {
		t.Errorf("outcome = %s, want receipt_attached", outcome)
	}

	stored := f.payments.GetRequest(checkoutID)
	if stored.MpesaReceiptNumber != "NLJ7RT61SV" || stored.TransactionDate == nil {
		t.Errorf("receipt not attached: %+v", stored)
	}
	if f.ledger.CountEntries() != 1 {
		t.Errorf("expected 1 ledger entry, got %d", f.ledger.CountEntries())
	}

	// A second delivery has nothing left to add.
	outcome, _ = f.svc.HandleCallback(context.Background(), successResult(checkoutID))
	if outcome != service.CallbackDuplicate {
		t.Errorf("redelivery outcome = %s, want duplicate", outcome)
	}
}

func TestHandleCallback_ReleasesOnlyItsOwnLock(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())

	if _, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.locks.IsLocked(checkoutID) {
		t.Fatal("lock should be released after the callback")
	}

	// A stale holder releasing with its old token leaves the new holder's lock.
	token, ok, _ := f.locks.AcquireCallbackLock(context.Background(), checkoutID, time.Minute)
	if !ok {
		t.Fatal("expected to acquire lock")
	}
	_ = f.locks.ReleaseCallbackLock(context.Background(), checkoutID, "stale-token")
	if !f.locks.IsLocked(checkoutID) {
		t.Error("stale token must not release the current holder")
	}
	_ = f.locks.ReleaseCallbackLock(context.Background(), checkoutID, token)
	if f.locks.IsLocked(checkoutID) {
		t.Error("holder token should release the lock")
	}
}

// ──────────────────────────────────────────────
// RECONCILIATION
// ──────────────────────────────────────────────

func TestReconcilePending(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	old := time.Now().Add(-time.Hour)
	f.addPending("ws_CO_done", 100, old)
	f.addPending("ws_CO_cancel", 200, old)
	f.addPending("ws_CO_wait", 300, old)
	f.addPending("ws_CO_fresh", 400, time.Now())

	f.gateway.QueryResponses["ws_CO_done"] = &mpesa.STKQueryResponse{CheckoutRequestID: "ws_CO_done", ResponseCode: "0", ResultCode: "0", ResultDesc: "The service request is processed successfully."}
	f.gateway.QueryResponses["ws_CO_cancel"] = &mpesa.STKQueryResponse{CheckoutRequestID: "ws_CO_cancel", ResponseCode: "0", ResultCode: "1032", ResultDesc: "Request cancelled by user"}

	summary, err := f.svc.ReconcilePending(context.Background(), 10*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Checked != 3 || summary.Completed != 1 || summary.Failed != 1 || summary.StillPending != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if got := f.payments.GetRequest("ws_CO_done").Status; got != domain.PaymentRequestCompleted {
		t.Errorf("done status = %s", got)
	}
	if got := f.payments.GetRequest("ws_CO_cancel").Status; got != domain.PaymentRequestFailed {
		t.Errorf("cancel status = %s", got)
	}
	if got := f.payments.GetRequest("ws_CO_wait").Status; got != domain.PaymentRequestPending {
		t.Errorf("wait status = %s", got)
	}
	if got := f.payments.GetRequest("ws_CO_fresh").Status; got != domain.PaymentRequestPending {
		t.Errorf("fresh status = %s", got)
	}

	entries := f.ledger.EntriesFor("pr-ws_CO_done")
	if len(entries) != 1 || entries[0].Reference != "ws_CO_done" {
		t.Errorf("unexpected reconciled entries %+v", entries)
	}
}

func TestReconcilePending_LeavesLockedRequestToCallback(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now().Add(-time.Hour))
	f.gateway.QueryResponses[checkoutID] = &mpesa.STKQueryResponse{CheckoutRequestID: checkoutID, ResponseCode: "0", ResultCode: "0"}

	if _, ok, _ := f.locks.AcquireCallbackLock(context.Background(), checkoutID, time.Minute); !ok {
		t.Fatal("expected to acquire lock")
	}

	summary, err := f.svc.ReconcilePending(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Skipped != 1 || summary.Completed != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if got := f.payments.GetRequest(checkoutID).Status; got != domain.PaymentRequestPending {
		t.Errorf("status = %s, want pending", got)
	}
}

// ──────────────────────────────────────────────
// STATUS
// ──────────────────────────────────────────────

func TestGetStatus_CachesAndInvalidates(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()
	f.addPending(checkoutID, 500, time.Now())

	status, err := f.svc.GetStatus(context.Background(), checkoutID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != string(domain.PaymentRequestPending) || status.Amount != "500.00" {
		t.Errorf("unexpected status %+v", status)
	}
	if !f.cache.Has(checkoutID) {
		t.Fatal("status should be cached")
	}

	if _, err := f.svc.HandleCallback(context.Background(), successResult(checkoutID)); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if f.cache.Has(checkoutID) {
		t.Fatal("callback should invalidate the cached status")
	}

	status, err = f.svc.GetStatus(context.Background(), checkoutID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != string(domain.PaymentRequestCompleted) || status.MpesaReceiptNumber != "NLJ7RT61SV" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestGetStatus_NotFound(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()

	if _, err := f.svc.GetStatus(context.Background(), "ws_CO_missing"); !errors.Is(err, service.ErrPaymentRequestNotFound) {
		t.Errorf("expected ErrPaymentRequestNotFound, got %v", err)
	}
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()
	f := newPaymentFixture()

	if _, err := f.svc.List(context.Background(), "refunded", ""); !errors.Is(err, service.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}
