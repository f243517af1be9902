// Package testutil holds in-memory mocks shared by service and handler tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"welfare/internal/domain"
	"welfare/internal/mpesa"
	"welfare/internal/redis"
	"welfare/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK MEMBER REPOSITORY
// ──────────────────────────────────────────────

// MockMemberRepository is a mock implementation of MemberRepository.
type MockMemberRepository struct {
	mu      sync.RWMutex
	members map[string]*domain.Member
	seq     int

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError  error
	GetByIDError error
}

// NewMockMemberRepository creates a new mock member repository.
func NewMockMemberRepository() *MockMemberRepository {
	return &MockMemberRepository{
		members: make(map[string]*domain.Member),
	}
}

// AddMember adds a member to the mock repository.
func (m *MockMemberRepository) AddMember(member *domain.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.ID] = member
}

func (m *MockMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members {
		if existing.PhoneNumber == member.PhoneNumber {
			return repository.ErrConflict
		}
	}
	m.seq++
	member.MemberNumber = "WF" + leftPad(m.seq)
	stored := *member
	m.members[member.ID] = &stored
	return nil
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored := *member
	return &stored, nil
}

func (m *MockMemberRepository) GetByPhone(ctx context.Context, phone string) (*domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, member := range m.members {
		if member.PhoneNumber == phone {
			stored := *member
			return &stored, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockMemberRepository) GetAll(ctx context.Context) ([]*domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Member, 0, len(m.members))
	for _, member := range m.members {
		stored := *member
		result = append(result, &stored)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MemberNumber < result[j].MemberNumber })
	return result, nil
}

func leftPad(n int) string {
	s := []byte("00000")
	for i := len(s) - 1; i >= 0 && n > 0; i-- {
		s[i] = byte('0' + n%10)
		n /= 10
	}
	return string(s)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REQUEST REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRequestRepository is a mock implementation of PaymentRequestRepository.
type MockPaymentRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.PaymentRequest // keyed by checkout request id

	// Counters for verification
	CreateCallCount       int32
	UpdateResultCallCount int32

	// Error injection
	CreateError       error
	UpdateResultError error
}

// NewMockPaymentRequestRepository creates a new mock payment request repository.
func NewMockPaymentRequestRepository() *MockPaymentRequestRepository {
	return &MockPaymentRequestRepository{
		requests: make(map[string]*domain.PaymentRequest),
	}
}

// AddRequest adds a payment request to the mock repository.
func (m *MockPaymentRequestRepository) AddRequest(req *domain.PaymentRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *req
	m.requests[req.CheckoutRequestID] = &stored
}

func (m *MockPaymentRequestRepository) Create(ctx context.Context, req *domain.PaymentRequest) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[req.CheckoutRequestID]; exists {
		return repository.ErrConflict
	}
	stored := *req
	m.requests[req.CheckoutRequestID] = &stored
	return nil
}

func (m *MockPaymentRequestRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[checkoutRequestID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored := *req
	return &stored, nil
}

func (m *MockPaymentRequestRepository) GetByCheckoutRequestIDForUpdate(ctx context.Context, checkoutRequestID string) (*domain.PaymentRequest, error) {
	return m.GetByCheckoutRequestID(ctx, checkoutRequestID)
}

func (m *MockPaymentRequestRepository) UpdateResult(ctx context.Context, req *domain.PaymentRequest) error {
	atomic.AddInt32(&m.UpdateResultCallCount, 1)
	if m.UpdateResultError != nil {
		return m.UpdateResultError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.requests[req.CheckoutRequestID]
	if !ok || existing.Status != domain.PaymentRequestPending {
		return repository.ErrNotFound
	}
	stored := *req
	m.requests[req.CheckoutRequestID] = &stored
	return nil
}

func (m *MockPaymentRequestRepository) AttachReceipt(ctx context.Context, req *domain.PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.requests[req.CheckoutRequestID]
	if !ok || existing.Status != domain.PaymentRequestCompleted || existing.MpesaReceiptNumber != "" {
		return repository.ErrNotFound
	}
	existing.MpesaReceiptNumber = req.MpesaReceiptNumber
	if req.TransactionDate != nil {
		existing.TransactionDate = req.TransactionDate
	}
	existing.UpdatedAt = req.UpdatedAt
	return nil
}

func (m *MockPaymentRequestRepository) List(ctx context.Context, status domain.PaymentRequestStatus, memberID string) ([]*domain.PaymentRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PaymentRequest
	for _, req := range m.requests {
		if status != "" && req.Status != status {
			continue
		}
		if memberID != "" && req.MemberID != memberID {
			continue
		}
		stored := *req
		result = append(result, &stored)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *MockPaymentRequestRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.PaymentRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PaymentRequest
	for _, req := range m.requests {
		if req.Status == domain.PaymentRequestPending && req.CreatedAt.Before(cutoff) {
			stored := *req
			result = append(result, &stored)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// GetRequest returns a payment request for test assertions.
func (m *MockPaymentRequestRepository) GetRequest(checkoutRequestID string) *domain.PaymentRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[checkoutRequestID]
	if !ok {
		return nil
	}
	stored := *req
	return &stored
}

// CountRequests returns the number of stored requests.
func (m *MockPaymentRequestRepository) CountRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func (m *MockPaymentRequestRepository) snapshot() map[string]domain.PaymentRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]domain.PaymentRequest, len(m.requests))
	for k, v := range m.requests {
		snap[k] = *v
	}
	return snap
}

func (m *MockPaymentRequestRepository) restore(snap map[string]domain.PaymentRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]*domain.PaymentRequest, len(snap))
	for k, v := range snap {
		v := v
		m.requests[k] = &v
	}
}

// ──────────────────────────────────────────────
// MOCK LEDGER REPOSITORY
// ──────────────────────────────────────────────

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockLedgerRepository creates a new mock ledger repository.
func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.PaymentRequestID != "" {
		for _, e := range m.entries {
			if e.PaymentRequestID == entry.PaymentRequestID {
				return repository.ErrConflict
			}
		}
	}
	stored := *entry
	m.entries = append(m.entries, &stored)
	return nil
}

func (m *MockLedgerRepository) List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.LedgerEntry
	for _, e := range m.entries {
		if filter.MemberID != "" && e.MemberID != filter.MemberID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if !filter.From.IsZero() && e.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !e.CreatedAt.Before(filter.To) {
			continue
		}
		stored := *e
		result = append(result, &stored)
	}
	return result, nil
}

func (m *MockLedgerRepository) Balance(ctx context.Context, memberID string) (*domain.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b := &domain.Balance{MemberID: memberID, Contributions: decimal.Zero, Disbursements: decimal.Zero}
	for _, e := range m.entries {
		if e.MemberID != memberID || e.Status != domain.LedgerEntryConfirmed {
			continue
		}
		switch e.Type {
		case domain.LedgerContribution:
			b.Contributions = b.Contributions.Add(e.Amount)
		case domain.LedgerDisbursement:
			b.Disbursements = b.Disbursements.Add(e.Amount)
		}
	}
	return b, nil
}

// AddEntry adds a ledger entry to the mock repository.
func (m *MockLedgerRepository) AddEntry(entry *domain.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *entry
	m.entries = append(m.entries, &stored)
}

// EntriesFor returns the ledger entries linked to a payment request.
func (m *MockLedgerRepository) EntriesFor(paymentRequestID string) []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.PaymentRequestID == paymentRequestID {
			stored := *e
			result = append(result, &stored)
		}
	}
	return result
}

// CountEntries returns the number of ledger entries.
func (m *MockLedgerRepository) CountEntries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MockLedgerRepository) snapshot() []domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make([]domain.LedgerEntry, len(m.entries))
	for i, e := range m.entries {
		snap[i] = *e
	}
	return snap
}

func (m *MockLedgerRepository) restore(snap []domain.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make([]*domain.LedgerEntry, len(snap))
	for i := range snap {
		e := snap[i]
		m.entries[i] = &e
	}
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor runs transactions one at a time against the mock payment
// and ledger repositories and restores both when fn fails.
type MockTransactor struct {
	mu       sync.Mutex
	Payments *MockPaymentRequestRepository
	Ledger   *MockLedgerRepository

	// Counters
	CommitCount   int32
	RollbackCount int32

	// Error injection
	BeginError error
}

// NewMockTransactor creates a transactor over the given mock repositories.
func NewMockTransactor(payments *MockPaymentRequestRepository, ledger *MockLedgerRepository) *MockTransactor {
	return &MockTransactor{Payments: payments, Ledger: ledger}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(repos repository.TxRepositories) error) error {
	if m.BeginError != nil {
		return m.BeginError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	paymentSnap := m.Payments.snapshot()
	ledgerSnap := m.Ledger.snapshot()

	if err := fn(repository.TxRepositories{Payments: m.Payments, Ledger: m.Ledger}); err != nil {
		m.Payments.restore(paymentSnap)
		m.Ledger.restore(ledgerSnap)
		atomic.AddInt32(&m.RollbackCount, 1)
		return err
	}
	atomic.AddInt32(&m.CommitCount, 1)
	return nil
}

// ──────────────────────────────────────────────
// MOCK STAFF REPOSITORY
// ──────────────────────────────────────────────

// MockStaffRepository is a mock implementation of StaffRepository.
type MockStaffRepository struct {
	mu    sync.RWMutex
	staff map[string]*domain.Staff // keyed by email
}

// NewMockStaffRepository creates a new mock staff repository.
func NewMockStaffRepository() *MockStaffRepository {
	return &MockStaffRepository{staff: make(map[string]*domain.Staff)}
}

func (m *MockStaffRepository) Create(ctx context.Context, staff *domain.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.staff[staff.Email]; exists {
		return repository.ErrConflict
	}
	stored := *staff
	m.staff[staff.Email] = &stored
	return nil
}

func (m *MockStaffRepository) GetByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	staff, ok := m.staff[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored := *staff
	return &stored, nil
}

// ──────────────────────────────────────────────
// MOCK GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock MPESA gateway.
type MockGateway struct {
	mu sync.Mutex

	// Control behavior
	PushResponse   *mpesa.STKPushResponse
	PushError      error
	QueryResponses map[string]*mpesa.STKQueryResponse
	QueryErrors    map[string]error

	// Recorded calls
	LastPush       mpesa.PushParams
	PushCallCount  int32
	QueryCallCount int32
}

// NewMockGateway creates a gateway that accepts every push with checkoutRequestID.
func NewMockGateway(checkoutRequestID string) *MockGateway {
	return &MockGateway{
		PushResponse: &mpesa.STKPushResponse{
			MerchantRequestID:   "29115-34620561-1",
			CheckoutRequestID:   checkoutRequestID,
			ResponseCode:        "0",
			ResponseDescription: "Success. Request accepted for processing",
		},
		QueryResponses: make(map[string]*mpesa.STKQueryResponse),
		QueryErrors:    make(map[string]error),
	}
}

func (m *MockGateway) STKPush(ctx context.Context, params mpesa.PushParams) (*mpesa.STKPushResponse, error) {
	atomic.AddInt32(&m.PushCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastPush = params
	if m.PushError != nil {
		return nil, m.PushError
	}
	resp := *m.PushResponse
	return &resp, nil
}

func (m *MockGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error) {
	atomic.AddInt32(&m.QueryCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.QueryErrors[checkoutRequestID]; ok {
		return nil, err
	}
	resp, ok := m.QueryResponses[checkoutRequestID]
	if !ok {
		return nil, mpesa.ErrStillProcessing
	}
	out := *resp
	return &out, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu     sync.Mutex
	locks  map[string]mockLock
	tokens int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

type mockLock struct {
	token  string
	expiry time.Time
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]mockLock),
	}
}

func (m *MockLockStore) AcquireCallbackLock(ctx context.Context, checkoutRequestID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return "", false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:callback:" + checkoutRequestID
	if held, exists := m.locks[key]; exists && time.Now().Before(held.expiry) {
		return "", false, nil // Lock still held.
	}

	m.tokens++
	token := fmt.Sprintf("token-%d", m.tokens)
	m.locks[key] = mockLock{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

// ReleaseCallbackLock deletes the lock only while token still owns it.
func (m *MockLockStore) ReleaseCallbackLock(ctx context.Context, checkoutRequestID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "lock:callback:" + checkoutRequestID
	if held, exists := m.locks[key]; exists && held.token == token {
		delete(m.locks, key)
	}
	return nil
}

// IsLocked reports whether a checkout request is locked (for test assertions).
func (m *MockLockStore) IsLocked(checkoutRequestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, exists := m.locks["lock:callback:"+checkoutRequestID]
	return exists && time.Now().Before(held.expiry)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT STATUS CACHE
// ──────────────────────────────────────────────

// MockStatusCache is a mock implementation of PaymentStatusCache.
type MockStatusCache struct {
	mu       sync.Mutex
	statuses map[string]redis.CachedPaymentStatus

	// Counters
	GetCallCount        int32
	InvalidateCallCount int32
}

// NewMockStatusCache creates a new mock status cache.
func NewMockStatusCache() *MockStatusCache {
	return &MockStatusCache{statuses: make(map[string]redis.CachedPaymentStatus)}
}

func (m *MockStatusCache) GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*redis.CachedPaymentStatus, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[checkoutRequestID]
	if !ok {
		return nil, nil
	}
	return &status, nil
}

func (m *MockStatusCache) SetPaymentStatus(ctx context.Context, status *redis.CachedPaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[status.CheckoutRequestID] = *status
	return nil
}

func (m *MockStatusCache) InvalidatePaymentStatus(ctx context.Context, checkoutRequestID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, checkoutRequestID)
	return nil
}

// Has reports whether a status is cached.
func (m *MockStatusCache) Has(checkoutRequestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.statuses[checkoutRequestID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK MAILER
// ──────────────────────────────────────────────

// SentMail is one message captured by MockMailer.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// MockMailer records sent email.
type MockMailer struct {
	mu   sync.Mutex
	Sent []SentMail

	// Error injection
	SendError error
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

// Count returns the number of sent messages.
func (m *MockMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)

// Compile-time interface checks.
var (
	_ repository.MemberRepository         = (*MockMemberRepository)(nil)
	_ repository.PaymentRequestRepository = (*MockPaymentRequestRepository)(nil)
	_ repository.LedgerRepository         = (*MockLedgerRepository)(nil)
	_ repository.StaffRepository          = (*MockStaffRepository)(nil)
	_ repository.Transactor               = (*MockTransactor)(nil)
	_ redis.LockStoreInterface            = (*MockLockStore)(nil)
	_ redis.PaymentStatusCache            = (*MockStatusCache)(nil)
)
