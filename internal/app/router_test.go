package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"welfare/internal/auth"
	"welfare/internal/domain"
	"welfare/internal/handler"
	"welfare/internal/service"
	"welfare/internal/testutil"
)

type memoryResponseStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	inFlight map[string]bool
}

func (m *memoryResponseStore) GetResponse(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryResponseStore) SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memoryResponseStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[key] {
		return false, nil
	}
	m.inFlight[key] = true
	return true, nil
}

func (m *memoryResponseStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, key)
	return nil
}

type routerFixture struct {
	router  *gin.Engine
	tokens  *auth.TokenIssuer
	auth    *service.AuthService
	members *testutil.MockMemberRepository
	gateway *testutil.MockGateway
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.TokenIssuer) {
	f := newRouterFixture(t)
	return f.router, f.tokens
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	members := testutil.NewMockMemberRepository()
	payments := testutil.NewMockPaymentRequestRepository()
	ledger := testutil.NewMockLedgerRepository()
	gateway := testutil.NewMockGateway("ws_CO_1")
	tokens := auth.NewTokenIssuer("router-secret", time.Hour)
	authService := service.NewAuthService(testutil.NewMockStaffRepository(), tokens)

	notifications := service.NewNotificationService(logger, nil)
	paymentService := service.NewPaymentService(members, payments, testutil.NewMockTransactor(payments, ledger),
		gateway, testutil.NewMockLockStore(), testutil.NewMockStatusCache(), notifications, logger)
	ledgerService := service.NewLedgerService(members, ledger, notifications, logger)

	router := NewRouter(RouterDeps{
		MemberHandler:   handler.NewMemberHandler(service.NewMemberService(members), ledgerService),
		PaymentHandler:  handler.NewPaymentHandler(paymentService),
		CallbackHandler: handler.NewCallbackHandler(paymentService, logger),
		LedgerHandler:   handler.NewLedgerHandler(ledgerService),
		ReportHandler:   handler.NewReportHandler(service.NewReportService(members, ledger)),
		AuthHandler:     handler.NewAuthHandler(authService),
		Tokens:          tokens,
		Idempotency:     &memoryResponseStore{data: make(map[string][]byte), inFlight: make(map[string]bool)},
	})
	return &routerFixture{router: router, tokens: tokens, auth: authService, members: members, gateway: gateway}
}

func (f *routerFixture) post(path, body, idempotencyKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_RoleGating(t *testing.T) {
	router, tokens := newTestRouter(t)

	tokenFor := func(role domain.Role) string {
		token, _, err := tokens.Issue(&domain.Staff{ID: "staff-" + string(role), Email: string(role) + "@example.org", Role: role})
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		return token
	}

	tests := []struct {
		name   string
		method string
		path   string
		role   domain.Role
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"member list needs a token", http.MethodGet, "/v1/members", "", http.StatusUnauthorized},
		{"secretary reads members", http.MethodGet, "/v1/members", domain.RoleSecretary, http.StatusOK},
		{"coordinator cannot list payments", http.MethodGet, "/v1/payments", domain.RoleCoordinator, http.StatusForbidden},
		{"auditor lists payments", http.MethodGet, "/v1/payments", domain.RoleAuditor, http.StatusOK},
		{"auditor cannot reconcile", http.MethodPost, "/v1/payments/reconcile", domain.RoleAuditor, http.StatusForbidden},
		{"treasurer reconciles", http.MethodPost, "/v1/payments/reconcile", domain.RoleTreasurer, http.StatusOK},
		{"secretary cannot write ledger", http.MethodPost, "/v1/ledger", domain.RoleSecretary, http.StatusForbidden},
		{"coordinator cannot export reports", http.MethodGet, "/v1/reports/contributions", domain.RoleCoordinator, http.StatusForbidden},
		{"payment status is public", http.MethodGet, "/v1/payments/ws_CO_missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", "Bearer "+tokenFor(tt.role))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("%s %s as %q: got %d, want %d (%s)", tt.method, tt.path, tt.role, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRouter_PublicRegistration(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"full_name":"Jane Wanjiku","phone_number":"0712345678"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/members/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"phone_number":"254712345678"`) {
		t.Errorf("phone should be normalized: %s", w.Body.String())
	}
}

func TestRouter_LoginIsNeverReplayed(t *testing.T) {
	f := newRouterFixture(t)
	_, err := f.auth.CreateStaff(context.Background(), service.CreateStaffRequest{
		Email:    "treasurer@example.org",
		FullName: "Mary Achieng",
		Role:     domain.RoleTreasurer,
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	first := f.post("/v1/auth/login", `{"email":"treasurer@example.org","password":"correct-horse"}`, "k1")
	if first.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", first.Code, first.Body.String())
	}

	second := f.post("/v1/auth/login", `{"email":"treasurer@example.org","password":"WRONG"}`, "k1")
	if second.Code != http.StatusUnauthorized {
		t.Errorf("wrong password with a reused key: got %d, want 401 (%s)", second.Code, second.Body.String())
	}
	if strings.Contains(second.Body.String(), "token") {
		t.Error("wrong password must not receive a token")
	}
}

func TestRouter_STKPushReplaysIdempotencyKey(t *testing.T) {
	f := newRouterFixture(t)
	f.members.AddMember(&domain.Member{ID: "member-1", MemberNumber: "WF00001", FullName: "Jane Wanjiku", PhoneNumber: "254712345678"})

	body := `{"member_id":"member-1","amount":100,"phone_number":"0712345678"}`
	first := f.post("/v1/payments/stk-push", body, "pay-1")
	second := f.post("/v1/payments/stk-push", body, "pay-1")

	if first.Code != http.StatusCreated {
		t.Fatalf("first push: status %d body %s", first.Code, first.Body.String())
	}
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Errorf("second push should replay, got %d", second.Code)
	}
	if n := atomic.LoadInt32(&f.gateway.PushCallCount); n != 1 {
		t.Errorf("gateway pushed %d times, want 1", n)
	}
}
