package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"welfare/internal/domain"
	"welfare/internal/middleware"
	"welfare/internal/service"
)

const dateLayout = "2006-01-02"

// LedgerHandler handles HTTP requests for the ledger.
type LedgerHandler struct {
	ledgerService *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// RecordEntryRequest is the HTTP request body for a manual ledger entry.
type RecordEntryRequest struct {
	MemberID    string          `json:"member_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
}

// LedgerEntryResponse is the HTTP response for a ledger entry.
type LedgerEntryResponse struct {
	ID               string    `json:"id"`
	MemberID         string    `json:"member_id"`
	Amount           string    `json:"amount"`
	Type             string    `json:"type"`
	Status           string    `json:"status"`
	Method           string    `json:"method"`
	PaymentRequestID string    `json:"payment_request_id,omitempty"`
	Reference        string    `json:"reference,omitempty"`
	Description      string    `json:"description,omitempty"`
	RecordedBy       string    `json:"recorded_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:               e.ID,
		MemberID:         e.MemberID,
		Amount:           e.Amount.StringFixed(2),
		Type:             string(e.Type),
		Status:           string(e.Status),
		Method:           string(e.Method),
		PaymentRequestID: e.PaymentRequestID,
		Reference:        e.Reference,
		Description:      e.Description,
		RecordedBy:       e.RecordedBy,
		CreatedAt:        e.CreatedAt,
	}
}

// Record handles POST /v1/ledger
func (h *LedgerHandler) Record(c *gin.Context) {
	var req RecordEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var recordedBy string
	if claims, ok := middleware.StaffClaims(c); ok {
		recordedBy = claims.Subject
	}

	entry, err := h.ledgerService.RecordEntry(c.Request.Context(), service.RecordEntryRequest{
		MemberID:    req.MemberID,
		Amount:      req.Amount,
		Type:        domain.LedgerEntryType(req.Type),
		Method:      domain.PaymentMethod(req.Method),
		Reference:   req.Reference,
		Description: req.Description,
		RecordedBy:  recordedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toLedgerEntryResponse(entry))
}

// List handles GET /v1/ledger?member_id=&type=&from=&to=
func (h *LedgerHandler) List(c *gin.Context) {
	filter := domain.LedgerFilter{
		MemberID: c.Query("member_id"),
		Type:     domain.LedgerEntryType(c.Query("type")),
	}

	from, to, ok := parseDateRange(c, false)
	if !ok {
		return
	}
	filter.From = from
	if !to.IsZero() {
		filter.To = to.AddDate(0, 0, 1)
	}

	entries, err := h.ledgerService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, toLedgerEntryResponse(e))
	}
	respondJSON(c, http.StatusOK, response)
}

// parseDateRange reads from/to (YYYY-MM-DD) query parameters. When required is
// set, missing values default to the first of the current month and today.
func parseDateRange(c *gin.Context, required bool) (time.Time, time.Time, bool) {
	var from, to time.Time
	var err error

	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "from must be YYYY-MM-DD"})
			return from, to, false
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "to must be YYYY-MM-DD"})
			return from, to, false
		}
	}

	if required {
		now := time.Now().UTC()
		if to.IsZero() {
			to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		}
		if from.IsZero() {
			from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
		}
	}
	return from, to, true
}
