package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"welfare/internal/domain"
	"welfare/internal/service"
)

const defaultReconcileAge = 5 * time.Minute

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiatePaymentRequest is the HTTP request body for an STK Push.
type InitiatePaymentRequest struct {
	MemberID    string          `json:"member_id"`
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
}

// PaymentResponse is the HTTP response for payment requests.
type PaymentResponse struct {
	ID                 string     `json:"id"`
	MemberID           string     `json:"member_id"`
	Amount             string     `json:"amount"`
	PhoneNumber        string     `json:"phone_number"`
	CheckoutRequestID  string     `json:"checkout_request_id"`
	MerchantRequestID  string     `json:"merchant_request_id"`
	Status             string     `json:"status"`
	MpesaReceiptNumber string     `json:"mpesa_receipt_number,omitempty"`
	ResultCode         *int       `json:"result_code,omitempty"`
	ResultDesc         string     `json:"result_desc,omitempty"`
	TransactionDate    *time.Time `json:"transaction_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toPaymentResponse(p *domain.PaymentRequest) PaymentResponse {
	return PaymentResponse{
		ID:                 p.ID,
		MemberID:           p.MemberID,
		Amount:             p.Amount.StringFixed(2),
		PhoneNumber:        p.PhoneNumber,
		CheckoutRequestID:  p.CheckoutRequestID,
		MerchantRequestID:  p.MerchantRequestID,
		Status:             string(p.Status),
		MpesaReceiptNumber: p.MpesaReceiptNumber,
		ResultCode:         p.ResultCode,
		ResultDesc:         p.ResultDesc,
		TransactionDate:    p.TransactionDate,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// Initiate handles POST /v1/payments/stk-push
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.MemberID == "" || req.PhoneNumber == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "member_id and phone_number are required"})
		return
	}

	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount must be positive"})
		return
	}

	payment, err := h.paymentService.Initiate(c.Request.Context(), service.InitiatePaymentRequest{
		MemberID:    req.MemberID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// GetStatus handles GET /v1/payments/:checkout_request_id
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	status, err := h.paymentService.GetStatus(c.Request.Context(), c.Param("checkout_request_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, status)
}

// List handles GET /v1/payments?status=&member_id=
func (h *PaymentHandler) List(c *gin.Context) {
	payments, err := h.paymentService.List(c.Request.Context(), c.Query("status"), c.Query("member_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		response = append(response, toPaymentResponse(p))
	}
	respondJSON(c, http.StatusOK, response)
}

// Reconcile handles POST /v1/payments/reconcile?older_than=10m
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	olderThan := defaultReconcileAge
	if raw := c.Query("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "older_than must be a duration such as 10m"})
			return
		}
		olderThan = d
	}

	summary, err := h.paymentService.ReconcilePending(c.Request.Context(), olderThan)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, summary)
}
