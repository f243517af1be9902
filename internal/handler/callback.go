package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"welfare/internal/mpesa"
	"welfare/internal/service"
)

const maxCallbackBytes = 64 << 10

// CallbackHandler receives STK Push results from the gateway.
type CallbackHandler struct {
	paymentService *service.PaymentService
	logger         *slog.Logger
}

// NewCallbackHandler creates a new CallbackHandler.
func NewCallbackHandler(paymentService *service.PaymentService, logger *slog.Logger) *CallbackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackHandler{paymentService: paymentService, logger: logger}
}

// Handle handles POST /v1/mpesa/callback. Every well-formed body is
// acknowledged; processing failures leave the request pending for
// reconciliation.
func (h *CallbackHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, mpesa.Acknowledgement{ResultCode: 1, ResultDesc: "Unreadable body"})
		return
	}

	var envelope mpesa.CallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.WarnContext(c.Request.Context(), "malformed mpesa callback", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, mpesa.Acknowledgement{ResultCode: 1, ResultDesc: "Malformed callback"})
		return
	}

	if _, err := h.paymentService.HandleCallback(c.Request.Context(), envelope.Body.STKCallback.Result()); err != nil {
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, mpesa.Accepted)
}
