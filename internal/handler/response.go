package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"welfare/internal/report"
	"welfare/internal/repository"
	"welfare/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are not echoed to the client.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
		if errors.Is(err, service.ErrPaymentNotRecorded) {
			msg = service.ErrPaymentNotRecorded.Error()
		}
	}
	c.JSON(code, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrPaymentRequestNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidMemberID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPhoneNumber),
		errors.Is(err, service.ErrInvalidFullName),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidCheckoutRequestID),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidLedgerType),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, report.ErrUnknownFormat):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, service.ErrMemberAlreadyRegistered),
		errors.Is(err, service.ErrStaffAlreadyExists):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Gateway errors
	case errors.Is(err, service.ErrGatewayAuth):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrGatewayRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
