package mpesa

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed is returned when the identity endpoint does not issue a token.
	ErrAuthFailed = errors.New("mpesa: access token request failed")

	// ErrUnavailable is returned when the gateway cannot be reached or times out.
	ErrUnavailable = errors.New("mpesa: gateway unavailable")

	// ErrStillProcessing is returned by a status query while the member has not
	// yet answered the prompt.
	ErrStillProcessing = errors.New("mpesa: transaction is being processed")
)

// stillProcessingCode is the error code the query endpoint uses for in-flight pushes.
const stillProcessingCode = "500.001.1001"

// APIError is a business or validation error reported by the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mpesa: gateway error %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}
