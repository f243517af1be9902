package mpesa

import (
	"encoding/json"
	"strings"

	"welfare/internal/domain"
)

// CallbackEnvelope is the body the gateway POSTs to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback carries the outcome of an STK Push.
type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is only present on successful payments.
type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

// CallbackItem is a name/value pair; values are JSON strings or numbers.
type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// Acknowledgement is the response body the gateway expects from the callback URL.
type Acknowledgement struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Accepted acknowledges a callback.
var Accepted = Acknowledgement{ResultCode: 0, ResultDesc: "Accepted"}

// Item returns the metadata value for name as a string, or "" when absent.
func (c STKCallback) Item(name string) string {
	if c.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name || len(item.Value) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(item.Value, &s); err == nil {
			return s
		}
		raw := strings.TrimSpace(string(item.Value))
		if raw == "null" {
			return ""
		}
		return raw
	}
	return ""
}

// Result converts the callback into a domain.PaymentResult. A transaction date
// the gateway sent in an unexpected format is dropped rather than failing the callback.
func (c STKCallback) Result() domain.PaymentResult {
	result := domain.PaymentResult{
		CheckoutRequestID: c.CheckoutRequestID,
		MerchantRequestID: c.MerchantRequestID,
		ResultCode:        c.ResultCode,
		ResultDesc:        c.ResultDesc,
	}
	if c.ResultCode != 0 {
		return result
	}

	result.MpesaReceiptNumber = c.Item("MpesaReceiptNumber")
	if raw := c.Item("TransactionDate"); raw != "" {
		if t, err := ParseTimestamp(raw); err == nil {
			result.TransactionDate = &t
		}
	}
	return result
}
