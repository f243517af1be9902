package mpesa

import (
	"errors"
	"strings"
)

// ErrInvalidPhoneNumber is returned when a number cannot be normalized to a
// Kenyan MSISDN.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

const msisdnLength = 12

// NormalizePhone converts a local phone number to the international 254 format
// the gateway expects: a leading "0" becomes "254", numbers already starting
// with "254" pass through, anything else is prefixed with "254".
func NormalizePhone(raw string) (string, error) {
	phone := strings.Join(strings.Fields(raw), "")
	phone = strings.TrimPrefix(phone, "+")

	switch {
	case strings.HasPrefix(phone, "0"):
		phone = "254" + phone[1:]
	case strings.HasPrefix(phone, "254"):
	default:
		phone = "254" + phone
	}

	if len(phone) != msisdnLength {
		return "", ErrInvalidPhoneNumber
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhoneNumber
		}
	}
	return phone, nil
}
