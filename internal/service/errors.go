package service

import "errors"

var (
	// ErrInvalidMemberID is returned when member ID is empty.
	ErrInvalidMemberID = errors.New("invalid member id")

	// ErrMemberNotFound is returned when the member does not exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidAmount is returned when an amount is not positive, or rounds
	// to less than one shilling for an STK Push.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPhoneNumber is returned when a phone number cannot be normalized.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// ErrInvalidFullName is returned when a member or staff name is empty.
	ErrInvalidFullName = errors.New("invalid full name")

	// ErrMemberAlreadyRegistered is returned when the phone number is taken.
	ErrMemberAlreadyRegistered = errors.New("member already registered")

	// ErrGatewayAuth is returned when the gateway does not issue an access token.
	ErrGatewayAuth = errors.New("payment gateway authentication failed")

	// ErrGatewayRejected is returned when the gateway refuses an STK Push.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")

	// ErrGatewayUnavailable is returned on network errors and timeouts.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentNotRecorded is returned when the push was accepted but the
	// payment request could not be stored.
	ErrPaymentNotRecorded = errors.New("payment request not recorded")

	// ErrPaymentRequestNotFound is returned for an unknown checkout request id.
	ErrPaymentRequestNotFound = errors.New("payment request not found")

	// ErrInvalidCheckoutRequestID is returned when checkout request ID is empty.
	ErrInvalidCheckoutRequestID = errors.New("invalid checkout request id")

	// ErrInvalidStatus is returned for an unknown payment request status filter.
	ErrInvalidStatus = errors.New("invalid payment status")

	// ErrInvalidCredentials is returned on a failed staff login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRole is returned for an unknown staff role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrWeakPassword is returned when a staff password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrStaffAlreadyExists is returned when the email is taken.
	ErrStaffAlreadyExists = errors.New("staff account already exists")

	// ErrInvalidLedgerType is returned for an unknown ledger entry type.
	ErrInvalidLedgerType = errors.New("invalid ledger entry type")

	// ErrInvalidPaymentMethod is returned when a manual entry uses a method
	// other than cash or bank.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrInvalidDateRange is returned when from is after to.
	ErrInvalidDateRange = errors.New("invalid date range")
)
