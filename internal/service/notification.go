package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"welfare/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPaymentCompleted NotificationType = "PAYMENT_COMPLETED"
	NotificationPaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotificationLedgerRecorded   NotificationType = "LEDGER_RECORDED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string // member ID
	Email       string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// Mailer delivers email. *mailer.SMTPMailer satisfies it.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NotificationService handles notification delivery. Every notification is
// logged; members with an email address are also mailed when a Mailer is set.
type NotificationService struct {
	logger *slog.Logger
	mailer Mailer
}

// NewNotificationService creates a new NotificationService. mailer may be nil.
func NewNotificationService(logger *slog.Logger, mailer Mailer) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{logger: logger, mailer: mailer}
}

// NotifyPaymentCompleted tells the member their contribution was received.
func (s *NotificationService) NotifyPaymentCompleted(ctx context.Context, req *domain.PaymentRequest, member *domain.Member) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentCompleted,
		RecipientID: req.MemberID,
		Email:       memberEmail(member),
		Title:       "Contribution received",
		Message: fmt.Sprintf("Your contribution of KES %s was received. MPESA receipt %s.",
			req.Amount.StringFixed(2), req.MpesaReceiptNumber),
		Data: map[string]interface{}{
			"checkout_request_id": req.CheckoutRequestID,
			"receipt":             req.MpesaReceiptNumber,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyPaymentFailed tells the member their STK Push did not complete.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, req *domain.PaymentRequest, member *domain.Member) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentFailed,
		RecipientID: req.MemberID,
		Email:       memberEmail(member),
		Title:       "Payment not completed",
		Message:     fmt.Sprintf("Your payment of KES %s was not completed: %s", req.Amount.StringFixed(2), req.ResultDesc),
		Data: map[string]interface{}{
			"checkout_request_id": req.CheckoutRequestID,
			"result_desc":         req.ResultDesc,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyLedgerRecorded tells the member about a manually recorded entry.
func (s *NotificationService) NotifyLedgerRecorded(ctx context.Context, entry *domain.LedgerEntry, member *domain.Member) error {
	return s.send(ctx, Notification{
		Type:        NotificationLedgerRecorded,
		RecipientID: entry.MemberID,
		Email:       memberEmail(member),
		Title:       "Welfare account updated",
		Message:     fmt.Sprintf("A %s of KES %s (%s) was recorded on your account.", entry.Type, entry.Amount.StringFixed(2), entry.Method),
		Data: map[string]interface{}{
			"ledger_entry_id": entry.ID,
		},
		CreatedAt: time.Now(),
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification",
		slog.String("type", string(n.Type)),
		slog.String("recipient", n.RecipientID),
		slog.String("title", n.Title),
		slog.String("message", n.Message),
	)

	if s.mailer == nil || n.Email == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, n.Email, n.Title, n.Message); err != nil {
		return fmt.Errorf("email %s: %w", n.RecipientID, err)
	}
	return nil
}

func memberEmail(m *domain.Member) string {
	if m == nil {
		return ""
	}
	return m.Email
}
