package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"welfare/internal/domain"
	"welfare/internal/repository"
)

// LedgerService records and reads ledger entries.
type LedgerService struct {
	memberRepo          repository.MemberRepository
	ledgerRepo          repository.LedgerRepository
	notificationService *NotificationService
	logger              *slog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	memberRepo repository.MemberRepository,
	ledgerRepo repository.LedgerRepository,
	notificationService *NotificationService,
	logger *slog.Logger,
) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		memberRepo:          memberRepo,
		ledgerRepo:          ledgerRepo,
		notificationService: notificationService,
		logger:              logger,
	}
}

// RecordEntryRequest contains the parameters for a manual ledger entry.
type RecordEntryRequest struct {
	MemberID    string
	Amount      decimal.Decimal
	Type        domain.LedgerEntryType
	Method      domain.PaymentMethod
	Reference   string
	Description string
	RecordedBy  string
}

// RecordEntry appends a manual contribution or disbursement. MPESA entries
// are only created by the payment callback.
func (s *LedgerService) RecordEntry(ctx context.Context, req RecordEntryRequest) (*domain.LedgerEntry, error) {
	if req.MemberID == "" {
		return nil, ErrInvalidMemberID
	}

	if req.Type != domain.LedgerContribution && req.Type != domain.LedgerDisbursement {
		return nil, ErrInvalidLedgerType
	}

	if req.Method != domain.PaymentMethodCash && req.Method != domain.PaymentMethodBank {
		return nil, ErrInvalidPaymentMethod
	}

	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	member, err := s.memberRepo.GetByID(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:          uuid.New().String(),
		MemberID:    member.ID,
		Amount:      amount,
		Type:        req.Type,
		Status:      domain.LedgerEntryConfirmed,
		Method:      req.Method,
		Reference:   req.Reference,
		Description: req.Description,
		RecordedBy:  req.RecordedBy,
		CreatedAt:   time.Now(),
	}

	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ledger entry recorded",
		slog.String("ledger_entry_id", entry.ID),
		slog.String("member_id", entry.MemberID),
		slog.String("type", string(entry.Type)),
		slog.String("amount", entry.Amount.String()),
		slog.String("recorded_by", entry.RecordedBy),
	)

	if s.notificationService != nil {
		if err := s.notificationService.NotifyLedgerRecorded(ctx, entry, member); err != nil {
			s.logger.WarnContext(ctx, "ledger notification failed", slog.String("error", err.Error()))
		}
	}

	return entry, nil
}

// List returns ledger entries matching filter.
func (s *LedgerService) List(ctx context.Context, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, ErrInvalidDateRange
	}
	if filter.Type != "" && filter.Type != domain.LedgerContribution && filter.Type != domain.LedgerDisbursement {
		return nil, ErrInvalidLedgerType
	}
	return s.ledgerRepo.List(ctx, filter)
}

// Balance returns a member's contribution and disbursement totals.
func (s *LedgerService) Balance(ctx context.Context, memberID string) (*domain.Balance, error) {
	if memberID == "" {
		return nil, ErrInvalidMemberID
	}

	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return s.ledgerRepo.Balance(ctx, memberID)
}
