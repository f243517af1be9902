package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"welfare/internal/domain"
	"welfare/internal/mpesa"
	"welfare/internal/redis"
	"welfare/internal/repository"
)

// callbackLockTTL bounds how long one delivery may hold the per-request lock.
const callbackLockTTL = 30 * time.Second

// Gateway is the MPESA API used by the payment service. *mpesa.Client satisfies it.
type Gateway interface {
	STKPush(ctx context.Context, params mpesa.PushParams) (*mpesa.STKPushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// CallbackOutcome describes what a gateway result did to the stored request.
type CallbackOutcome string

const (
	// CallbackApplied means the request moved to completed or failed.
	CallbackApplied CallbackOutcome = "applied"
	// CallbackDuplicate means the request was already terminal, or a
	// reconciliation pass found another delivery in flight. Nothing changed.
	CallbackDuplicate CallbackOutcome = "duplicate"
	// CallbackReceiptAttached means the request had completed without a
	// receipt and this result supplied it.
	CallbackReceiptAttached CallbackOutcome = "receipt_attached"
	// CallbackUnknown means no request matches the checkout request id.
	CallbackUnknown CallbackOutcome = "unknown"
)

// PaymentStatus is the view of a payment request returned to pollers.
type PaymentStatus = redis.CachedPaymentStatus

// PaymentService initiates STK Push payments and applies their results.
type PaymentService struct {
	memberRepo          repository.MemberRepository
	paymentRepo         repository.PaymentRequestRepository
	transactor          repository.Transactor
	gateway             Gateway
	locks               redis.LockStoreInterface
	statusCache         redis.PaymentStatusCache
	notificationService *NotificationService
	logger              *slog.Logger
	now                 func() time.Time
}

// NewPaymentService creates a new PaymentService. locks and statusCache may be nil.
func NewPaymentService(
	memberRepo repository.MemberRepository,
	paymentRepo repository.PaymentRequestRepository,
	transactor repository.Transactor,
	gateway Gateway,
	locks redis.LockStoreInterface,
	statusCache redis.PaymentStatusCache,
	notificationService *NotificationService,
	logger *slog.Logger,
) *PaymentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		memberRepo:          memberRepo,
		paymentRepo:         paymentRepo,
		transactor:          transactor,
		gateway:             gateway,
		locks:               locks,
		statusCache:         statusCache,
		notificationService: notificationService,
		logger:              logger,
		now:                 time.Now,
	}
}

// InitiatePaymentRequest contains the parameters for an STK Push.
type InitiatePaymentRequest struct {
	MemberID    string
	Amount      decimal.Decimal
	PhoneNumber string
}

// Initiate sends an STK Push to the member's phone and stores a pending
// payment request. The push is never retried.
func (s *PaymentService) Initiate(ctx context.Context, req InitiatePaymentRequest) (*domain.PaymentRequest, error) {
	if req.MemberID == "" {
		return nil, ErrInvalidMemberID
	}

	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// The gateway only accepts whole shillings.
	amount := req.Amount.Round(0)
	if amount.LessThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidAmount
	}

	phone, err := mpesa.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, ErrInvalidPhoneNumber
	}

	member, err := s.memberRepo.GetByID(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	accountRef := member.MemberNumber
	if accountRef == "" {
		accountRef = member.ID
	}

	resp, err := s.gateway.STKPush(ctx, mpesa.PushParams{
		Amount:           amount.IntPart(),
		PhoneNumber:      phone,
		AccountReference: accountRef,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "stk push failed",
			slog.String("member_id", member.ID),
			slog.String("error", err.Error()),
		)
		return nil, gatewayError(err)
	}

	now := s.now()
	payment := &domain.PaymentRequest{
		ID:                uuid.New().String(),
		MemberID:          member.ID,
		Amount:            amount,
		PhoneNumber:       phone,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Status:            domain.PaymentRequestPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		// The member has been prompted but the callback will find no request.
		s.logger.ErrorContext(ctx, "payment request not recorded",
			slog.String("checkout_request_id", resp.CheckoutRequestID),
			slog.String("member_id", member.ID),
			slog.String("amount", amount.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrPaymentNotRecorded, err)
	}

	s.logger.InfoContext(ctx, "stk push sent",
		slog.String("checkout_request_id", payment.CheckoutRequestID),
		slog.String("member_id", payment.MemberID),
		slog.String("amount", payment.Amount.String()),
	)

	return payment, nil
}

func gatewayError(err error) error {
	var apiErr *mpesa.APIError
	switch {
	case errors.Is(err, mpesa.ErrAuthFailed):
		return fmt.Errorf("%w: %w", ErrGatewayAuth, err)
	case errors.As(err, &apiErr):
		return fmt.Errorf("%w: %w", ErrGatewayRejected, err)
	default:
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
}

// HandleCallback applies a gateway callback to the matching payment request.
// Unknown checkout ids and repeated deliveries are not errors.
func (s *PaymentService) HandleCallback(ctx context.Context, result domain.PaymentResult) (CallbackOutcome, error) {
	if result.CheckoutRequestID == "" {
		s.logger.WarnContext(ctx, "callback without checkout request id")
		return CallbackUnknown, nil
	}

	outcome, payment, err := s.applyLocked(ctx, result, false)
	if err != nil {
		s.logger.ErrorContext(ctx, "callback not applied",
			slog.String("checkout_request_id", result.CheckoutRequestID),
			slog.String("error", err.Error()),
		)
		return outcome, err
	}

	attrs := []any{
		slog.String("checkout_request_id", result.CheckoutRequestID),
		slog.String("outcome", string(outcome)),
		slog.Int("result_code", result.ResultCode),
	}
	if outcome == CallbackUnknown {
		s.logger.WarnContext(ctx, "callback for unknown payment request", attrs...)
	} else {
		s.logger.InfoContext(ctx, "callback processed", attrs...)
	}

	switch outcome {
	case CallbackApplied:
		s.afterApply(ctx, payment)
	case CallbackReceiptAttached:
		s.invalidateStatus(ctx, payment.CheckoutRequestID)
	}
	return outcome, nil
}

// applyLocked serializes deliveries for the same request through Redis. The
// row lock and the pending guard in apply hold on their own, so a busy or
// unreachable lock store never drops a result. Only when skipIfBusy is set
// (reconciliation) does a busy lock skip the request.
func (s *PaymentService) applyLocked(ctx context.Context, result domain.PaymentResult, skipIfBusy bool) (CallbackOutcome, *domain.PaymentRequest, error) {
	if s.locks != nil {
		token, acquired, err := s.locks.AcquireCallbackLock(ctx, result.CheckoutRequestID, callbackLockTTL)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "callback lock unavailable",
				slog.String("checkout_request_id", result.CheckoutRequestID),
				slog.String("error", err.Error()),
			)
		case !acquired && skipIfBusy:
			return CallbackDuplicate, nil, nil
		case !acquired:
			s.logger.InfoContext(ctx, "callback lock busy, waiting on row lock",
				slog.String("checkout_request_id", result.CheckoutRequestID),
			)
		default:
			defer func() {
				_ = s.locks.ReleaseCallbackLock(context.WithoutCancel(ctx), result.CheckoutRequestID, token)
			}()
		}
	}

	return s.apply(ctx, result)
}

// apply moves a pending request to its terminal state and, on success, appends
// the contribution in the same transaction.
func (s *PaymentService) apply(ctx context.Context, result domain.PaymentResult) (CallbackOutcome, *domain.PaymentRequest, error) {
	var (
		outcome CallbackOutcome
		payment *domain.PaymentRequest
	)

	err := s.transactor.WithinTx(ctx, func(repos repository.TxRepositories) error {
		req, err := repos.Payments.GetByCheckoutRequestIDForUpdate(ctx, result.CheckoutRequestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = CallbackUnknown
				return nil
			}
			return err
		}

		if req.IsTerminal() {
			outcome = CallbackDuplicate
			payment = req
			if !req.MissingReceipt(result) {
				return nil
			}
			req.AttachReceipt(result, s.now())
			if err := repos.Payments.AttachReceipt(ctx, req); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			}
			outcome = CallbackReceiptAttached
			return nil
		}

		now := s.now()
		req.Apply(result, now)
		if err := repos.Payments.UpdateResult(ctx, req); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = CallbackDuplicate
				return nil
			}
			return err
		}

		if result.Succeeded() {
			reference := req.MpesaReceiptNumber
			if reference == "" {
				reference = req.CheckoutRequestID
			}
			entry := &domain.LedgerEntry{
				ID:               uuid.New().String(),
				MemberID:         req.MemberID,
				Amount:           req.Amount,
				Type:             domain.LedgerContribution,
				Status:           domain.LedgerEntryConfirmed,
				Method:           domain.PaymentMethodMpesa,
				PaymentRequestID: req.ID,
				Reference:        reference,
				Description:      "MPESA STK Push contribution",
				CreatedAt:        now,
			}
			if err := repos.Ledger.Create(ctx, entry); err != nil {
				return fmt.Errorf("record contribution: %w", err)
			}
		}

		outcome = CallbackApplied
		payment = req
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, payment, nil
}

func (s *PaymentService) invalidateStatus(ctx context.Context, checkoutRequestID string) {
	if s.statusCache == nil {
		return
	}
	if err := s.statusCache.InvalidatePaymentStatus(ctx, checkoutRequestID); err != nil {
		s.logger.WarnContext(ctx, "payment status cache invalidation failed",
			slog.String("checkout_request_id", checkoutRequestID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PaymentService) afterApply(ctx context.Context, payment *domain.PaymentRequest) {
	s.invalidateStatus(ctx, payment.CheckoutRequestID)

	if s.notificationService == nil {
		return
	}

	member, err := s.memberRepo.GetByID(ctx, payment.MemberID)
	if err != nil {
		member = nil
	}

	if payment.Status == domain.PaymentRequestCompleted {
		err = s.notificationService.NotifyPaymentCompleted(ctx, payment, member)
	} else {
		err = s.notificationService.NotifyPaymentFailed(ctx, payment, member)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "payment notification failed",
			slog.String("checkout_request_id", payment.CheckoutRequestID),
			slog.String("error", err.Error()),
		)
	}
}

// ReconcileSummary counts what a reconciliation pass did.
type ReconcileSummary struct {
	Checked      int `json:"checked"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	StillPending int `json:"still_pending"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
}

// ReconcilePending queries the gateway for requests still pending after
// olderThan and applies any final result the same way a callback would.
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan time.Duration) (*ReconcileSummary, error) {
	cutoff := s.now().Add(-olderThan)
	pending, err := s.paymentRepo.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	summary := &ReconcileSummary{}
	for _, req := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Checked++

		resp, err := s.gateway.QueryStatus(ctx, req.CheckoutRequestID)
		if err != nil {
			if errors.Is(err, mpesa.ErrStillProcessing) {
				summary.StillPending++
				continue
			}
			summary.Errors++
			s.logger.WarnContext(ctx, "status query failed",
				slog.String("checkout_request_id", req.CheckoutRequestID),
				slog.String("error", err.Error()),
			)
			continue
		}

		code, err := strconv.Atoi(resp.ResultCode)
		if err != nil {
			summary.Errors++
			s.logger.WarnContext(ctx, "status query returned bad result code",
				slog.String("checkout_request_id", req.CheckoutRequestID),
				slog.String("result_code", resp.ResultCode),
			)
			continue
		}

		// A busy lock means a callback is in flight; leave the request to it.
		outcome, payment, err := s.applyLocked(ctx, domain.PaymentResult{
			CheckoutRequestID: req.CheckoutRequestID,
			MerchantRequestID: resp.MerchantRequestID,
			ResultCode:        code,
			ResultDesc:        resp.ResultDesc,
		}, true)
		if err != nil {
			summary.Errors++
			s.logger.ErrorContext(ctx, "reconciliation not applied",
				slog.String("checkout_request_id", req.CheckoutRequestID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if outcome != CallbackApplied {
			summary.Skipped++
			continue
		}
		if payment.Status == domain.PaymentRequestCompleted {
			summary.Completed++
		} else {
			summary.Failed++
		}
		s.afterApply(ctx, payment)
	}

	s.logger.InfoContext(ctx, "reconciliation finished",
		slog.Int("checked", summary.Checked),
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("still_pending", summary.StillPending),
		slog.Int("errors", summary.Errors),
	)
	return summary, nil
}

// GetStatus returns the current status of a payment request, served from
// cache when fresh.
func (s *PaymentService) GetStatus(ctx context.Context, checkoutRequestID string) (*PaymentStatus, error) {
	if checkoutRequestID == "" {
		return nil, ErrInvalidCheckoutRequestID
	}

	if s.statusCache != nil {
		if cached, err := s.statusCache.GetPaymentStatus(ctx, checkoutRequestID); err == nil && cached != nil {
			return cached, nil
		}
	}

	req, err := s.paymentRepo.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentRequestNotFound
		}
		return nil, err
	}

	status := &PaymentStatus{
		CheckoutRequestID:  req.CheckoutRequestID,
		MemberID:           req.MemberID,
		Amount:             req.Amount.StringFixed(2),
		Status:             string(req.Status),
		MpesaReceiptNumber: req.MpesaReceiptNumber,
		ResultDesc:         req.ResultDesc,
	}

	if s.statusCache != nil {
		_ = s.statusCache.SetPaymentStatus(ctx, status)
	}
	return status, nil
}

// List returns payment requests, optionally filtered by status and member.
func (s *PaymentService) List(ctx context.Context, status, memberID string) ([]*domain.PaymentRequest, error) {
	st := domain.PaymentRequestStatus(status)
	if status != "" && !st.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.paymentRepo.List(ctx, st, memberID)
}
