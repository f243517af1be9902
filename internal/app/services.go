package app

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"welfare/internal/auth"
	"welfare/internal/config"
	"welfare/internal/mailer"
	"welfare/internal/mpesa"
	internalRedis "welfare/internal/redis"
	"welfare/internal/repository/postgres"
	"welfare/internal/service"
)

// Services holds the wired service layer shared by the server and the CLI.
type Services struct {
	Members  *service.MemberService
	Payments *service.PaymentService
	Ledger   *service.LedgerService
	Reports  *service.ReportService
	Auth     *service.AuthService
	Tokens   *auth.TokenIssuer
	Logger   *slog.Logger
}

// NewLogger returns the structured logger used by services.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewServices wires repositories, Redis stores, the gateway client and services.
func NewServices(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *slog.Logger) *Services {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	memberRepo := postgres.NewMemberRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	paymentRepo := postgres.NewPaymentRequestRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	transactor := postgres.NewTransactor(db)

	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:         cfg.MPesa.BaseURL,
		ConsumerKey:     cfg.MPesa.ConsumerKey,
		ConsumerSecret:  cfg.MPesa.ConsumerSecret,
		ShortCode:       cfg.MPesa.ShortCode,
		PassKey:         cfg.MPesa.PassKey,
		CallbackURL:     cfg.MPesa.CallbackURL,
		TransactionDesc: cfg.MPesa.TransactionDesc,
	}, NewHTTPClient(cfg.MPesa.HTTPTimeout, nrApp), cacheStore)

	// A nil *SMTPMailer must not reach the interface as a non-nil value.
	var mail service.Mailer
	if m := mailer.New(cfg.SMTP); m != nil {
		mail = m
	}

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	notificationService := service.NewNotificationService(logger, mail)

	return &Services{
		Members:  service.NewMemberService(memberRepo),
		Payments: service.NewPaymentService(memberRepo, paymentRepo, transactor, gateway, lockStore, cacheStore, notificationService, logger),
		Ledger:   service.NewLedgerService(memberRepo, ledgerRepo, notificationService, logger),
		Reports:  service.NewReportService(memberRepo, ledgerRepo),
		Auth:     service.NewAuthService(staffRepo, tokens),
		Tokens:   tokens,
		Logger:   logger,
	}
}
