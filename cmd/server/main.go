package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"welfare/internal/app"
	"welfare/internal/config"
	"welfare/internal/handler"
	internalRedis "welfare/internal/redis"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	if cfg.Migrations.AutoMigrate {
		if err := app.MigrateUp(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Println("Database migrations applied")
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server := wireServer(app.NewServices(db, redisClient, nrApp, cfg, app.NewLogger()), redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires the HTTP layer and returns the server.
func wireServer(svc *app.Services, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	logger := svc.Logger.With(slog.String("component", "http"))

	// Initialize handlers.
	memberHandler := handler.NewMemberHandler(svc.Members, svc.Ledger)
	paymentHandler := handler.NewPaymentHandler(svc.Payments)
	callbackHandler := handler.NewCallbackHandler(svc.Payments, logger)
	ledgerHandler := handler.NewLedgerHandler(svc.Ledger)
	reportHandler := handler.NewReportHandler(svc.Reports)
	authHandler := handler.NewAuthHandler(svc.Auth)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		MemberHandler:   memberHandler,
		PaymentHandler:  paymentHandler,
		CallbackHandler: callbackHandler,
		LedgerHandler:   ledgerHandler,
		ReportHandler:   reportHandler,
		AuthHandler:     authHandler,
		Tokens:          svc.Tokens,
		Idempotency:     internalRedis.NewIdempotencyStore(redisClient),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
