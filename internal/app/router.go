package app

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"welfare/internal/auth"
	"welfare/internal/handler"
	"welfare/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	MemberHandler   *handler.MemberHandler
	PaymentHandler  *handler.PaymentHandler
	CallbackHandler *handler.CallbackHandler
	LedgerHandler   *handler.LedgerHandler
	ReportHandler   *handler.ReportHandler
	AuthHandler     *handler.AuthHandler
	Tokens          *auth.TokenIssuer
	Idempotency     middleware.ResponseStore // replay store for STK Push only
	AllowedOrigins  []string
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = deps.AllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "Idempotency-Key")
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireStaff := middleware.RequireStaff(deps.Tokens)
	can := middleware.RequirePermission

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		v1.POST("/auth/login", deps.AuthHandler.Login)

		// Gateway webhook.
		v1.POST("/mpesa/callback", deps.CallbackHandler.Handle)

		// Member routes.
		members := v1.Group("/members")
		{
			members.POST("/register", deps.MemberHandler.Register)
			members.GET("", requireStaff, can(auth.PermMembersRead), deps.MemberHandler.GetAll)
			members.GET("/:id", requireStaff, can(auth.PermMembersRead), deps.MemberHandler.Get)
			members.GET("/:id/balance", requireStaff, can(auth.PermLedgerRead), deps.MemberHandler.Balance)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("/stk-push", middleware.IdempotencyMiddleware(deps.Idempotency), deps.PaymentHandler.Initiate)
			payments.GET("/:checkout_request_id", deps.PaymentHandler.GetStatus)
			payments.GET("", requireStaff, can(auth.PermPaymentsRead), deps.PaymentHandler.List)
			payments.POST("/reconcile", requireStaff, can(auth.PermPaymentsReconcile), deps.PaymentHandler.Reconcile)
		}

		// Ledger routes.
		ledger := v1.Group("/ledger", requireStaff)
		{
			ledger.GET("", can(auth.PermLedgerRead), deps.LedgerHandler.List)
			ledger.POST("", can(auth.PermLedgerWrite), deps.LedgerHandler.Record)
		}

		// Report routes.
		reports := v1.Group("/reports", requireStaff, can(auth.PermReportsExport))
		{
			reports.GET("/contributions", deps.ReportHandler.Contributions)
		}
	}

	return router
}
