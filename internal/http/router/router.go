package router

import (
	"github.com/gin-gonic/gin"

	"github.com/logema/payments-backend/internal/config"
	"github.com/logema/payments-backend/internal/http/handlers"
	"github.com/logema/payments-backend/internal/http/middleware"
	"github.com/logema/payments-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	paymentHandler *handlers.PaymentHandler,
	escrowHandler *handlers.EscrowHandler,
	disputeHandler *handlers.DisputeHandler,
	webhookHandler *handlers.WebhookHandler,
	paymentMethodHandler *handlers.PaymentMethodHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	// Provider callbacks carry their own HMAC authentication.
	webhookRateLimit := middleware.RateLimitMiddleware(cfg.WebhookRateLimit, cfg.RateLimitPeriod)
	api.POST("/payments/webhook/:provider", webhookRateLimit, webhookHandler.Handle)

	initiateRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/payments/initiate", initiateRateLimit, paymentHandler.Initiate)
		protected.GET("/payments", paymentHandler.List)
		protected.GET("/payments/transactions", paymentHandler.ListTransactions)
		protected.GET("/payments/:id", middleware.UUIDValidator("id"), paymentHandler.Get)
		protected.POST("/payments/:id/verify", middleware.UUIDValidator("id"), paymentHandler.Verify)
		protected.POST("/payments/:id/cancel", middleware.UUIDValidator("id"), paymentHandler.Cancel)
		protected.GET("/payments/:id/transactions", middleware.UUIDValidator("id"), paymentHandler.ListPaymentTransactions)

		protected.GET("/escrow/:id", middleware.UUIDValidator("id"), escrowHandler.Get)
		protected.POST("/escrow/:id/refund", middleware.UUIDValidator("id"), escrowHandler.RequestRefund)

		protected.POST("/disputes", disputeHandler.Open)
		protected.GET("/disputes", disputeHandler.List)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)

		protected.POST("/payment-methods", paymentMethodHandler.Create)
		protected.GET("/payment-methods", paymentMethodHandler.List)
		protected.PUT("/payment-methods/:id/default", middleware.UUIDValidator("id"), paymentMethodHandler.SetDefault)
		protected.DELETE("/payment-methods/:id", middleware.UUIDValidator("id"), paymentMethodHandler.Delete)
	}

	admin := api.Group("/")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.AdminOnly())
	{
		admin.POST("/escrow/:id/release", middleware.UUIDValidator("id"), escrowHandler.Release)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
		admin.POST("/disputes/:id/close", middleware.UUIDValidator("id"), disputeHandler.Close)
	}

	return r
}
