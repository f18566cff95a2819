package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/logema/payments-backend/internal/config"
	"github.com/logema/payments-backend/internal/db"
	"github.com/logema/payments-backend/internal/goroutine"
	httpHandlers "github.com/logema/payments-backend/internal/http/handlers"
	httpRouter "github.com/logema/payments-backend/internal/http/router"
	"github.com/logema/payments-backend/internal/logger"
	"github.com/logema/payments-backend/internal/provider"
	"github.com/logema/payments-backend/internal/repository"
	"github.com/logema/payments-backend/internal/service"
)

func main() {
	// Context for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: cannot load configuration: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Database and migrations.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: cannot connect to database: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: migrations failed: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	providers := provider.NewRegistry(cfg)

	// Repositories.
	paymentRepo := repository.NewPaymentRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	methodRepo := repository.NewPaymentMethodRepository(dbConn)
	occupationRepo := repository.NewOccupationRepository(dbConn)

	// Services.
	escrowService := service.NewEscrowService(escrowRepo, paymentRepo, occupationRepo, cfg.EscrowHoldPeriod)
	paymentService := service.NewPaymentService(paymentRepo, occupationRepo, methodRepo, escrowService, providers)
	webhookService := service.NewWebhookService(providers, paymentRepo, escrowService)
	disputeService := service.NewDisputeService(disputeRepo, paymentRepo, escrowRepo, escrowRepo)
	methodService := service.NewPaymentMethodService(methodRepo)

	// Background auto-release of expired escrows.
	sweeper := service.NewSweeper(escrowService, cfg.AutoReleaseSweep)
	goroutine.SafeGoWithContext(ctx, sweeper.Run)

	// Handlers.
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService)
	escrowHandler := httpHandlers.NewEscrowHandler(escrowService, disputeService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	webhookHandler := httpHandlers.NewWebhookHandler(webhookService)
	methodHandler := httpHandlers.NewPaymentMethodHandler(methodService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, paymentHandler, escrowHandler, disputeHandler, webhookHandler, methodHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Stop the server when the context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: http server shutdown error: %v", err)
		}
	}()

	log.Printf("main: HTTP server listening on port %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: server exited with error: %v", err)
	}
}

// safeClose closes the database connection.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: error closing database: %v", err)
	}
}
