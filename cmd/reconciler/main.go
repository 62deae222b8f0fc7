package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	"paygate/internal/config"
	"paygate/internal/logger"
	"paygate/internal/pgmq"
	"paygate/internal/reconciler"
	"paygate/internal/repository"
	"paygate/internal/service"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	stripeKey, err := service.LoadStripeKey(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Msgf("Error loading Stripe secret key: %v", err)
	}
	cfg.StripeSecretKey = stripeKey

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	client := pgmq.New(db)
	userRepo := repository.NewUserRepo(db)
	stripeSvc := service.NewStripeService(cfg, userRepo, logger)
	entitlementSvc := service.NewEntitlementService(userRepo, client, nil, cfg.EntitlementQueueName, "", logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := reconciler.Options{
		Queue:           cfg.EntitlementQueueName,
		PollTimeoutSec:  cfg.EntitlementPollTimeoutSec,
		PollMaxMsg:      cfg.EntitlementPollMaxMsg,
		ErrorBackoffSec: cfg.EntitlementErrorBackoffSec,
	}
	if err := reconciler.Run(ctx, logger, client, stripeSvc, entitlementSvc, opts); err != nil {
		logger.Fatal().Msgf("Reconciler exited with error: %v", err)
	}
}
