package router

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"paygate/internal/api/v1/handler"
	"paygate/internal/config"
	"paygate/internal/middleware"
	"paygate/internal/pgmq"
	"paygate/internal/pubsub"
	"paygate/internal/repository"
	"paygate/internal/service"

	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *sql.DB, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// Local databases usually run without SSL; production connection strings
	// are expected to carry their own SSL settings.
	dsn := cfg.DatabaseURL
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	validate := validator.New(validator.WithRequiredStructEnabled())

	queue := pgmq.New(db)

	// Pub/Sub is optional: without a project ID, entitlement events are only
	// logged.
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(context.Background(), cfg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
			return nil, nil, err
		}
		publisher = p
	} else {
		logger.Warn().Msg("GCP project ID not set, entitlement events disabled")
	}

	userRepo := repository.NewUserRepo(db)

	userSvc := service.NewUserService(userRepo)
	stripeSvc := service.NewStripeService(cfg, userRepo, logger)
	entitlementSvc := service.NewEntitlementService(userRepo, queue, publisher, cfg.EntitlementQueueName, cfg.EntitlementTopic, logger)

	userHandler := handler.NewUserHandler(userSvc, validate)
	paymentHandler := handler.NewPaymentHandler(userSvc, stripeSvc, entitlementSvc, validate, cfg.StripePublishableKey, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	paymentHandler.RegisterRoutes(apiV1Mux)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger, c.Handler(mux)), db, nil
}
