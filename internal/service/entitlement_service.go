package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paygate/internal/model"
	"paygate/internal/pubsub"
	"paygate/internal/repository"

	"github.com/rs/zerolog"
)

// Queue is the subset of the pgmq client the entitlement service needs.
type Queue interface {
	Send(ctx context.Context, queue string, payload []byte) error
}

// EntitlementService owns the lifetime-access flag lifecycle.
type EntitlementService interface {
	// Grant sets the flag for the user. Granting an already entitled user is
	// a no-op and never errors.
	Grant(ctx context.Context, userID string) error
	Has(ctx context.Context, userID string) (bool, error)
	// EnqueueVerification records a pending intent so the reconciler can
	// grant access once Stripe reports a verified succeeded status.
	EnqueueVerification(ctx context.Context, userID, intentID string) error
}

type entitlementService struct {
	repo      repository.UserRepository
	queue     Queue
	publisher pubsub.Publisher
	queueName string
	topic     string
	logger    zerolog.Logger
}

func NewEntitlementService(repo repository.UserRepository, queue Queue, publisher pubsub.Publisher, queueName, topic string, logger zerolog.Logger) EntitlementService {
	return &entitlementService{
		repo:      repo,
		queue:     queue,
		publisher: publisher,
		queueName: queueName,
		topic:     topic,
		logger:    logger.With().Str("service", "EntitlementService").Logger(),
	}
}

func (s *entitlementService) Grant(ctx context.Context, userID string) error {
	if err := s.repo.SetLifetimeAccess(ctx, userID, true); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to set lifetime access")
		return err
	}

	// Event publishing is best effort: the grant itself already happened.
	if s.publisher != nil && s.topic != "" {
		event := model.EntitlementEvent{UserID: userID, GrantedAt: time.Now().UTC()}
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to marshal entitlement event")
			return nil
		}
		if _, err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to publish entitlement event")
		}
	}
	return nil
}

func (s *entitlementService) Has(ctx context.Context, userID string) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, ErrUserNotFound
	}
	return u.HasLifetimeAccess, nil
}

func (s *entitlementService) EnqueueVerification(ctx context.Context, userID, intentID string) error {
	job := model.EntitlementJob{UserID: userID, PaymentIntentID: intentID}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal entitlement job: %w", err)
	}
	if err := s.queue.Send(ctx, s.queueName, payload); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("intent_id", intentID).Msg("Failed to enqueue entitlement verification")
		return err
	}
	return nil
}
