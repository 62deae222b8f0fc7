package reconciler

import (
	"context"
	"encoding/json"
	"time"

	"paygate/internal/model"
	"paygate/internal/pgmq"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

// Options controls the polling loop.
type Options struct {
	Queue           string
	PollTimeoutSec  int
	PollMaxMsg      int
	ErrorBackoffSec int
}

// IntentStatusGetter reports the current status of a payment intent.
type IntentStatusGetter interface {
	GetPaymentIntentStatus(ctx context.Context, intentID string) (stripe.PaymentIntentStatus, error)
}

// Granter sets the lifetime-access flag for a user.
type Granter interface {
	Grant(ctx context.Context, userID string) error
}

type queueClient interface {
	ReadWithPoll(ctx context.Context, queue string, timeoutSec, maxMessages int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
}

type action int

const (
	// Leave the message in the queue; it becomes visible again after the
	// visibility timeout and is re-checked.
	actionRetry action = iota
	actionGrant
	actionDrop
)

// classify maps an intent status to what the reconciler should do with the
// job. Only a verified succeeded status grants access; a canceled intent is
// terminal and the job is dropped; every other status is still in flight.
func classify(status stripe.PaymentIntentStatus) action {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return actionGrant
	case stripe.PaymentIntentStatusCanceled:
		return actionDrop
	default:
		return actionRetry
	}
}

// Run polls the entitlement queue and grants access for intents that Stripe
// confirms as succeeded. It returns when the context is canceled.
func Run(ctx context.Context, logger zerolog.Logger, client queueClient, intents IntentStatusGetter, grants Granter, opts Options) error {
	logger.Info().Str("queue", opts.Queue).Msg("Starting entitlement reconciler")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down entitlement reconciler")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, opts.Queue, opts.PollTimeoutSec, opts.PollMaxMsg)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading entitlement queue")
			time.Sleep(time.Duration(opts.ErrorBackoffSec) * time.Second)
			continue
		}

		for _, msg := range msgs {
			processMessage(ctx, logger, client, intents, grants, opts.Queue, msg)
		}
	}
}

func processMessage(ctx context.Context, logger zerolog.Logger, client queueClient, intents IntentStatusGetter, grants Granter, queue string, msg *pgmq.Message) {
	var job model.EntitlementJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		// A malformed payload will never become processable; drop it.
		logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Dropping malformed entitlement job")
		if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting malformed message")
		}
		return
	}

	status, err := intents.GetPaymentIntentStatus(ctx, job.PaymentIntentID)
	if err != nil {
		logger.Error().Err(err).Str("intent_id", job.PaymentIntentID).Msg("Error fetching intent status, will retry")
		return
	}

	switch classify(status) {
	case actionGrant:
		if err := grants.Grant(ctx, job.UserID); err != nil {
			// Charged but not entitled: keep the job so the next poll
			// retries the grant.
			logger.Error().Err(err).Str("user_id", job.UserID).Str("intent_id", job.PaymentIntentID).Msg("Entitlement grant failed for succeeded intent")
			return
		}
		logger.Info().Str("user_id", job.UserID).Str("intent_id", job.PaymentIntentID).Msg("Lifetime access granted")
	case actionDrop:
		logger.Info().Str("user_id", job.UserID).Str("intent_id", job.PaymentIntentID).Str("status", string(status)).Msg("Intent is terminal, dropping job")
	case actionRetry:
		logger.Debug().Str("intent_id", job.PaymentIntentID).Str("status", string(status)).Msg("Intent still in flight")
		return
	}

	if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
		logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting entitlement message")
	}
}
