package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Stripe settings. The secret key may be left empty when StripeSecretName
	// points at a Secret Manager secret instead.
	StripeSecretKey      string `envconfig:"STRIPE_SECRET_KEY"`
	StripePublishableKey string `envconfig:"STRIPE_PUBLISHABLE_KEY" required:"true"`
	StripeSecretName     string `envconfig:"STRIPE_SECRET_NAME"`

	// GCP settings for Pub/Sub and Secret Manager.
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	GCPCredentialsFile string `envconfig:"GCP_CREDENTIALS_FILE"`

	// Entitlement event/reconciliation settings.
	EntitlementTopic           string `envconfig:"ENTITLEMENT_TOPIC" default:"entitlement-granted"`
	EntitlementQueueName       string `envconfig:"ENTITLEMENT_QUEUE_NAME" default:"entitlement_queue"`
	EntitlementPollTimeoutSec  int    `envconfig:"ENTITLEMENT_POLL_TIMEOUT_SEC" default:"30"`
	EntitlementPollMaxMsg      int    `envconfig:"ENTITLEMENT_POLL_MAX_MSG" default:"1"`
	EntitlementErrorBackoffSec int    `envconfig:"ENTITLEMENT_ERROR_BACKOFF_SEC" default:"1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
