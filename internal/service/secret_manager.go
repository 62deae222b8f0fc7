package service

import (
	"context"
	"errors"
	"fmt"

	"paygate/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// LoadStripeKey returns the Stripe secret key, preferring the environment and
// falling back to Secret Manager when STRIPE_SECRET_NAME is configured.
func LoadStripeKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.StripeSecretKey != "" {
		return cfg.StripeSecretKey, nil
	}
	if cfg.StripeSecretName == "" {
		return "", errors.New("stripe secret key is not configured")
	}
	if cfg.GCPProjectID == "" {
		return "", errors.New("GCP project ID is required to load the stripe key from Secret Manager")
	}

	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	defer client.Close()

	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.GCPProjectID, cfg.StripeSecretName)
	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}
