package service

import (
	"context"
	"errors"
	"fmt"

	"paygate/internal/config"
	"paygate/internal/model"
	"paygate/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// The lifetime-access price is a server-side constant. The request body is
// never consulted for an amount, which rules out client-side price tampering.
const (
	LifetimeAmountCents int64 = 1099
	LifetimeCurrency          = string(stripe.CurrencyUSD)
)

// ErrNoClientSecret is returned when Stripe creates an intent but omits the
// client secret the browser needs to finish the payment.
var ErrNoClientSecret = errors.New("payment intent has no client secret")

// PaymentIntentResult carries the two identifiers the rest of the system
// needs from a freshly created intent.
type PaymentIntentResult struct {
	IntentID     string
	ClientSecret string
}

// StripeService is the billing-customer directory and payment-intent client.
type StripeService interface {
	// ResolveCustomer maps a user to a Stripe customer, creating one when no
	// match exists. The resolved ID is persisted on the user row, so repeat
	// calls short-circuit without touching Stripe.
	ResolveCustomer(ctx context.Context, user *model.User) (string, error)
	// CreatePaymentIntent creates an unconfirmed intent for the fixed
	// lifetime-access price with automatic payment methods enabled.
	CreatePaymentIntent(ctx context.Context, user *model.User) (*PaymentIntentResult, error)
	// GetPaymentIntentStatus fetches the current intent status from Stripe.
	GetPaymentIntentStatus(ctx context.Context, intentID string) (stripe.PaymentIntentStatus, error)
}

// stripeAPI is the seam between this service and the stripe-go SDK. Tests
// substitute a fake; production uses liveStripeAPI.
type stripeAPI interface {
	ListCustomersByEmail(ctx context.Context, email string) ([]*stripe.Customer, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
}

type liveStripeAPI struct{}

func (liveStripeAPI) ListCustomersByEmail(ctx context.Context, email string) ([]*stripe.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	iter := customerpkg.List(params)
	var customers []*stripe.Customer
	for iter.Next() {
		customers = append(customers, iter.Customer())
	}
	return customers, iter.Err()
}

func (liveStripeAPI) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	return customerpkg.New(params)
}

func (liveStripeAPI) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return paymentintent.New(params)
}

func (liveStripeAPI) GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(intentID, params)
}

type stripeService struct {
	api      stripeAPI
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service with a
// scoped logger.
func NewStripeService(cfg *config.Config, userRepo repository.UserRepository, logger zerolog.Logger) StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &stripeService{
		api:      liveStripeAPI{},
		userRepo: userRepo,
		logger:   logger.With().Str("service", "StripeService").Logger(),
	}
}

func (s *stripeService) ResolveCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	// Lookup by email catches customers created before the ID was stored
	// locally. Ties are broken by first returned.
	existing, err := s.api.ListCustomersByEmail(ctx, user.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to list Stripe customers")
		return "", fmt.Errorf("list stripe customers: %w", err)
	}
	if len(existing) > 0 {
		customerID := existing[0].ID
		if err := s.userRepo.UpdateStripeCustomerID(ctx, user.UserID, customerID); err != nil {
			s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to store stripe customer id")
			return "", err
		}
		return customerID, nil
	}

	params := &stripe.CustomerParams{
		Email:    stripe.String(user.Email),
		Metadata: map[string]string{"user_id": user.UserID},
	}
	if user.Name != "" {
		params.Name = stripe.String(user.Name)
	}
	cust, err := s.api.CreateCustomer(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.userRepo.UpdateStripeCustomerID(ctx, user.UserID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to store stripe customer id")
		return "", err
	}
	return cust.ID, nil
}

func (s *stripeService) CreatePaymentIntent(ctx context.Context, user *model.User) (*PaymentIntentResult, error) {
	customerID, err := s.ResolveCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(LifetimeAmountCents),
		Currency: stripe.String(LifetimeCurrency),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{"user_id": user.UserID},
	}
	intent, err := s.api.CreatePaymentIntent(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to create payment intent")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if intent.ClientSecret == "" {
		s.logger.Error().Str("intent_id", intent.ID).Msg("Payment intent created without client secret")
		return nil, ErrNoClientSecret
	}
	return &PaymentIntentResult{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (s *stripeService) GetPaymentIntentStatus(ctx context.Context, intentID string) (stripe.PaymentIntentStatus, error) {
	intent, err := s.api.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return "", fmt.Errorf("fetch payment intent %s: %w", intentID, err)
	}
	return intent.Status, nil
}
