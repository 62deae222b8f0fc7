package dto

// CreatePaymentIntentRequest is the body of POST /create-payment-intent.
// Deliberately no amount field: the price is a server-side constant.
type CreatePaymentIntentRequest struct {
	UserID string `json:"userId" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

// CreatePaymentIntentResponse carries the client secret the browser uses to
// confirm the intent with Stripe.
type CreatePaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// UpdateUserAccessRequest is the body of POST /update-user-access.
type UpdateUserAccessRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// UpdateUserAccessResponse reports the outcome of an entitlement grant.
type UpdateUserAccessResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the generic error body for payment endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PaymentConfigResponse bootstraps the browser payment flow.
type PaymentConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}
