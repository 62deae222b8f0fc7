package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"paygate/internal/api/v1/dto"
	"paygate/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

// PaymentHandler exposes the payment-intent and entitlement endpoints.
type PaymentHandler struct {
	userSvc        service.UserService
	stripeSvc      service.StripeService
	entitlementSvc service.EntitlementService
	validate       *validator.Validate
	publishableKey string
	logger         zerolog.Logger
}

func NewPaymentHandler(userSvc service.UserService, stripeSvc service.StripeService, entitlementSvc service.EntitlementService, v *validator.Validate, publishableKey string, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		userSvc:        userSvc,
		stripeSvc:      stripeSvc,
		entitlementSvc: entitlementSvc,
		validate:       v,
		publishableKey: publishableKey,
		logger:         logger.With().Str("handler", "PaymentHandler").Logger(),
	}
}

// RegisterRoutes mounts the payment routes.
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/create-payment-intent", h.CreatePaymentIntent)
	mux.HandleFunc("/update-user-access", h.UpdateUserAccess)
	mux.HandleFunc("/payment-config", h.PaymentConfig)
}

// CreatePaymentIntent godoc
// @Summary Create a payment intent for lifetime access
// @Description Creates an unconfirmed Stripe PaymentIntent for the fixed lifetime-access price and returns its client secret.
// @Tags payments
// @Accept json
// @Produce json
// @Param payment body dto.CreatePaymentIntentRequest true "Payment intent request"
// @Success 200 {object} dto.CreatePaymentIntentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /create-payment-intent [post]
func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req dto.CreatePaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	user, err := h.userSvc.Get(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to look up user")
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	result, err := h.stripeSvc.CreatePaymentIntent(r.Context(), user)
	if err != nil {
		var stripeErr *stripe.Error
		switch {
		case errors.As(err, &stripeErr):
			// Pass Stripe's message through so the browser can surface it.
			writeError(w, http.StatusBadRequest, stripeErr.Msg)
		case errors.Is(err, service.ErrNoClientSecret):
			writeError(w, http.StatusInternalServerError, "Failed to create PaymentIntent")
		default:
			h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to create payment intent")
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return
	}

	// Queue the intent for server-to-server verification. The client secret
	// is still returned if this fails; the fast path via /update-user-access
	// remains available.
	if err := h.entitlementSvc.EnqueueVerification(r.Context(), user.UserID, result.IntentID); err != nil {
		h.logger.Warn().Err(err).Str("intent_id", result.IntentID).Msg("Failed to enqueue entitlement verification")
	}

	writeJSON(w, http.StatusOK, dto.CreatePaymentIntentResponse{ClientSecret: result.ClientSecret})
}

// UpdateUserAccess godoc
// @Summary Grant lifetime access to a user
// @Description Idempotently sets the lifetime-access flag for the given user.
// @Tags payments
// @Accept json
// @Produce json
// @Param access body dto.UpdateUserAccessRequest true "Access update request"
// @Success 200 {object} dto.UpdateUserAccessResponse
// @Failure 400 {object} dto.UpdateUserAccessResponse
// @Failure 500 {object} dto.UpdateUserAccessResponse
// @Router /update-user-access [post]
func (h *PaymentHandler) UpdateUserAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req dto.UpdateUserAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.UpdateUserAccessResponse{Success: false, Error: "Invalid request data"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.UpdateUserAccessResponse{Success: false, Error: "Invalid request data"})
		return
	}

	if err := h.entitlementSvc.Grant(r.Context(), req.UserID); err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to update user access")
		writeJSON(w, http.StatusInternalServerError, dto.UpdateUserAccessResponse{Success: false, Error: "Failed to update user access"})
		return
	}

	writeJSON(w, http.StatusOK, dto.UpdateUserAccessResponse{Success: true})
}

// PaymentConfig godoc
// @Summary Fetch browser payment configuration
// @Description Returns the publishable key and the fixed price so the browser can initialize the payment sheet.
// @Tags payments
// @Produce json
// @Success 200 {object} dto.PaymentConfigResponse
// @Router /payment-config [get]
func (h *PaymentHandler) PaymentConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	writeJSON(w, http.StatusOK, dto.PaymentConfigResponse{
		PublishableKey: h.publishableKey,
		Amount:         service.LifetimeAmountCents,
		Currency:       service.LifetimeCurrency,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
