package model

import "time"

// EntitlementJob is the pgmq payload enqueued when a payment intent is
// created. The reconciler verifies the intent against Stripe and grants
// access only on a confirmed succeeded status.
type EntitlementJob struct {
	UserID          string `json:"user_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// EntitlementEvent is published to Pub/Sub after a successful grant so that
// downstream consumers (receipts, notifications) can react.
type EntitlementEvent struct {
	UserID    string    `json:"user_id"`
	GrantedAt time.Time `json:"granted_at"`
}
