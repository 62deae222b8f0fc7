package model

import "time"

// User represents an account in the system. The lifetime access flag is the
// only piece of billing state stored locally; everything else about a payment
// lives in Stripe.
type User struct {
	UserID            string    `db:"user_id" json:"user_id"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	HasLifetimeAccess bool      `db:"has_lifetime_access" json:"has_lifetime_access"`
	StripeCustomerID  *string   `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
