// Package payment holds the PaymentIntent entity (spec.md §3) and its
// state constants.
package payment

import "time"

// State is one of the states a PaymentIntent can occupy.
type State string

const (
	Created    State = "created"
	Authorized State = "authorized"
	Captured   State = "captured"
	Settled    State = "settled"
	Declined   State = "declined"
	Reversed   State = "reversed"
	Chargeback State = "chargeback"
)

// Terminal reports whether state accepts no further transitions.
func (s State) Terminal() bool {
	switch s {
	case Settled, Declined, Reversed, Chargeback:
		return true
	default:
		return false
	}
}

// Intent is the PaymentIntent entity. Amount never changes after
// creation; State is only ever mutated after a successful
// statemachine.Validate(statemachine.Payment, ...).
type Intent struct {
	ID             string         `json:"id" example:"pi_1a2b3c4d5e6f"`
	Amount         int64          `json:"amount" example:"1999"`
	Currency       string         `json:"currency" example:"USD"`
	MerchantID     string         `json:"merchant_id"`
	CustomerEmail  string         `json:"customer_email,omitempty"`
	Description    string         `json:"description,omitempty"`
	State          State          `json:"state"`
	Provider       string         `json:"provider,omitempty"`
	Token          string         `json:"token,omitempty"`
	ProviderRef    string         `json:"provider_ref,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RequiresProviderRef reports whether state demands a non-empty Provider
// and ProviderRef, per spec.md §3's PaymentIntent invariant.
func RequiresProviderRef(s State) bool {
	return s == Captured || s == Settled
}
