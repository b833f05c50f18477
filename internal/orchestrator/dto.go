// Package orchestrator implements the payment/refund/dispute lifecycle
// handlers (spec.md §4.8), grounded 1:1 on api_gateway/payments.py,
// refunds.py, and disputes.py. Every write path follows idempotency →
// state validation → external side effect (if any) → ledger append →
// snapshot write → outbox append, in that order.
package orchestrator

// CreatePaymentRequest is the body of POST /payment-intents.
type CreatePaymentRequest struct {
	Amount        int64          `json:"amount" validate:"required,gt=0"`
	Currency      string         `json:"currency" validate:"omitempty,len=3"`
	CustomerEmail string         `json:"customer_email,omitempty" validate:"omitempty,email"`
	Description   string         `json:"description,omitempty"`
	PAN           string         `json:"pan,omitempty"`
	Expiry        string         `json:"expiry,omitempty"`
	Token         string         `json:"token,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AuthorizePaymentRequest is the body of POST /payment-intents/{id}/authorize.
type AuthorizePaymentRequest struct {
	PAN    string `json:"pan,omitempty"`
	Expiry string `json:"expiry,omitempty"`
	Token  string `json:"token,omitempty"`
}

// CreateRefundRequest is the body of POST /refunds.
type CreateRefundRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reason    string `json:"reason,omitempty"`
}

// CreateDisputeRequest is the body of POST /disputes.
type CreateDisputeRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required"`
}

// SubmitEvidenceRequest is the body of POST /disputes/{id}/submit-evidence.
type SubmitEvidenceRequest struct {
	Evidence string `json:"evidence" validate:"required"`
}

// ResolveDisputeRequest is the body of POST /disputes/{id}/resolve.
type ResolveDisputeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=won lost"`
}

// RequestContext carries the ambient actor identity every handler needs,
// populated by httpapi from headers before the orchestrator is called.
type RequestContext struct {
	MerchantID     string
	Role           string
	IdempotencyKey string
}
