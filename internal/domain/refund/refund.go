// Package refund holds the Refund entity (spec.md §3).
package refund

import "time"

// State is one of the states a Refund can occupy.
type State string

const (
	Created         State = "created"
	PendingApproval State = "pending_approval"
	Approved        State = "approved"
	Succeeded       State = "succeeded"
	Failed          State = "failed"
)

// Terminal reports whether state accepts no further transitions.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Refund is the Refund entity. A Refund exists only for a payment in
// {captured, settled}; Amount must never exceed the parent payment's
// amount (spec.md §3, property 5).
type Refund struct {
	ID            string    `json:"id" example:"ref_1a2b3c4d5e6f"`
	PaymentID     string    `json:"payment_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	State         State     `json:"state"`
	RequestedBy   string    `json:"requested_by"`
	ApprovedBy    string    `json:"approved_by,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MakerChecker reports whether approver may approve this refund: the
// approver must differ from the requester unless they hold the admin
// role (spec.md §3, "maker-checker").
func MakerChecker(requestedBy, approver string, isAdmin bool) bool {
	return isAdmin || requestedBy != approver
}
