// Package dispute holds the Dispute entity (spec.md §3).
package dispute

import "time"

// State is one of the states a Dispute can occupy.
type State string

const (
	Opened      State = "opened"
	UnderReview State = "under_review"
	Won         State = "won"
	Lost        State = "lost"
)

// Terminal reports whether state accepts no further transitions.
func (s State) Terminal() bool {
	return s == Won || s == Lost
}

// Dispute is the Dispute entity. Opening a dispute on a payment in
// {captured, settled} moves that payment to chargeback (spec.md §3).
type Dispute struct {
	ID            string    `json:"id" example:"dsp_1a2b3c4d5e6f"`
	PaymentID     string    `json:"payment_id"`
	Amount        int64     `json:"amount"`
	State         State     `json:"state"`
	Reason        string    `json:"reason"`
	Evidence      string    `json:"evidence,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
