// Package outboxevent holds the OutboxEvent entity (spec.md §3).
package outboxevent

import "time"

// Event is one at-least-once-delivered domain event awaiting dispatch.
type Event struct {
	ID            string    `json:"event_id" example:"oevt_1a2b3c4d5e6f"`
	Type          string    `json:"type"`
	Payload       any       `json:"payload"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProcessedRecord tracks the terminal disposition of one Event once the
// dispatcher has either delivered it or exhausted its retries.
type ProcessedRecord struct {
	ProcessedAt time.Time `json:"processed_at"`
	Status      string    `json:"status"` // "delivered" or "dlq"
}

// DLQEntry is an Event that exhausted delivery, enriched with the reason.
type DLQEntry struct {
	Event
	DLQReason string    `json:"dlq_reason"`
	DLQAt     time.Time `json:"dlq_at"`
}
