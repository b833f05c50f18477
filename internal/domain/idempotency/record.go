// Package idempotency holds the IdempotencyRecord entity (spec.md §3).
package idempotency

import "time"

// Record is one cached idempotency-key outcome. TTL is 24h from
// CreatedAt, enforced by the idempotency service, not by this type.
type Record struct {
	RequestHash string          `json:"request_hash"`
	Response    map[string]any  `json:"response"`
	StatusCode  int             `json:"status_code"`
	CreatedAt   time.Time       `json:"created_at"`
}
