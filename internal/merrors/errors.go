// Package merrors defines the typed error hierarchy shared by every payrail
// component, grounded on the teacher's common/errors.go. Each error kind
// maps to exactly one HTTP status code (spec.md §7); the mapping itself
// lives in httpapi.WithError, kept separate so non-HTTP callers (the
// background jobs) can branch on error kind without importing net/http.
package merrors

import "fmt"

// NotFoundError records a missing entity, token, or report slot.
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.EntityType, e.ID)
}

// InvalidTransitionError records a rejected state-machine transition.
type InvalidTransitionError struct {
	Entity  string
	Current string
	Target  string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.Current, e.Target)
}

// IdempotencyConflictError records a replayed key with a changed body.
type IdempotencyConflictError struct {
	Key string
}

func (e IdempotencyConflictError) Error() string {
	return fmt.Sprintf("idempotency key %q already used with a different request body", e.Key)
}

// UnauthorizedError records a missing merchant header or bad webhook HMAC.
type UnauthorizedError struct {
	Message string
}

func (e UnauthorizedError) Error() string { return e.Message }

// MakerCheckerError records a refund approved by its own requester.
type MakerCheckerError struct {
	RefundID string
}

func (e MakerCheckerError) Error() string {
	return fmt.Sprintf("refund %s cannot be approved by its own requester", e.RefundID)
}

// ValidationError records a malformed request body.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// ProviderUnavailableError records a breaker-open provider.
type ProviderUnavailableError struct {
	ProviderID string
}

func (e ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s circuit is open", e.ProviderID)
}

// ProviderTimeoutError records a provider RPC that exceeded its deadline.
type ProviderTimeoutError struct {
	ProviderID string
}

func (e ProviderTimeoutError) Error() string {
	return fmt.Sprintf("provider %s request timed out", e.ProviderID)
}

// ProviderError records any other provider RPC failure (non-2xx, transport).
type ProviderError struct {
	ProviderID string
	Detail     string
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("provider %s error: %s", e.ProviderID, e.Detail)
}

// NoProvidersAvailableError records a routing decision with no admitting
// provider left to try.
type NoProvidersAvailableError struct{}

func (e NoProvidersAvailableError) Error() string { return "no providers available" }

// RateLimitExceededError records a merchant exceeding its request quota
// for the current window.
type RateLimitExceededError struct {
	MerchantID string
}

func (e RateLimitExceededError) Error() string {
	return fmt.Sprintf("merchant %s exceeded its request rate limit", e.MerchantID)
}
