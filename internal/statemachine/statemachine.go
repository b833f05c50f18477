// Package statemachine validates entity state transitions (spec.md §4.4)
// against the constant tables of pkg/constant/status_transitions_test.go's
// AssertValidStatusTransition / IsTerminalStatus. Unlike the teacher's
// panic-based Assert*, validation here must not panic on client input: it
// returns a typed error instead.
package statemachine

import "github.com/brackwater/payrail/internal/merrors"

// Entity names the three validated state families, matching the
// InvalidTransitionError.Entity field in error messages.
type Entity string

const (
	Payment Entity = "payment"
	Refund  Entity = "refund"
	Dispute Entity = "dispute"
)

var paymentTransitions = map[string][]string{
	"created":    {"authorized", "declined"},
	"authorized": {"captured", "reversed"},
	"captured":   {"settled", "chargeback"},
	"settled":    {},
	"declined":   {},
	"reversed":   {},
	"chargeback": {},
}

var refundTransitions = map[string][]string{
	"created":          {"pending_approval"},
	"pending_approval": {"approved", "failed"},
	"approved":         {"succeeded", "failed"},
	"succeeded":        {},
	"failed":           {},
}

var disputeTransitions = map[string][]string{
	"opened":       {"under_review"},
	"under_review": {"won", "lost"},
	"won":          {},
	"lost":         {},
}

func tableFor(entity Entity) map[string][]string {
	switch entity {
	case Refund:
		return refundTransitions
	case Dispute:
		return disputeTransitions
	default:
		return paymentTransitions
	}
}

// Validate fails with merrors.InvalidTransitionError if target is not in
// the allowed set for current, per entity's transition table.
func Validate(entity Entity, current, target string) error {
	allowed, ok := tableFor(entity)[current]
	if !ok {
		return merrors.InvalidTransitionError{Entity: string(entity), Current: current, Target: target}
	}

	for _, a := range allowed {
		if a == target {
			return nil
		}
	}

	return merrors.InvalidTransitionError{Entity: string(entity), Current: current, Target: target}
}

// IsTerminal reports whether current has no further allowed transitions
// for entity.
func IsTerminal(entity Entity, current string) bool {
	allowed, ok := tableFor(entity)[current]

	return !ok || len(allowed) == 0
}
