// Package idgen generates the prefixed hex identifiers used throughout
// payrail (spec.md §3), e.g. pi_<12hex>, ref_<12hex>, evt_<12hex>.
package idgen

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

func hexN(n int) string {
	u := uuid.New()
	b := u[:]

	return hex.EncodeToString(b)[:n]
}

// PaymentID returns a new pi_<12hex> identifier.
func PaymentID() string { return fmt.Sprintf("pi_%s", hexN(12)) }

// RefundID returns a new ref_<12hex> identifier.
func RefundID() string { return fmt.Sprintf("ref_%s", hexN(12)) }

// DisputeID returns a new dsp_<12hex> identifier.
func DisputeID() string { return fmt.Sprintf("dsp_%s", hexN(12)) }

// LedgerEventID returns a new evt_<12hex> identifier.
func LedgerEventID() string { return fmt.Sprintf("evt_%s", hexN(12)) }

// OutboxEventID returns a new oevt_<12hex> identifier.
func OutboxEventID() string { return fmt.Sprintf("oevt_%s", hexN(12)) }

// Token returns a new tok_<24hex> vault token.
func Token() string { return fmt.Sprintf("tok_%s", hexN(24)) }

// CorrelationID returns a new corr_<16hex> identifier.
func CorrelationID() string { return fmt.Sprintf("corr_%s", hexN(16)) }

// ProviderRef returns a new prov_<12hex> identifier, standing in for the
// processor's own reference number on a simulated authorization.
func ProviderRef() string { return fmt.Sprintf("prov_%s", hexN(12)) }

// WebhookEventID returns a new whevt_<12hex> identifier.
func WebhookEventID() string { return fmt.Sprintf("whevt_%s", hexN(12)) }
