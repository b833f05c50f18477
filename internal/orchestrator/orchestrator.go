package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/domain/ledger"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idempotency"
	"github.com/brackwater/payrail/internal/idgen"
	ledgersvc "github.com/brackwater/payrail/internal/ledger"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/providerclient"
	"github.com/brackwater/payrail/internal/routing"
	"github.com/brackwater/payrail/internal/vault"
)

// Orchestrator wires every capability a lifecycle handler needs. One
// instance is shared across the api process's request handlers.
type Orchestrator struct {
	Payments  *entities.PaymentRepository
	Refunds   *entities.RefundRepository
	Disputes  *entities.DisputeRepository
	Ledger    *ledgersvc.Service
	Idem      *idempotency.Service
	Routing   *routing.Engine
	Provider  *providerclient.Client
	Vault     *vault.Vault
	Breaker   *breaker.Manager

	DefaultProvider  string
	FailoverProvider string
}

// New builds an Orchestrator from its dependencies.
func New(
	payments *entities.PaymentRepository,
	refunds *entities.RefundRepository,
	disputes *entities.DisputeRepository,
	ledgerSvc *ledgersvc.Service,
	idem *idempotency.Service,
	routingEngine *routing.Engine,
	provider *providerclient.Client,
	v *vault.Vault,
	b *breaker.Manager,
	defaultProvider, failoverProvider string,
) *Orchestrator {
	return &Orchestrator{
		Payments:         payments,
		Refunds:          refunds,
		Disputes:         disputes,
		Ledger:           ledgerSvc,
		Idem:             idem,
		Routing:          routingEngine,
		Provider:         provider,
		Vault:            v,
		Breaker:          b,
		DefaultProvider:  defaultProvider,
		FailoverProvider: failoverProvider,
	}
}

// toMap round-trips v through JSON to get a map[string]any suitable for
// idempotency.Service.Store / the idempotency hash, matching the
// original's req.model_dump() semantics.
func toMap(v any) map[string]any {
	buf, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}

	out := map[string]any{}
	_ = json.Unmarshal(buf, &out)

	return out
}

// newLedgerEntry builds a domain ledger entry stamped with the ambient
// correlation id, mirroring the LedgerEntry(...) construction repeated
// at every call site in the original payments/refunds/disputes routers.
func newLedgerEntry(ctx context.Context, eventType, ref string, amount int64, currency, merchantID, provider string, metadata map[string]any) ledger.Entry {
	return ledger.Entry{
		ID:            idgen.LedgerEventID(),
		Type:          eventType,
		Ref:           ref,
		Amount:        amount,
		Currency:      currency,
		MerchantID:    merchantID,
		Provider:      provider,
		CorrelationID: mtrace.CorrelationID(ctx),
		Timestamp:     time.Now().UTC(),
		Metadata:      metadata,
	}
}

// checkCache computes the canonical hash of body and checks it against
// key's idempotency record. It returns the hash regardless of outcome so
// the caller can Store under it once a fresh response is produced.
func (o *Orchestrator) checkCache(ctx context.Context, key string, body map[string]any) (cached map[string]any, status int, hash string, hit bool, err error) {
	hash = idempotency.ComputeHash(body)

	cached, status, err = o.Idem.Check(ctx, key, hash)
	if err != nil {
		return nil, 0, hash, false, err
	}

	return cached, status, hash, cached != nil, nil
}
