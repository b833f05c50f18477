package orchestrator

import (
	"context"
	"time"

	"github.com/brackwater/payrail/internal/domain/payment"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/statemachine"
)

// CreatePayment builds a PaymentIntent in state "created" and returns
// its JSON-shaped snapshot plus the HTTP status to respond with
// (spec.md §4.8).
func (o *Orchestrator) CreatePayment(ctx context.Context, rc RequestContext, req CreatePaymentRequest) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.create_payment")
	defer func() { endSpan(err) }()

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, toMap(req))
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()

	p := payment.Intent{
		ID:             idgen.PaymentID(),
		Amount:         req.Amount,
		Currency:       currency,
		MerchantID:     rc.MerchantID,
		CustomerEmail:  req.CustomerEmail,
		Description:    req.Description,
		State:          payment.Created,
		Token:          req.Token,
		IdempotencyKey: rc.IdempotencyKey,
		CorrelationID:  mtrace.CorrelationID(ctx),
		Metadata:       req.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	pMap := toMap(p)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, "payment.created", p.ID, p.Amount, p.Currency, rc.MerchantID, "", pMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Payments.Save(ctx, p); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, "payment.created", pMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, pMap, 201); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("created payment %s for merchant %s", p.ID, rc.MerchantID)

	return pMap, 201, nil
}

// GetPayment returns a payment plus its ledger history.
func (o *Orchestrator) GetPayment(ctx context.Context, id string) (map[string]any, error) {
	p, err := o.Payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := o.Ledger.GetEntriesForRef(ctx, id)
	if err != nil {
		return nil, err
	}

	out := toMap(p)
	out["ledger_entries"] = entries

	return out, nil
}

// ListPayments returns the paginated payment listing.
func (o *Orchestrator) ListPayments(ctx context.Context, state, merchantID string, limit, offset int) (map[string]any, error) {
	items, total, err := o.Payments.List(ctx, listFilterOf(state, merchantID, limit, offset))
	if err != nil {
		return nil, err
	}

	return map[string]any{"items": items, "total": total, "limit": limit, "offset": offset}, nil
}

// Authorize obtains card details (tokenizing a raw PAN or detokenizing an
// existing token), routes to a provider, and records the outcome. On a
// breaker-open provider it retries once against the opposite provider
// (spec.md §4.8/§4.6).
func (o *Orchestrator) Authorize(ctx context.Context, rc RequestContext, paymentID string, req AuthorizePaymentRequest) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.authorize_payment")
	defer func() { endSpan(err) }()

	body := toMap(req)
	body["action"] = "authorize"
	body["payment_id"] = paymentID

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	p, err := o.Payments.Get(ctx, paymentID)
	if err != nil {
		return nil, 0, err
	}

	if err := statemachine.Validate(statemachine.Payment, string(p.State), string(payment.Authorized)); err != nil {
		return nil, 0, err
	}

	token := req.Token
	if token == "" {
		token = p.Token
	}

	var pan, expiry string

	switch {
	case req.PAN != "" && req.Expiry != "":
		tok, tokErr := o.Vault.Tokenize(ctx, req.PAN, req.Expiry, "", "api-gateway", "authorization")
		if tokErr != nil {
			return nil, 0, tokErr
		}

		token = tok
		pan = req.PAN
		expiry = req.Expiry
	case token != "":
		rec, recErr := o.Vault.RecordFor(ctx, token)
		if recErr != nil {
			return nil, 0, recErr
		}

		chargedPan, chargeErr := o.Vault.ChargeToken(ctx, token, "api-gateway", "authorization")
		if chargeErr != nil {
			return nil, 0, chargeErr
		}

		pan = chargedPan
		expiry = rec.Expiry
	default:
		return nil, 0, merrors.ValidationError{Message: "either pan+expiry or token required"}
	}

	providerID, err := o.Routing.SelectProvider(ctx, int(p.Amount), p.Currency, "", "")
	if err != nil {
		return nil, 0, err
	}

	result, err := o.Provider.Authorize(ctx, providerID, paymentID, int(p.Amount), p.Currency, pan, expiry, rc.MerchantID)
	if _, ok := err.(merrors.ProviderUnavailableError); ok {
		failoverID := o.FailoverProvider
		if failoverID == providerID {
			failoverID = o.DefaultProvider
		}

		result, err = o.Provider.Authorize(ctx, failoverID, paymentID, int(p.Amount), p.Currency, pan, expiry, rc.MerchantID)
		if err != nil {
			return nil, 0, err
		}

		providerID = failoverID
	} else if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	p.Provider = providerID
	p.Token = token
	p.ProviderRef = result.ProviderRef
	p.UpdatedAt = now

	eventType := "payment.declined"

	if result.Success {
		p.State = payment.Authorized
		eventType = "payment.authorized"
	} else {
		p.State = payment.Declined

		if p.Metadata == nil {
			p.Metadata = map[string]any{}
		}

		p.Metadata["decline_reason"] = result.Reason
	}

	pMap := toMap(p)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, eventType, paymentID, p.Amount, p.Currency, rc.MerchantID, providerID, pMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Payments.Save(ctx, p); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, eventType, pMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, pMap, 200); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("payment %s -> %s via %s", paymentID, p.State, providerID)

	return pMap, 200, nil
}

// Capture requires the payment to already carry a provider and
// provider_ref from a prior authorization.
func (o *Orchestrator) Capture(ctx context.Context, rc RequestContext, paymentID string) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.capture_payment")
	defer func() { endSpan(err) }()

	body := map[string]any{"action": "capture", "payment_id": paymentID}

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	p, err := o.Payments.Get(ctx, paymentID)
	if err != nil {
		return nil, 0, err
	}

	if err := statemachine.Validate(statemachine.Payment, string(p.State), string(payment.Captured)); err != nil {
		return nil, 0, err
	}

	if p.Provider == "" || p.ProviderRef == "" {
		return nil, 0, merrors.ValidationError{Message: "payment not yet authorized with a provider"}
	}

	if _, err := o.Provider.Capture(ctx, p.Provider, paymentID, p.ProviderRef, int(p.Amount)); err != nil {
		return nil, 0, err
	}

	p.State = payment.Captured
	p.UpdatedAt = time.Now().UTC()

	pMap := toMap(p)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, "payment.captured", paymentID, p.Amount, p.Currency, rc.MerchantID, p.Provider, pMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Payments.Save(ctx, p); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, "payment.captured", pMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, pMap, 200); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("captured payment %s", paymentID)

	return pMap, 200, nil
}

// Cancel moves an authorized payment to reversed. No provider call is
// made (spec.md §4.8 demo choice).
func (o *Orchestrator) Cancel(ctx context.Context, rc RequestContext, paymentID string) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.cancel_payment")
	defer func() { endSpan(err) }()

	body := map[string]any{"action": "cancel", "payment_id": paymentID}

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	p, err := o.Payments.Get(ctx, paymentID)
	if err != nil {
		return nil, 0, err
	}

	if err := statemachine.Validate(statemachine.Payment, string(p.State), string(payment.Reversed)); err != nil {
		return nil, 0, err
	}

	p.State = payment.Reversed
	p.UpdatedAt = time.Now().UTC()

	pMap := toMap(p)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, "payment.reversed", paymentID, p.Amount, p.Currency, rc.MerchantID, p.Provider, pMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Payments.Save(ctx, p); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, "payment.reversed", pMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, pMap, 200); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("reversed payment %s", paymentID)

	return pMap, 200, nil
}

func listFilterOf(state, secondary string, limit, offset int) entities.ListFilter {
	return entities.ListFilter{State: state, MerchantID: secondary, Limit: limit, Offset: offset}
}
