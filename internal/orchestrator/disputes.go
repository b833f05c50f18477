package orchestrator

import (
	"context"
	"time"

	"github.com/brackwater/payrail/internal/domain/dispute"
	"github.com/brackwater/payrail/internal/domain/payment"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/statemachine"
)

// OpenDispute creates a dispute and, if the underlying payment is
// captured or settled, moves that payment to chargeback (spec.md §3/§4.8).
func (o *Orchestrator) OpenDispute(ctx context.Context, rc RequestContext, req CreateDisputeRequest) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.open_dispute")
	defer func() { endSpan(err) }()

	body := toMap(req)
	body["action"] = "create_dispute"

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	p, err := o.Payments.Get(ctx, req.PaymentID)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()

	d := dispute.Dispute{
		ID:        idgen.DisputeID(),
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		State:     dispute.Opened,
		Reason:    req.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dMap := toMap(d)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, "dispute.opened", d.ID, d.Amount, "", rc.MerchantID, "", dMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Disputes.Save(ctx, d); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, "dispute.opened", dMap); err != nil {
		return nil, 0, err
	}

	if p.State == payment.Captured || p.State == payment.Settled {
		p.State = payment.Chargeback
		p.UpdatedAt = time.Now().UTC()

		if err := o.Payments.Save(ctx, p); err != nil {
			return nil, 0, err
		}
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, dMap, 201); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("dispute %s opened for payment %s", d.ID, req.PaymentID)

	return dMap, 201, nil
}

// GetDispute returns a dispute plus its ledger history.
func (o *Orchestrator) GetDispute(ctx context.Context, id string) (map[string]any, error) {
	d, err := o.Disputes.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := o.Ledger.GetEntriesForRef(ctx, id)
	if err != nil {
		return nil, err
	}

	out := toMap(d)
	out["ledger_entries"] = entries

	return out, nil
}

// ListDisputes returns the paginated dispute listing.
func (o *Orchestrator) ListDisputes(ctx context.Context, state, paymentID string, limit, offset int) (map[string]any, error) {
	items, total, err := o.Disputes.List(ctx, entities.ListFilter{State: state, PaymentID: paymentID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	return map[string]any{"items": items, "total": total, "limit": limit, "offset": offset}, nil
}

// SubmitEvidence transitions a dispute to under_review.
func (o *Orchestrator) SubmitEvidence(ctx context.Context, rc RequestContext, disputeID string, req SubmitEvidenceRequest) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.submit_evidence")
	defer func() { endSpan(err) }()

	body := toMap(req)
	body["action"] = "submit_evidence"
	body["dispute_id"] = disputeID

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	d, err := o.Disputes.Get(ctx, disputeID)
	if err != nil {
		return nil, 0, err
	}

	if err := statemachine.Validate(statemachine.Dispute, string(d.State), string(dispute.UnderReview)); err != nil {
		return nil, 0, err
	}

	d.State = dispute.UnderReview
	d.Evidence = req.Evidence
	d.UpdatedAt = time.Now().UTC()

	dMap := toMap(d)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, "dispute.under_review", disputeID, d.Amount, "", rc.MerchantID, "", dMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Disputes.Save(ctx, d); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, "dispute.under_review", dMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, dMap, 200); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("evidence submitted for dispute %s", disputeID)

	return dMap, 200, nil
}

// ResolveDispute transitions a dispute to won or lost.
func (o *Orchestrator) ResolveDispute(ctx context.Context, rc RequestContext, disputeID string, req ResolveDisputeRequest) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.resolve_dispute")
	defer func() { endSpan(err) }()

	body := toMap(req)
	body["action"] = "resolve_dispute"
	body["dispute_id"] = disputeID

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	var target dispute.State

	switch req.Outcome {
	case "won":
		target = dispute.Won
	case "lost":
		target = dispute.Lost
	default:
		return nil, 0, merrors.ValidationError{Message: "outcome must be 'won' or 'lost'"}
	}

	d, err := o.Disputes.Get(ctx, disputeID)
	if err != nil {
		return nil, 0, err
	}

	if err := statemachine.Validate(statemachine.Dispute, string(d.State), string(target)); err != nil {
		return nil, 0, err
	}

	d.State = target
	d.UpdatedAt = time.Now().UTC()

	dMap := toMap(d)
	eventType := "dispute." + string(target)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, eventType, disputeID, d.Amount, "", rc.MerchantID, "", dMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Disputes.Save(ctx, d); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, eventType, dMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, dMap, 200); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("dispute %s resolved: %s", disputeID, target)

	return dMap, 200, nil
}
