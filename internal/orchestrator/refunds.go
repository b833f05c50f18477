package orchestrator

import (
	"context"
	"time"

	"github.com/brackwater/payrail/internal/domain/payment"
	"github.com/brackwater/payrail/internal/domain/refund"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/statemachine"
)

// CreateRefund opens a refund in pending_approval for a payment that is
// captured or settled, per spec.md §4.8.
func (o *Orchestrator) CreateRefund(ctx context.Context, rc RequestContext, req CreateRefundRequest) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.create_refund")
	defer func() { endSpan(err) }()

	body := toMap(req)
	body["action"] = "create_refund"

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

	if p.State != payment.Captured && p.State != payment.Settled {
		return nil, 0, merrors.InvalidTransitionError{Entity: "payment", Current: string(p.State), Target: "refundable"}
	}

	if req.Amount > p.Amount {
		return nil, 0, merrors.ValidationError{Message: "refund amount exceeds payment amount"}
	}

	now := time.Now().UTC()

	r := refund.Refund{
		ID:          idgen.RefundID(),
		PaymentID:   req.PaymentID,
		Amount:      req.Amount,
		Currency:    p.Currency,
		State:       refund.PendingApproval,
		RequestedBy: rc.MerchantID,
		Reason:      req.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	rMap := toMap(r)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, "refund.created", r.ID, r.Amount, r.Currency, rc.MerchantID, "", rMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Refunds.Save(ctx, r); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, "refund.created", rMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, rMap, 201); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("refund %s created for payment %s (pending approval)", r.ID, req.PaymentID)

	return rMap, 201, nil
}

// GetRefund returns a refund plus its ledger history.
func (o *Orchestrator) GetRefund(ctx context.Context, id string) (map[string]any, error) {
	r, err := o.Refunds.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := o.Ledger.GetEntriesForRef(ctx, id)
	if err != nil {
		return nil, err
	}

	out := toMap(r)
	out["ledger_entries"] = entries

	return out, nil
}

// ListRefunds returns the paginated refund listing.
func (o *Orchestrator) ListRefunds(ctx context.Context, state, paymentID string, limit, offset int) (map[string]any, error) {
	items, total, err := o.Refunds.List(ctx, entities.ListFilter{State: state, PaymentID: paymentID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	return map[string]any{"items": items, "total": total, "limit": limit, "offset": offset}, nil
}

// ApproveRefund enforces maker-checker, transitions to approved, then
// attempts the provider refund — mapping the outcome to succeeded or
// failed (spec.md §4.8).
func (o *Orchestrator) ApproveRefund(ctx context.Context, rc RequestContext, refundID string) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.approve_refund")
	defer func() { endSpan(err) }()

	body := map[string]any{
		"action":      "approve_refund",
		"refund_id":   refundID,
		"merchant_id": rc.MerchantID,
		"role":        rc.Role,
	}

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	r, err := o.Refunds.Get(ctx, refundID)
	if err != nil {
		return nil, 0, err
	}

	if !refund.MakerChecker(r.RequestedBy, rc.MerchantID, rc.Role == "admin") {
		return nil, 0, merrors.MakerCheckerError{RefundID: refundID}
	}

	if err := statemachine.Validate(statemachine.Refund, string(r.State), string(refund.Approved)); err != nil {
		return nil, 0, err
	}

	r.State = refund.Approved
	r.ApprovedBy = rc.MerchantID
	r.UpdatedAt = time.Now().UTC()

	p, payErr := o.Payments.Get(ctx, r.PaymentID)

	provider := ""

	switch {
	case payErr == nil && p.Provider != "" && p.ProviderRef != "":
		provider = p.Provider

		result, err := o.Provider.Refund(ctx, p.Provider, r.PaymentID, p.ProviderRef, int(r.Amount))
		if err != nil {
			mlog.FromContext(ctx).Errorf("provider refund failed: %v", err)

			r.State = refund.Failed
		} else if result.Success {
			r.State = refund.Succeeded
		} else {
			r.State = refund.Failed
		}
	default:
		r.State = refund.Succeeded
	}

	r.UpdatedAt = time.Now().UTC()

	rMap := toMap(r)
	eventType := "refund." + string(r.State)

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, eventType, refundID, r.Amount, r.Currency, rc.MerchantID, provider, rMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Refunds.Save(ctx, r); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, eventType, rMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, rMap, 200); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("refund %s -> %s", refundID, r.State)

	return rMap, 200, nil
}

// RejectRefund fails a pending refund without invoking the provider.
func (o *Orchestrator) RejectRefund(ctx context.Context, rc RequestContext, refundID string) (resp map[string]any, status int, err error) {
	ctx, endSpan := mtrace.StartSpan(ctx, "orchestrator.reject_refund")
	defer func() { endSpan(err) }()

	body := map[string]any{"action": "reject_refund", "refund_id": refundID, "merchant_id": rc.MerchantID}

	cached, status, hash, hit, err := o.checkCache(ctx, rc.IdempotencyKey, body)
	if err != nil {
		return nil, 0, err
	}

	if hit {
		return cached, status, nil
	}

	r, err := o.Refunds.Get(ctx, refundID)
	if err != nil {
		return nil, 0, err
	}

	if err := statemachine.Validate(statemachine.Refund, string(r.State), string(refund.Failed)); err != nil {
		return nil, 0, err
	}

	r.State = refund.Failed
	r.UpdatedAt = time.Now().UTC()

	rMap := toMap(r)
	rMap["rejection_reason"] = "rejected by approver"

	if err := o.Ledger.WriteEntry(ctx, newLedgerEntry(ctx, "refund.failed", refundID, r.Amount, r.Currency, rc.MerchantID, "", rMap)); err != nil {
		return nil, 0, err
	}

	if err := o.Refunds.Save(ctx, r); err != nil {
		return nil, 0, err
	}

	if err := o.Ledger.EmitOutboxEvent(ctx, "refund.rejected", rMap); err != nil {
		return nil, 0, err
	}

	if err := o.Idem.Store(ctx, rc.IdempotencyKey, hash, rMap, 200); err != nil {
		return nil, 0, err
	}

	mlog.FromContext(ctx).Infof("refund %s rejected", refundID)

	return rMap, 200, nil
}
