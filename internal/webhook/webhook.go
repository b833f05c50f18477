// Package webhook ingests signed provider callbacks (spec.md §4.9),
// grounded 1:1 on api_gateway/webhooks.py's receive_webhook.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/brackwater/payrail/internal/domain/payment"
	ledgerdomain "github.com/brackwater/payrail/internal/domain/ledger"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/ledger"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/store"
)

const processedKey = "outbox/processed_webhooks.json"

// Ingress validates and applies inbound provider webhooks.
type Ingress struct {
	store    store.Store
	payments *entities.PaymentRepository
	ledger   *ledger.Service
	secret   string
}

// New builds an Ingress using secret as the shared HMAC key.
func New(st store.Store, payments *entities.PaymentRepository, ledgerSvc *ledger.Service, secret string) *Ingress {
	return &Ingress{store: st, payments: payments, ledger: ledgerSvc, secret: secret}
}

// ValidSignature reports whether signature (the "sha256=<hex>" header
// value) matches the HMAC-SHA256 of body under the ingress secret.
func (w *Ingress) ValidSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(w.secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

type processedRecord struct {
	ProcessedAt time.Time `json:"processed_at"`
	EventType   string    `json:"event_type"`
}

func (w *Ingress) loadProcessed(ctx context.Context) (map[string]processedRecord, error) {
	all := map[string]processedRecord{}

	err := w.store.ReadJSON(ctx, processedKey, &all)
	if err == store.ErrNotFound {
		return map[string]processedRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	return all, nil
}

// Result summarizes the disposition of one ingested webhook.
type Result struct {
	Status    string `json:"status"` // "processed" or "duplicate"
	WebhookID string `json:"webhook_id"`
}

// Receive validates the signature, dedupes by webhook id, and applies a
// conservative forward-only payment transition for recognized event
// types. Unknown or out-of-order events are acknowledged without a
// state change, matching the original's permissive handling of replayed
// or stale provider callbacks.
func (w *Ingress) Receive(ctx context.Context, body []byte, signature string) (Result, error) {
	if signature != "" && !w.ValidSignature(body, signature) {
		return Result{}, merrors.UnauthorizedError{Message: "invalid webhook signature"}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, merrors.ValidationError{Message: "malformed webhook body"}
	}

	webhookID := firstString(payload, "id", "event_id")
	eventType := firstString(payload, "type", "event_type")
	data := firstMap(payload, "data", "payload")
	if data == nil {
		data = payload
	}

	processed, err := w.loadProcessed(ctx)
	if err != nil {
		return Result{}, err
	}

	if _, ok := processed[webhookID]; ok {
		return Result{Status: "duplicate", WebhookID: webhookID}, nil
	}

	paymentID, _ := data["payment_id"].(string)

	if paymentID != "" {
		if err := w.applyToPayment(ctx, paymentID, eventType, data, payload); err != nil {
			if _, ok := err.(merrors.NotFoundError); !ok {
				return Result{}, err
			}
		}
	}

	processed[webhookID] = processedRecord{ProcessedAt: time.Now().UTC(), EventType: eventType}

	if err := w.store.WriteJSON(ctx, processedKey, processed); err != nil {
		return Result{}, err
	}

	return Result{Status: "processed", WebhookID: webhookID}, nil
}

func (w *Ingress) applyToPayment(ctx context.Context, paymentID, eventType string, data, payload map[string]any) error {
	p, err := w.payments.Get(ctx, paymentID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	mutated := false

	switch {
	case eventType == "payment.authorized" && p.State == payment.Created:
		p.State = payment.Authorized
		p.ProviderRef, _ = data["provider_ref"].(string)
		p.UpdatedAt = now
		mutated = true
	case eventType == "payment.captured" && p.State == payment.Authorized:
		p.State = payment.Captured
		p.UpdatedAt = now
		mutated = true
	case eventType == "payment.declined" && p.State == payment.Created:
		p.State = payment.Declined
		p.UpdatedAt = now

		if p.Metadata == nil {
			p.Metadata = map[string]any{}
		}

		p.Metadata["decline_reason"], _ = data["decline_reason"].(string)
		mutated = true
	}

	if mutated {
		if err := w.payments.Save(ctx, p); err != nil {
			return err
		}
	}

	provider, _ := payload["provider"].(string)

	amount := p.Amount
	if a, ok := data["amount"].(float64); ok {
		amount = int64(a)
	}

	entry := ledgerdomain.Entry{
		ID:            idgen.LedgerEventID(),
		Type:          "webhook." + eventType,
		Ref:           paymentID,
		Amount:        amount,
		Currency:      p.Currency,
		MerchantID:    p.MerchantID,
		Provider:      provider,
		CorrelationID: mtrace.CorrelationID(ctx),
		Timestamp:     now,
		Metadata:      data,
	}

	return w.ledger.WriteEntry(ctx, entry)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}

	return ""
}

func firstMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}

	return nil
}
