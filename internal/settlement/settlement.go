// Package settlement promotes captured payments to settled and writes
// the daily settlement CSV, grounded on
// ledger_jobs/settlement_generator.py's SettlementGenerator.
package settlement

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/brackwater/payrail/internal/domain/ledger"
	"github.com/brackwater/payrail/internal/domain/outboxevent"
	"github.com/brackwater/payrail/internal/domain/payment"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store"
)

const (
	ledgerKey = "ledger/payments.jsonl"
	outboxKey = "outbox/events.jsonl"

	settlementJobCorrelationID = "corr_settlement_job"
)

var csvHeaders = []string{"payment_id", "provider_ref", "amount", "currency", "type", "status", "settled_at"}

func settlementKey(date string) string { return "settlement/settlement_" + date + ".csv" }

// Generator runs the settlement promotion and CSV export job.
type Generator struct {
	store    store.Store
	payments *entities.PaymentRepository
}

// New builds a Generator.
func New(st store.Store, payments *entities.PaymentRepository) *Generator {
	return &Generator{store: st, payments: payments}
}

// Run executes Generate on a fixed interval until ctx is canceled.
func (g *Generator) Run(ctx context.Context, interval time.Duration) {
	logger := mlog.FromContext(ctx)
	logger.Infof("settlement generator started (interval=%s)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		today := time.Now().UTC().Format("2006-01-02")
		if _, err := g.Generate(ctx, today); err != nil {
			logger.Errorf("settlement generator error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Generate promotes every captured payment to settled regardless of its
// capture date, then writes a CSV of the rows whose ledger timestamp
// falls on date. Settlement promotion is a rolling sweep; the CSV is a
// per-day snapshot, matching the original's two-pass behavior.
func (g *Generator) Generate(ctx context.Context, date string) ([]map[string]string, error) {
	logger := mlog.FromContext(ctx)

	raw, err := g.store.ReadJSONL(ctx, ledgerKey)
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	entries := make([]ledger.Entry, 0, len(raw))

	for _, r := range raw {
		var e ledger.Entry
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}

		entries = append(entries, e)
	}

	settledRefs := map[string]bool{}

	for _, e := range entries {
		if e.Type == "payment.settled" {
			settledRefs[e.Ref] = true
		}
	}

	for _, e := range entries {
		if e.Type != "payment.captured" && e.Type != "payment.settled" {
			continue
		}

		if settledRefs[e.Ref] {
			continue
		}

		p, err := g.payments.Get(ctx, e.Ref)
		if err != nil {
			continue
		}

		if p.State != payment.Captured {
			continue
		}

		p.State = payment.Settled
		p.UpdatedAt = time.Now().UTC()

		pMap := toMap(p)

		settledEntry := ledger.Entry{
			ID:            idgen.LedgerEventID(),
			Type:          "payment.settled",
			Ref:           e.Ref,
			Amount:        e.Amount,
			Currency:      orDefault(e.Currency, "USD"),
			MerchantID:    p.MerchantID,
			Provider:      e.Provider,
			CorrelationID: settlementJobCorrelationID,
			Timestamp:     time.Now().UTC(),
			Metadata:      pMap,
		}

		// Ledger entry and outbox event are durable before the payment
		// snapshot is overwritten, so a crash between the two never leaves
		// a payment marked settled with no corresponding ledger entry
		// (spec.md §4.2's "ledger entry before snapshot" rule).
		if err := g.store.AppendJSONL(ctx, ledgerKey, settledEntry); err != nil {
			return nil, err
		}

		outboxEvent := outboxevent.Event{
			ID:            idgen.OutboxEventID(),
			Type:          "payment.settled",
			Payload:       pMap,
			CorrelationID: settlementJobCorrelationID,
			CreatedAt:     time.Now().UTC(),
		}

		if err := g.store.AppendJSONL(ctx, outboxKey, outboxEvent); err != nil {
			return nil, err
		}

		if err := g.payments.Save(ctx, p); err != nil {
			return nil, err
		}

		settledRefs[e.Ref] = true

		entries = append(entries, settledEntry)
	}

	seen := map[string]bool{}

	var rows []map[string]string

	for _, e := range entries {
		if e.Type != "payment.captured" && e.Type != "payment.settled" {
			continue
		}

		if !strings.HasPrefix(e.Timestamp.UTC().Format(time.RFC3339), date) {
			continue
		}

		if seen[e.Ref] {
			continue
		}

		seen[e.Ref] = true

		providerRef := ""
		if meta, ok := e.Metadata["provider_ref"].(string); ok {
			providerRef = meta
		}

		rows = append(rows, map[string]string{
			"payment_id":   e.Ref,
			"provider_ref": providerRef,
			"amount":       strconv.FormatInt(e.Amount, 10),
			"currency":     orDefault(e.Currency, "USD"),
			"type":         e.Type,
			"status":       "settled",
			"settled_at":   e.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	if len(rows) > 0 {
		if err := g.store.WriteCSV(ctx, settlementKey(date), csvHeaders, rows); err != nil {
			return nil, err
		}

		logger.Infof("generated settlement for %s: %d rows", date, len(rows))
	} else {
		logger.Infof("no settled payments for %s", date)
	}

	return rows, nil
}

func toMap(p payment.Intent) map[string]any {
	buf, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}

	out := map[string]any{}
	_ = json.Unmarshal(buf, &out)

	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
