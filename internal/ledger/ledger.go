// Package ledger is the append-only event log service (spec.md §4.2),
// grounded on the original implementation's api_gateway/services/ledger.py
// LedgerService. It is the sole writer of ledger entries; every other
// component only reads through GetEntriesForRef / GetAllEntries.
package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/brackwater/payrail/internal/domain/ledger"
	"github.com/brackwater/payrail/internal/domain/outboxevent"
	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/store"
)

const (
	paymentsKey = "ledger/payments.jsonl"
	refundsKey  = "ledger/refunds.jsonl"
	disputesKey = "ledger/disputes.jsonl"
	outboxKey   = "outbox/events.jsonl"
)

// Service is the ledger capability. It holds no mutable state of its
// own; every decision re-reads the backing Store.
type Service struct {
	store store.Store
}

// New builds a ledger Service backed by st.
func New(st store.Store) *Service {
	return &Service{store: st}
}

func pathForType(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "refund."):
		return refundsKey
	case strings.HasPrefix(eventType, "dispute."):
		return disputesKey
	default:
		return paymentsKey
	}
}

// WriteEntry appends entry to the stream selected by its Type prefix. An
// entry with an empty ID is given a fresh ledger event ID; the timestamp
// is written exactly as the caller set it.
func (s *Service) WriteEntry(ctx context.Context, entry ledger.Entry) error {
	if entry.ID == "" {
		entry.ID = idgen.LedgerEventID()
	}

	return s.store.AppendJSONL(ctx, pathForType(entry.Type), entry)
}

// GetEntriesForRef scans all three streams and returns every entry whose
// Ref matches, sorted by Timestamp ascending (spec.md §4.2).
func (s *Service) GetEntriesForRef(ctx context.Context, ref string) ([]ledger.Entry, error) {
	var out []ledger.Entry

	for _, key := range []string{paymentsKey, refundsKey, disputesKey} {
		entries, err := s.readStream(ctx, key)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if e.Ref == ref {
				out = append(out, e)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	return out, nil
}

// GetAllEntries returns up to limit entries for family, newest first,
// skipping offset, plus the family's total entry count. A limit of zero
// or less returns every entry from offset on.
func (s *Service) GetAllEntries(ctx context.Context, family ledger.Family, limit, offset int) ([]ledger.Entry, int, error) {
	key := keyForFamily(family)

	entries, err := s.readStream(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	total := len(entries)

	// newest-first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if offset >= len(entries) {
		return []ledger.Entry{}, total, nil
	}

	end := offset + limit
	if end > len(entries) || limit <= 0 {
		end = len(entries)
	}

	return entries[offset:end], total, nil
}

func keyForFamily(family ledger.Family) string {
	switch family {
	case ledger.Refunds:
		return refundsKey
	case ledger.Disputes:
		return disputesKey
	default:
		return paymentsKey
	}
}

func (s *Service) readStream(ctx context.Context, key string) ([]ledger.Entry, error) {
	raw, err := s.store.ReadJSONL(ctx, key)
	if err != nil {
		return nil, err
	}

	out := make([]ledger.Entry, 0, len(raw))

	for _, r := range raw {
		var e ledger.Entry
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}

		out = append(out, e)
	}

	return out, nil
}

// EmitOutboxEvent appends an OutboxEvent carrying the ambient correlation
// id, per spec.md §4.2. Must be called after the entity snapshot write
// for the same operation (ledger-first discipline, spec.md §4.2/§5).
func (s *Service) EmitOutboxEvent(ctx context.Context, eventType string, payload any) error {
	event := outboxevent.Event{
		ID:            idgen.OutboxEventID(),
		Type:          eventType,
		Payload:       payload,
		CorrelationID: mtrace.CorrelationID(ctx),
		CreatedAt:     time.Now().UTC(),
	}

	return s.store.AppendJSONL(ctx, outboxKey, event)
}
