// Package idempotency guards mutating orchestrator operations against
// request replay (spec.md §4.3), grounded on the original implementation's
// api_gateway/services/idempotency.py IdempotencyService.
package idempotency

import (
	"context"
	"time"

	"github.com/brackwater/payrail/internal/domain/idempotency"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/store"
)

// TTL is how long a cached idempotency record is honored. Records older
// than this are treated as unseen (spec.md §4.3).
const TTL = 24 * time.Hour

// Service checks and stores idempotency records. The key space is global
// per process and Service adds no scoping; the orchestrator passes the
// client's Idempotency-Key through unchanged, so one key reused across
// different operations refers to the same record.
type Service struct {
	store store.Store
}

// New builds an idempotency Service backed by st.
func New(st store.Store) *Service {
	return &Service{store: st}
}

func recordKey(key string) string {
	return "idempotency/" + key + ".json"
}

// Check returns the cached (response, statusCode) when key was already
// stored with the same requestHash. It returns (nil, 0, nil) when the key
// is unseen or its record has expired. It returns
// merrors.IdempotencyConflictError when the key is known but was stored
// with a different request hash.
func (s *Service) Check(ctx context.Context, key, requestHash string) (map[string]any, int, error) {
	var rec idempotency.Record

	err := s.store.ReadJSON(ctx, recordKey(key), &rec)
	if err == store.ErrNotFound {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	if time.Since(rec.CreatedAt) > TTL {
		return nil, 0, nil
	}

	if rec.RequestHash != requestHash {
		return nil, 0, merrors.IdempotencyConflictError{Key: key}
	}

	return rec.Response, rec.StatusCode, nil
}

// Store persists the outcome of a newly-processed request under key.
func (s *Service) Store(ctx context.Context, key, requestHash string, response map[string]any, statusCode int) error {
	rec := idempotency.Record{
		RequestHash: requestHash,
		Response:    response,
		StatusCode:  statusCode,
		CreatedAt:   time.Now().UTC(),
	}

	return s.store.WriteJSON(ctx, recordKey(key), rec)
}
