// Package breaker implements the per-provider circuit breaker (spec.md
// §4.5). The persisted CircuitBreakerState snapshot under the store's
// per-key lock is always the source of truth — "no in-memory
// cross-request mutable state" (spec.md §5) — so the externally
// observable breaker state is the same whether /providers/health is
// served by this process or another one sharing DATA_DIR.
package breaker

import (
	"context"
	"time"

	"github.com/brackwater/payrail/internal/domain/breaker"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/store"
)

// Config carries the tunables from spec.md §4.5 / CB_* env vars.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMaxCalls int
}

func stateKey(providerID string) string {
	return "providers/" + providerID + "_state.json"
}

// Manager is the circuit breaker capability, shared by the routing
// engine and the provider client.
type Manager struct {
	store store.Store
	cfg   Config
}

// New builds a Manager backed by st with the given tunables.
func New(st store.Store, cfg Config) *Manager {
	return &Manager{
		store: st,
		cfg:   cfg,
	}
}

func (m *Manager) load(ctx context.Context, providerID string) (breaker.State, error) {
	var st breaker.State

	err := m.store.ReadJSON(ctx, stateKey(providerID), &st)
	if err == store.ErrNotFound {
		return breaker.Default(providerID), nil
	}
	if err != nil {
		return breaker.State{}, err
	}

	return st, nil
}

func (m *Manager) save(ctx context.Context, st breaker.State) error {
	return m.store.WriteJSON(ctx, stateKey(st.ProviderID), st)
}

// CanExecute re-derives the provider's admission state from the
// persisted snapshot, applying the open→half_open recovery-timeout
// transition if enough time has elapsed. It returns
// merrors.ProviderUnavailableError when the circuit is (still) open.
func (m *Manager) CanExecute(ctx context.Context, providerID string) error {
	st, err := m.load(ctx, providerID)
	if err != nil {
		return err
	}

	st = m.advance(st)

	if st.CircuitState == breaker.Open {
		return merrors.ProviderUnavailableError{ProviderID: providerID}
	}

	if st.CircuitState == breaker.HalfOpen && st.HalfOpenCalls >= m.cfg.HalfOpenMaxCalls {
		return merrors.ProviderUnavailableError{ProviderID: providerID}
	}

	return m.save(ctx, st)
}

// advance applies the time-based open→half_open transition without
// touching the store.
func (m *Manager) advance(st breaker.State) breaker.State {
	if st.CircuitState == breaker.Open && time.Since(st.OpenedAt) > m.cfg.RecoveryTimeout {
		st.CircuitState = breaker.HalfOpen
		st.HalfOpenCalls = 0
	}

	return st
}

// RecordSuccess updates the persisted breaker state for providerID
// after a successful provider RPC, per spec.md §4.5.
func (m *Manager) RecordSuccess(ctx context.Context, providerID string) error {
	st, err := m.load(ctx, providerID)
	if err != nil {
		return err
	}

	st = m.advance(st)
	st.TotalRequests++
	st.SuccessCount++
	st.LastSuccessAt = time.Now().UTC()

	switch st.CircuitState {
	case breaker.HalfOpen:
		st.HalfOpenCalls++
		if st.HalfOpenCalls >= m.cfg.HalfOpenMaxCalls {
			st.CircuitState = breaker.Closed
			st.FailureCount = 0
			st.HalfOpenCalls = 0
		}
	case breaker.Closed:
		st.FailureCount = 0
	}

	return m.save(ctx, st)
}

// RecordFailure updates the persisted breaker state for providerID
// after a failed provider RPC. A failure during half_open re-opens the
// circuit immediately; a failure in closed state opens it once
// FailureThreshold is reached.
func (m *Manager) RecordFailure(ctx context.Context, providerID string) error {
	st, err := m.load(ctx, providerID)
	if err != nil {
		return err
	}

	st = m.advance(st)
	st.TotalRequests++
	st.FailureCount++
	st.LastFailureAt = time.Now().UTC()

	switch st.CircuitState {
	case breaker.HalfOpen:
		st.CircuitState = breaker.Open
		st.OpenedAt = time.Now().UTC()
		st.HalfOpenCalls = 0
	case breaker.Closed:
		if st.FailureCount >= m.cfg.FailureThreshold {
			st.CircuitState = breaker.Open
			st.OpenedAt = time.Now().UTC()
		}
	}

	return m.save(ctx, st)
}

// Snapshot returns the current persisted state for providerID, applying
// the time-based transition, for health-endpoint reporting.
func (m *Manager) Snapshot(ctx context.Context, providerID string) (breaker.State, error) {
	st, err := m.load(ctx, providerID)
	if err != nil {
		return breaker.State{}, err
	}

	return m.advance(st), nil
}
