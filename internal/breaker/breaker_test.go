package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbreaker "github.com/brackwater/payrail/internal/domain/breaker"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store/filestore"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()

	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	return New(st, cfg)
}

func TestCanExecuteOnUnseenProviderIsClosed(t *testing.T) {
	m := newTestManager(t, Config{FailureThreshold: 3, RecoveryTimeout: time.Minute, HalfOpenMaxCalls: 2})

	assert.NoError(t, m.CanExecute(context.Background(), "providerA"))
}

func TestRecordFailureOpensCircuitAtThreshold(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 2})

	require.NoError(t, m.RecordFailure(ctx, "providerA"))
	require.NoError(t, m.RecordFailure(ctx, "providerA"))
	assert.NoError(t, m.CanExecute(ctx, "providerA"))

	require.NoError(t, m.RecordFailure(ctx, "providerA"))

	err := m.CanExecute(ctx, "providerA")
	require.Error(t, err)

	snap, err := m.Snapshot(ctx, "providerA")
	require.NoError(t, err)
	assert.Equal(t, domainbreaker.Open, snap.CircuitState)
}

func TestRecordSuccessResetsFailureCountWhileClosed(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 2})

	require.NoError(t, m.RecordFailure(ctx, "providerA"))
	require.NoError(t, m.RecordFailure(ctx, "providerA"))
	require.NoError(t, m.RecordSuccess(ctx, "providerA"))

	snap, err := m.Snapshot(ctx, "providerA")
	require.NoError(t, err)
	assert.Equal(t, domainbreaker.Closed, snap.CircuitState)
	assert.Zero(t, snap.FailureCount)
}

func TestOpenCircuitTransitionsToHalfOpenAfterRecoveryTimeout(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})

	require.NoError(t, m.RecordFailure(ctx, "providerA"))

	snap, err := m.Snapshot(ctx, "providerA")
	require.NoError(t, err)
	assert.Equal(t, domainbreaker.Open, snap.CircuitState)

	time.Sleep(20 * time.Millisecond)

	snap, err = m.Snapshot(ctx, "providerA")
	require.NoError(t, err)
	assert.Equal(t, domainbreaker.HalfOpen, snap.CircuitState)
}

func TestHalfOpenFailureReopensCircuitImmediately(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})

	require.NoError(t, m.RecordFailure(ctx, "providerA"))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, m.CanExecute(ctx, "providerA"))

	require.NoError(t, m.RecordFailure(ctx, "providerA"))

	snap, err := m.Snapshot(ctx, "providerA")
	require.NoError(t, err)
	assert.Equal(t, domainbreaker.Open, snap.CircuitState)
}

func TestHalfOpenSuccessesCloseCircuitAtMaxCalls(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})

	require.NoError(t, m.RecordFailure(ctx, "providerA"))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, m.CanExecute(ctx, "providerA"))
	require.NoError(t, m.RecordSuccess(ctx, "providerA"))
	require.NoError(t, m.RecordSuccess(ctx, "providerA"))

	snap, err := m.Snapshot(ctx, "providerA")
	require.NoError(t, err)
	assert.Equal(t, domainbreaker.Closed, snap.CircuitState)
}

func TestProvidersHaveIndependentState(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 2})

	require.NoError(t, m.RecordFailure(ctx, "providerA"))

	assert.Error(t, m.CanExecute(ctx, "providerA"))
	assert.NoError(t, m.CanExecute(ctx, "providerB"))
}
