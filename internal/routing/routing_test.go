package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store/filestore"
)

func newTestEngine(t *testing.T) (*Engine, *breaker.Manager) {
	t.Helper()

	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	b := breaker.New(st, breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})

	return New(b, "providerA", "providerB"), b
}

func TestSelectProviderPrefersExplicitPreference(t *testing.T) {
	e, _ := newTestEngine(t)

	provider, err := e.SelectProvider(context.Background(), 500, "USD", "", "providerB")
	require.NoError(t, err)
	assert.Equal(t, "providerB", provider)
}

func TestSelectProviderFallsBackToCountryTable(t *testing.T) {
	e, _ := newTestEngine(t)

	provider, err := e.SelectProvider(context.Background(), 500, "EUR", "DE", "")
	require.NoError(t, err)
	assert.Equal(t, "providerB", provider)
}

func TestSelectProviderRoutesHighValueToProviderB(t *testing.T) {
	e, _ := newTestEngine(t)

	provider, err := e.SelectProvider(context.Background(), HighValueThreshold, "USD", "", "")
	require.NoError(t, err)
	assert.Equal(t, "providerB", provider)
}

func TestSelectProviderDefaultsWhenNoOtherRuleApplies(t *testing.T) {
	e, _ := newTestEngine(t)

	provider, err := e.SelectProvider(context.Background(), 500, "USD", "", "")
	require.NoError(t, err)
	assert.Equal(t, "providerA", provider)
}

func TestSelectProviderFailsOverWhenDefaultBreakerOpen(t *testing.T) {
	ctx := context.Background()
	e, b := newTestEngine(t)

	require.NoError(t, b.RecordFailure(ctx, "providerA"))

	provider, err := e.SelectProvider(ctx, 500, "USD", "", "")
	require.NoError(t, err)
	assert.Equal(t, "providerB", provider)
}

func TestSelectProviderFailsWhenEveryCandidateBreakerOpen(t *testing.T) {
	ctx := context.Background()
	e, b := newTestEngine(t)

	require.NoError(t, b.RecordFailure(ctx, "providerA"))
	require.NoError(t, b.RecordFailure(ctx, "providerB"))

	_, err := e.SelectProvider(ctx, 500, "USD", "", "")
	require.Error(t, err)
	assert.IsType(t, merrors.NoProvidersAvailableError{}, err)
}

func TestSelectProviderSkipsPreferredProviderWithOpenBreaker(t *testing.T) {
	ctx := context.Background()
	e, b := newTestEngine(t)

	require.NoError(t, b.RecordFailure(ctx, "providerB"))

	provider, err := e.SelectProvider(ctx, 500, "USD", "", "providerB")
	require.NoError(t, err)
	assert.Equal(t, "providerA", provider)
}
