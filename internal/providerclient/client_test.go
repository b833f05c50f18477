package providerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbreaker "github.com/brackwater/payrail/internal/domain/breaker"
	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store/filestore"
)

func newTestBreaker(t *testing.T) *breaker.Manager {
	t.Helper()

	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	return breaker.New(st, breaker.Config{FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 2})
}

func TestAuthorizeSuccessRecordsBreakerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pi_1", body["payment_id"])
		assert.Equal(t, "/providers/providerA/authorize", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Success: true, ProviderRef: "prov_abc"})
	}))
	defer srv.Close()

	b := newTestBreaker(t)
	c := New(srv.URL, b)

	result, err := c.Authorize(context.Background(), "providerA", "pi_1", 500, "USD", "4111111111111111", "12/29", "merchant_1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "prov_abc", result.ProviderRef)

	snap, err := b.Snapshot(context.Background(), "providerA")
	require.NoError(t, err)
	assert.Equal(t, domainbreaker.Closed, snap.CircuitState)
	assert.Zero(t, snap.FailureCount)
}

func TestAuthorizeDeclineRecordsBreakerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Success: false, Reason: "insufficient_funds"})
	}))
	defer srv.Close()

	b := newTestBreaker(t)
	c := New(srv.URL, b)

	result, err := c.Authorize(context.Background(), "providerA", "pi_1", 500, "USD", "4111111111111111", "12/29", "merchant_1")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "insufficient_funds", result.Reason)

	snap, err := b.Snapshot(context.Background(), "providerA")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.FailureCount)
}

func TestPostOpenBreakerShortCircuitsWithoutHTTPCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_ = json.NewEncoder(w).Encode(Result{Success: true})
	}))
	defer srv.Close()

	ctx := context.Background()
	b := newTestBreaker(t)
	require.NoError(t, b.RecordFailure(ctx, "providerA"))
	require.NoError(t, b.RecordFailure(ctx, "providerA"))
	require.NoError(t, b.RecordFailure(ctx, "providerA"))

	c := New(srv.URL, b)

	_, err := c.Capture(ctx, "providerA", "pi_1", "prov_abc", 500)
	require.Error(t, err)
	assert.IsType(t, merrors.ProviderUnavailableError{}, err)
	assert.False(t, called)
}

func TestRefundNonOKStatusRecordsBreakerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	b := newTestBreaker(t)
	c := New(srv.URL, b)

	_, err := c.Refund(context.Background(), "providerA", "pi_1", "prov_abc", 500)
	require.Error(t, err)
	assert.IsType(t, merrors.ProviderError{}, err)

	snap, err := b.Snapshot(context.Background(), "providerA")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.FailureCount)
}

func TestCaptureMalformedResponseRecordsBreakerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("not-json"))
	}))
	defer srv.Close()

	b := newTestBreaker(t)
	c := New(srv.URL, b)

	_, err := c.Capture(context.Background(), "providerA", "pi_1", "prov_abc", 500)
	require.Error(t, err)
	assert.IsType(t, merrors.ProviderError{}, err)

	snap, err := b.Snapshot(context.Background(), "providerA")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.FailureCount)
}
