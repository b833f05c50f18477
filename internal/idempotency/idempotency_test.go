package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brackwater/payrail/internal/domain/idempotency"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store/filestore"
)

func newTestStore(t *testing.T) *filestore.Store {
	t.Helper()

	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	return st
}

func TestComputeHashIsStableUnderKeyOrder(t *testing.T) {
	a := map[string]any{"amount": 100, "currency": "USD"}
	b := map[string]any{"currency": "USD", "amount": 100}

	assert.Equal(t, ComputeHash(a), ComputeHash(b))
}

func TestComputeHashDiffersOnValueChange(t *testing.T) {
	a := map[string]any{"amount": 100}
	b := map[string]any{"amount": 200}

	assert.NotEqual(t, ComputeHash(a), ComputeHash(b))
}

func TestCheckUnseenKeyReturnsNoRecord(t *testing.T) {
	svc := New(newTestStore(t))

	resp, status, err := svc.Check(context.Background(), "unseen-key", "anyhash")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Zero(t, status)
}

func TestStoreThenCheckReturnsCachedResponseOnHashMatch(t *testing.T) {
	svc := New(newTestStore(t))
	ctx := context.Background()

	hash := ComputeHash(map[string]any{"amount": 100})
	response := map[string]any{"id": "pi_abc123", "state": "created"}

	require.NoError(t, svc.Store(ctx, "key-1", hash, response, 201))

	cached, status, err := svc.Check(ctx, "key-1", hash)
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, response["id"], cached["id"])
}

func TestCheckConflictsOnHashMismatch(t *testing.T) {
	svc := New(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, svc.Store(ctx, "key-2", ComputeHash(map[string]any{"amount": 100}), map[string]any{"id": "pi_x"}, 201))

	_, _, err := svc.Check(ctx, "key-2", ComputeHash(map[string]any{"amount": 999}))
	require.Error(t, err)
	assert.IsType(t, merrors.IdempotencyConflictError{}, err)
}

func TestCheckIgnoresExpiredRecord(t *testing.T) {
	st := newTestStore(t)
	svc := New(st)
	ctx := context.Background()

	rec := idempotency.Record{
		RequestHash: "samehash",
		Response:    map[string]any{"id": "pi_old"},
		StatusCode:  201,
		CreatedAt:   time.Now().UTC().Add(-25 * time.Hour),
	}
	require.NoError(t, st.WriteJSON(ctx, "idempotency/key-3.json", rec))

	resp, status, err := svc.Check(ctx, "key-3", "samehash")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Zero(t, status)
}
