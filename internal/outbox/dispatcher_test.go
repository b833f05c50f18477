package outbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brackwater/payrail/internal/domain/outboxevent"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store/filestore"
)

func newTestStore(t *testing.T) *filestore.Store {
	t.Helper()

	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	return st
}

func TestProcessPendingOnEmptyOutboxIsNoop(t *testing.T) {
	d := New(newTestStore(t), "http://unused", "secret", nil)

	require.NoError(t, d.ProcessPending(context.Background()))
}

func TestProcessPendingDeliversAndMarksProcessed(t *testing.T) {
	var receivedSignature string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSignature = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendJSONL(ctx, outboxKey, outboxevent.Event{
		ID:      "oevt_1",
		Type:    "payment.created",
		Payload: map[string]any{"payment_id": "pi_1"},
	}))

	d := New(st, srv.URL, "whsec_test", nil)

	require.NoError(t, d.ProcessPending(ctx))
	assert.NotEmpty(t, receivedSignature)

	var processed map[string]outboxevent.ProcessedRecord
	require.NoError(t, st.ReadJSON(ctx, processedKey, &processed))
	assert.Equal(t, "delivered", processed["oevt_1"].Status)
}

func TestProcessPendingSkipsAlreadyProcessedEvents(t *testing.T) {
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendJSONL(ctx, outboxKey, outboxevent.Event{ID: "oevt_1", Type: "payment.created", Payload: map[string]any{}}))

	d := New(st, srv.URL, "whsec_test", nil)

	require.NoError(t, d.ProcessPending(ctx))
	require.NoError(t, d.ProcessPending(ctx))

	assert.Equal(t, 1, calls)
}

func TestProcessPendingMovesExhaustedDeliveryToDLQ(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendJSONL(ctx, outboxKey, outboxevent.Event{ID: "oevt_1", Type: "payment.created", Payload: map[string]any{}}))

	d := New(st, srv.URL, "whsec_test", nil)

	require.NoError(t, d.ProcessPending(ctx))

	var processed map[string]outboxevent.ProcessedRecord
	require.NoError(t, st.ReadJSON(ctx, processedKey, &processed))
	assert.Equal(t, "dlq", processed["oevt_1"].Status)

	raw, err := st.ReadJSONL(ctx, dlqKey)
	require.NoError(t, err)
	assert.Len(t, raw, 1)
}

func TestFanOutToleratesNilChannel(t *testing.T) {
	d := New(newTestStore(t), "http://unused", "secret", nil)

	d.fanOut(context.Background(), outboxevent.Event{ID: "oevt_1", Type: "payment.created"})
}
