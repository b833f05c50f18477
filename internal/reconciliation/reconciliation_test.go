package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brackwater/payrail/internal/domain/ledger"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/store/filestore"
)

func newTestEngine(t *testing.T) (*Engine, *filestore.Store) {
	t.Helper()

	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	return New(st), st
}

func TestReconcileReportsCleanWhenTotalsMatch(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	date := "2026-07-31"
	ts, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	require.NoError(t, st.AppendJSONL(ctx, ledgerKey, ledger.Entry{ID: "evt_1", Type: "payment.captured", Ref: "pi_1", Amount: 500, Timestamp: ts}))
	require.NoError(t, st.WriteCSV(ctx, settlementKey(date), []string{"payment_id", "amount"}, []map[string]string{
		{"payment_id": "pi_1", "amount": "500"},
	}))

	report, err := e.Reconcile(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, "clean", report.Status)
	assert.Equal(t, 1, report.Matched)
	assert.Zero(t, report.Mismatched)

	last, ok := e.GetLastReport()
	require.True(t, ok)
	assert.Equal(t, report.Date, last.Date)
	assert.True(t, e.IsHealthy())
}

func TestReconcileFlagsAmountMismatch(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	date := "2026-07-31"
	ts, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	require.NoError(t, st.AppendJSONL(ctx, ledgerKey, ledger.Entry{ID: "evt_1", Type: "payment.captured", Ref: "pi_1", Amount: 500, Timestamp: ts}))
	require.NoError(t, st.WriteCSV(ctx, settlementKey(date), []string{"payment_id", "amount"}, []map[string]string{
		{"payment_id": "pi_1", "amount": "400"},
	}))

	report, err := e.Reconcile(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, "mismatches_found", report.Status)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "amount_mismatch", report.Mismatches[0].Issue)
	assert.Equal(t, int64(100), *report.Mismatches[0].Diff)

	assert.False(t, e.IsHealthy())
}

func TestReconcileFlagsMissingFromSettlement(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	date := "2026-07-31"
	ts, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)

	require.NoError(t, st.AppendJSONL(ctx, ledgerKey, ledger.Entry{ID: "evt_1", Type: "payment.captured", Ref: "pi_1", Amount: 500, Timestamp: ts}))

	report, err := e.Reconcile(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, "mismatches_found", report.Status)
	assert.Equal(t, 1, report.MissingFromSettlement)
}

func TestGetLastReportBeforeAnyRunIsAbsent(t *testing.T) {
	e, _ := newTestEngine(t)

	_, ok := e.GetLastReport()
	assert.False(t, ok)
	assert.True(t, e.IsHealthy())
}
