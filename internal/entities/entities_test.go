package entities

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brackwater/payrail/internal/domain/dispute"
	"github.com/brackwater/payrail/internal/domain/payment"
	"github.com/brackwater/payrail/internal/domain/refund"
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

func TestPaymentRepositoryGetMissingReturnsNotFound(t *testing.T) {
	repo := NewPaymentRepository(newTestStore(t))

	_, err := repo.Get(context.Background(), "pi_missing")
	require.Error(t, err)
	assert.IsType(t, merrors.NotFoundError{}, err)
}

func TestPaymentRepositorySaveThenGetRoundTrips(t *testing.T) {
	repo := NewPaymentRepository(newTestStore(t))
	ctx := context.Background()

	p := payment.Intent{ID: "pi_1", Amount: 500, Currency: "USD", MerchantID: "m1", State: payment.Created, CreatedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Get(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, p.Amount, got.Amount)
	assert.Equal(t, p.State, got.State)
}

func TestPaymentRepositoryListFiltersByStateAndMerchantNewestFirst(t *testing.T) {
	repo := NewPaymentRepository(newTestStore(t))
	ctx := context.Background()

	base := time.Now()

	require.NoError(t, repo.Save(ctx, payment.Intent{ID: "pi_1", MerchantID: "m1", State: payment.Created, CreatedAt: base}))
	require.NoError(t, repo.Save(ctx, payment.Intent{ID: "pi_2", MerchantID: "m1", State: payment.Captured, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Save(ctx, payment.Intent{ID: "pi_3", MerchantID: "m2", State: payment.Captured, CreatedAt: base.Add(2 * time.Minute)}))

	items, total, err := repo.List(ctx, ListFilter{MerchantID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "pi_2", items[0].ID)

	items, total, err = repo.List(ctx, ListFilter{State: string(payment.Captured)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
}

func TestPaymentRepositoryListPaginates(t *testing.T) {
	repo := NewPaymentRepository(newTestStore(t))
	ctx := context.Background()

	base := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, payment.Intent{
			ID:        "pi_" + string(rune('a'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	items, total, err := repo.List(ctx, ListFilter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 2)

	items, total, err = repo.List(ctx, ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)
}

func TestRefundRepositorySaveThenGetRoundTrips(t *testing.T) {
	repo := NewRefundRepository(newTestStore(t))
	ctx := context.Background()

	rf := refund.Refund{ID: "ref_1", PaymentID: "pi_1", Amount: 100, State: refund.Created, CreatedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, rf))

	got, err := repo.Get(ctx, "ref_1")
	require.NoError(t, err)
	assert.Equal(t, rf.PaymentID, got.PaymentID)
}

func TestRefundRepositoryListFiltersByPaymentID(t *testing.T) {
	repo := NewRefundRepository(newTestStore(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, refund.Refund{ID: "ref_1", PaymentID: "pi_1", CreatedAt: time.Now()}))
	require.NoError(t, repo.Save(ctx, refund.Refund{ID: "ref_2", PaymentID: "pi_2", CreatedAt: time.Now()}))

	items, total, err := repo.List(ctx, ListFilter{PaymentID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "ref_1", items[0].ID)
}

func TestRefundRepositoryGetMissingReturnsNotFound(t *testing.T) {
	repo := NewRefundRepository(newTestStore(t))

	_, err := repo.Get(context.Background(), "ref_missing")
	require.Error(t, err)
	assert.IsType(t, merrors.NotFoundError{}, err)
}

func TestDisputeRepositorySaveThenGetRoundTrips(t *testing.T) {
	repo := NewDisputeRepository(newTestStore(t))
	ctx := context.Background()

	d := dispute.Dispute{ID: "dsp_1", PaymentID: "pi_1", Amount: 500, State: dispute.Opened, CreatedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, d))

	got, err := repo.Get(ctx, "dsp_1")
	require.NoError(t, err)
	assert.Equal(t, d.PaymentID, got.PaymentID)
	assert.Equal(t, d.State, got.State)
}

func TestDisputeRepositoryGetMissingReturnsNotFound(t *testing.T) {
	repo := NewDisputeRepository(newTestStore(t))

	_, err := repo.Get(context.Background(), "dsp_missing")
	require.Error(t, err)
	assert.IsType(t, merrors.NotFoundError{}, err)
}
