package entities

import (
	"context"
	"sort"

	"github.com/brackwater/payrail/internal/domain/refund"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/store"
)

const refundsKey = "entities/refunds.json"

// RefundRepository persists Refund snapshots.
type RefundRepository struct {
	store store.Store
}

// NewRefundRepository builds a RefundRepository backed by st.
func NewRefundRepository(st store.Store) *RefundRepository {
	return &RefundRepository{store: st}
}

func (r *RefundRepository) loadAll(ctx context.Context) (map[string]refund.Refund, error) {
	all := map[string]refund.Refund{}

	err := r.store.ReadJSON(ctx, refundsKey, &all)
	if err == store.ErrNotFound {
		return map[string]refund.Refund{}, nil
	}
	if err != nil {
		return nil, err
	}

	return all, nil
}

// Get returns the refund identified by id, or merrors.NotFoundError.
func (r *RefundRepository) Get(ctx context.Context, id string) (refund.Refund, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return refund.Refund{}, err
	}

	rf, ok := all[id]
	if !ok {
		return refund.Refund{}, merrors.NotFoundError{EntityType: "refund", ID: id}
	}

	return rf, nil
}

// Save upserts rf into the refunds snapshot.
func (r *RefundRepository) Save(ctx context.Context, rf refund.Refund) error {
	all, err := r.loadAll(ctx)
	if err != nil {
		return err
	}

	all[rf.ID] = rf

	return r.store.WriteJSON(ctx, refundsKey, all)
}

// List returns refunds matching filter, newest-created first, plus the
// total matching count before pagination.
func (r *RefundRepository) List(ctx context.Context, f ListFilter) ([]refund.Refund, int, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := make([]refund.Refund, 0, len(all))

	for _, rf := range all {
		if f.State != "" && string(rf.State) != f.State {
			continue
		}

		if f.PaymentID != "" && rf.PaymentID != f.PaymentID {
			continue
		}

		items = append(items, rf)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	total := len(items)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	if f.Offset >= len(items) {
		return []refund.Refund{}, total, nil
	}

	end := f.Offset + limit
	if end > len(items) {
		end = len(items)
	}

	return items[f.Offset:end], total, nil
}
