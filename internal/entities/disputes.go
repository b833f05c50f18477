package entities

import (
	"context"
	"sort"

	"github.com/brackwater/payrail/internal/domain/dispute"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/store"
)

const disputesKey = "entities/disputes.json"

// DisputeRepository persists Dispute snapshots.
type DisputeRepository struct {
	store store.Store
}

// NewDisputeRepository builds a DisputeRepository backed by st.
func NewDisputeRepository(st store.Store) *DisputeRepository {
	return &DisputeRepository{store: st}
}

func (r *DisputeRepository) loadAll(ctx context.Context) (map[string]dispute.Dispute, error) {
	all := map[string]dispute.Dispute{}

	err := r.store.ReadJSON(ctx, disputesKey, &all)
	if err == store.ErrNotFound {
		return map[string]dispute.Dispute{}, nil
	}
	if err != nil {
		return nil, err
	}

	return all, nil
}

// Get returns the dispute identified by id, or merrors.NotFoundError.
func (r *DisputeRepository) Get(ctx context.Context, id string) (dispute.Dispute, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return dispute.Dispute{}, err
	}

	d, ok := all[id]
	if !ok {
		return dispute.Dispute{}, merrors.NotFoundError{EntityType: "dispute", ID: id}
	}

	return d, nil
}

// Save upserts d into the disputes snapshot.
func (r *DisputeRepository) Save(ctx context.Context, d dispute.Dispute) error {
	all, err := r.loadAll(ctx)
	if err != nil {
		return err
	}

	all[d.ID] = d

	return r.store.WriteJSON(ctx, disputesKey, all)
}

// List returns disputes matching filter, newest-created first, plus the
// total matching count before pagination.
func (r *DisputeRepository) List(ctx context.Context, f ListFilter) ([]dispute.Dispute, int, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dispute.Dispute, 0, len(all))

	for _, d := range all {
		if f.State != "" && string(d.State) != f.State {
			continue
		}

		if f.PaymentID != "" && d.PaymentID != f.PaymentID {
			continue
		}

		items = append(items, d)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	total := len(items)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	if f.Offset >= len(items) {
		return []dispute.Dispute{}, total, nil
	}

	end := f.Offset + limit
	if end > len(items) {
		end = len(items)
	}

	return items[f.Offset:end], total, nil
}
