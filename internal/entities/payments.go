// Package entities persists the payment/refund/dispute snapshots the
// orchestrator mutates, grounded on api_gateway/payments.py's
// _load_payments/_save_payment pattern: one JSON blob per family,
// keyed by id, replaced atomically through the Durable Store.
package entities

import (
	"context"
	"sort"

	"github.com/brackwater/payrail/internal/domain/payment"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/store"
)

const paymentsKey = "entities/payments.json"

// PaymentRepository persists PaymentIntent snapshots.
type PaymentRepository struct {
	store store.Store
}

// NewPaymentRepository builds a PaymentRepository backed by st.
func NewPaymentRepository(st store.Store) *PaymentRepository {
	return &PaymentRepository{store: st}
}

func (r *PaymentRepository) loadAll(ctx context.Context) (map[string]payment.Intent, error) {
	all := map[string]payment.Intent{}

	err := r.store.ReadJSON(ctx, paymentsKey, &all)
	if err == store.ErrNotFound {
		return map[string]payment.Intent{}, nil
	}
	if err != nil {
		return nil, err
	}

	return all, nil
}

// Get returns the payment identified by id, or merrors.NotFoundError.
func (r *PaymentRepository) Get(ctx context.Context, id string) (payment.Intent, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return payment.Intent{}, err
	}

	p, ok := all[id]
	if !ok {
		return payment.Intent{}, merrors.NotFoundError{EntityType: "payment", ID: id}
	}

	return p, nil
}

// Save upserts p into the payments snapshot.
func (r *PaymentRepository) Save(ctx context.Context, p payment.Intent) error {
	all, err := r.loadAll(ctx)
	if err != nil {
		return err
	}

	all[p.ID] = p

	return r.store.WriteJSON(ctx, paymentsKey, all)
}

// ListFilter narrows List by state plus a family-specific foreign key
// (merchant for payments, payment for refunds/disputes).
type ListFilter struct {
	State      string
	MerchantID string
	PaymentID  string
	Limit      int
	Offset     int
}

// List returns payments matching filter, newest-created first, plus the
// total matching count before pagination.
func (r *PaymentRepository) List(ctx context.Context, f ListFilter) ([]payment.Intent, int, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	items := make([]payment.Intent, 0, len(all))

	for _, p := range all {
		if f.State != "" && string(p.State) != f.State {
			continue
		}

		if f.MerchantID != "" && p.MerchantID != f.MerchantID {
			continue
		}

		items = append(items, p)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	total := len(items)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	if f.Offset >= len(items) {
		return []payment.Intent{}, total, nil
	}

	end := f.Offset + limit
	if end > len(items) {
		end = len(items)
	}

	return items[f.Offset:end], total, nil
}
