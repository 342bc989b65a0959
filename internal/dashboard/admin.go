package dashboard

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	"github.com/dharsanguruparan/CircularNest/internal/reconcile"
)

// AdminAPI is what the admin dashboard needs from the API client.
type AdminAPI interface {
	ListPending(ctx context.Context, status model.Status) ([]model.PendingUpload, error)
	ListCirculars(ctx context.Context, q apiclient.CircularQuery) (*apiclient.CircularList, error)
	DeletePending(ctx context.Context, id string) error
	DeleteCircular(ctx context.Context, id string) error
}

// Stats are the counters shown above the admin dashboard.
type Stats struct {
	Total    int
	Pending  int
	Approved int
	Rejected int
}

// Admin is the three-bucket view of every record.
type Admin struct {
	api    AdminAPI
	notify notify.Notifier

	mu      sync.RWMutex
	records []model.Circular
	buckets reconcile.Buckets
	loaded  bool
}

// NewAdmin creates an empty admin dashboard.
func NewAdmin(api AdminAPI, n notify.Notifier) *Admin {
	return &Admin{api: api, notify: orDiscard(n)}
}

// Load fetches the pending, approved and rejected sections concurrently and
// replaces the local state with their reconciliation. A failed section is
// shown empty; the joined error is returned for logging only.
func (a *Admin) Load(ctx context.Context) error {
	sets, err := fetchAll(ctx, a.notify,
		section{
			name:     "pending",
			fallback: "Failed to load pending uploads",
			fetch: func(ctx context.Context) ([]model.Circular, error) {
				return a.api.ListPending(ctx, model.StatusPending)
			},
		},
		section{
			name:     "approved",
			fallback: "Failed to load approved circulars",
			fetch: func(ctx context.Context) ([]model.Circular, error) {
				list, err := a.api.ListCirculars(ctx, apiclient.CircularQuery{Status: model.StatusApproved, Limit: ApprovedLimit})
				if err != nil {
					return nil, err
				}
				return list.Circulars, nil
			},
		},
		section{
			name:     "rejected",
			fallback: "Failed to load rejected circulars",
			fetch: func(ctx context.Context) ([]model.Circular, error) {
				list, err := a.api.ListCirculars(ctx, apiclient.CircularQuery{Status: model.StatusRejected})
				if err != nil {
					return nil, err
				}
				return list.Circulars, nil
			},
		},
	)
	records, buckets := reconcile.Reconcile(sets[0], sets[1], sets[2])

	a.mu.Lock()
	a.records = records
	a.buckets = buckets
	a.loaded = true
	a.mu.Unlock()
	return err
}

// Records returns the merged list in precedence order.
func (a *Admin) Records() []model.Circular {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return clone(a.records)
}

// Buckets returns the current partition.
func (a *Admin) Buckets() reconcile.Buckets {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneBuckets(a.buckets)
}

// Loaded reports whether at least one load has finished.
func (a *Admin) Loaded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loaded
}

// Stats counts the current buckets.
func (a *Admin) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Stats{
		Total:    len(a.records),
		Pending:  len(a.buckets.Pending),
		Approved: len(a.buckets.Approved),
		Rejected: len(a.buckets.Rejected),
	}
}

// Delete removes any record. Pending submissions go through the pending
// endpoint, everything else through the circulars endpoint. On success the
// record is dropped locally without a re-fetch.
func (a *Admin) Delete(ctx context.Context, id string) error {
	a.mu.RLock()
	rec, ok := find(a.records, id)
	a.mu.RUnlock()
	if !ok {
		return ErrUnknownRecord
	}

	var err error
	if rec.Bucket() == model.StatusPending {
		err = a.api.DeletePending(ctx, id)
	} else {
		err = a.api.DeleteCircular(ctx, id)
	}
	if err != nil {
		report(a.notify, err, "Failed to delete circular")
		return err
	}

	a.mu.Lock()
	a.records = reconcile.Without(a.records, id)
	a.buckets = reconcile.Partition(a.records)
	a.mu.Unlock()
	a.notify.Success("Circular deleted successfully")
	return nil
}
