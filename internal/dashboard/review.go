package dashboard

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	"github.com/dharsanguruparan/CircularNest/internal/reconcile"
)

// ReviewAPI is what the review queue needs from the API client.
type ReviewAPI interface {
	ListPending(ctx context.Context, status model.Status) ([]model.PendingUpload, error)
	ApprovePending(ctx context.Context, id, notes string) error
	RejectPending(ctx context.Context, id, notes string) error
}

// Review is the admin queue of submissions waiting for a decision.
type Review struct {
	api    ReviewAPI
	notify notify.Notifier

	mu    sync.RWMutex
	queue []model.PendingUpload
}

// NewReview creates an empty review queue.
func NewReview(api ReviewAPI, n notify.Notifier) *Review {
	return &Review{api: api, notify: orDiscard(n)}
}

// Load replaces the queue with the server's pending submissions. On failure
// the queue is emptied.
func (r *Review) Load(ctx context.Context) error {
	sets, err := fetchAll(ctx, r.notify, section{
		name:     "review queue",
		fallback: "Failed to load pending uploads",
		fetch: func(ctx context.Context) ([]model.Circular, error) {
			return r.api.ListPending(ctx, model.StatusPending)
		},
	})
	_, buckets := reconcile.Reconcile(sets[0], reconcile.Failed(), reconcile.Failed())

	r.mu.Lock()
	r.queue = buckets.Pending
	r.mu.Unlock()
	return err
}

// Queue returns the submissions still awaiting review.
func (r *Review) Queue() []model.PendingUpload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.queue)
}

// Approve publishes a submission and drops it from the local queue once the
// server confirms. On failure the record stays queued.
func (r *Review) Approve(ctx context.Context, id, notes string) error {
	if err := r.api.ApprovePending(ctx, id, notes); err != nil {
		report(r.notify, err, "Failed to approve circular")
		return err
	}
	r.remove(id)
	r.notify.Success("Circular approved and published")
	return nil
}

// Reject rejects a submission. Notes are optional.
func (r *Review) Reject(ctx context.Context, id, notes string) error {
	if err := r.api.RejectPending(ctx, id, notes); err != nil {
		report(r.notify, err, "Failed to reject circular")
		return err
	}
	r.remove(id)
	r.notify.Success("Circular rejected")
	return nil
}

func (r *Review) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = reconcile.Without(r.queue, id)
}
