package dashboard

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	"github.com/dharsanguruparan/CircularNest/internal/reconcile"
)

// UserAPI is what the user dashboard needs from the API client.
type UserAPI interface {
	ListCirculars(ctx context.Context, q apiclient.CircularQuery) (*apiclient.CircularList, error)
	MySubmissions(ctx context.Context) ([]model.PendingUpload, error)
	DeletePending(ctx context.Context, id string) error
}

// User is the registered user's view: the approved archive plus their own
// submissions in every state.
type User struct {
	api    UserAPI
	notify notify.Notifier

	mu       sync.RWMutex
	records  []model.Circular
	category model.Category
	query    string
}

// NewUser creates an empty user dashboard.
func NewUser(api UserAPI, n notify.Notifier) *User {
	return &User{api: api, notify: orDiscard(n)}
}

// Load fetches the caller's submissions and the approved archive together.
// Submissions come first so their copy of a record wins.
func (u *User) Load(ctx context.Context) error {
	sets, err := fetchAll(ctx, u.notify,
		section{
			name:     "my submissions",
			fallback: "Failed to load your submissions",
			fetch:    u.api.MySubmissions,
		},
		section{
			name:     "approved",
			fallback: "Failed to load circulars",
			fetch: func(ctx context.Context) ([]model.Circular, error) {
				list, err := u.api.ListCirculars(ctx, apiclient.CircularQuery{Status: model.StatusApproved, Limit: ApprovedLimit})
				if err != nil {
					return nil, err
				}
				return list.Circulars, nil
			},
		},
	)
	records := reconcile.Merge(sets[0], sets[1], reconcile.Failed())

	u.mu.Lock()
	u.records = records
	u.mu.Unlock()
	return err
}

// SetFilter narrows Visible to one category (empty = all) and a search query.
func (u *User) SetFilter(category model.Category, query string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.category = category
	u.query = query
}

// Visible returns the filtered records split into buckets.
func (u *User) Visible() reconcile.Buckets {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return reconcile.Partition(reconcile.Filter(u.records, u.category, u.query))
}

// Counts tallies the approved archive per category, ignoring the filter.
func (u *User) Counts() map[model.Category]int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return reconcile.CountByCategory(reconcile.Partition(u.records).Approved)
}

// DeleteSubmission withdraws one of the caller's submissions. Approved
// records are refused locally without a request.
func (u *User) DeleteSubmission(ctx context.Context, id string) error {
	u.mu.RLock()
	rec, ok := find(u.records, id)
	u.mu.RUnlock()
	if !ok {
		return ErrUnknownRecord
	}
	if rec.Bucket() == model.StatusApproved {
		u.notify.Error("Cannot delete approved circulars. Only administrators can manage published circulars.")
		return ErrApprovedImmutable
	}
	if err := u.api.DeletePending(ctx, id); err != nil {
		report(u.notify, err, "Failed to delete submission")
		return err
	}

	u.mu.Lock()
	u.records = reconcile.Without(u.records, id)
	u.mu.Unlock()
	u.notify.Success("Submission deleted successfully")
	return nil
}
