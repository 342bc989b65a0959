// Package dashboard holds the list state behind the admin dashboard, the
// review queue and the user dashboard. Each view fetches its sections
// concurrently, reconciles them and keeps the result as a local cache that the
// next load replaces.
package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	"github.com/dharsanguruparan/CircularNest/internal/reconcile"
)

var (
	// ErrApprovedImmutable is returned when a non-admin tries to delete an
	// approved record.
	ErrApprovedImmutable = errors.New("approved circulars cannot be deleted")
	// ErrUnknownRecord is returned for an id that is not in the local list.
	ErrUnknownRecord = errors.New("record not in current list")
)

// ApprovedLimit is the page size used for the approved section.
const ApprovedLimit = 100

// section is one concurrent fetch of a load batch.
type section struct {
	name     string
	fallback string
	fetch    func(ctx context.Context) ([]model.Circular, error)
}

// fetchAll runs every section concurrently and waits for all of them. A failed
// section becomes an empty result set; its error is reported and joined into
// the returned error, which callers treat as informational.
func fetchAll(ctx context.Context, n notify.Notifier, sections ...section) ([]reconcile.ResultSet, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errList = make([]error, 0, len(sections))
		results = make([]reconcile.ResultSet, len(sections))
	)
	wg.Add(len(sections))
	for i := range sections {
		go func(j int) {
			defer wg.Done()
			records, err := sections[j].fetch(ctx)
			if err != nil {
				results[j] = reconcile.Failed()
				report(n, err, sections[j].fallback)
				log.Printf("dashboard: load %s: %v", sections[j].name, err)
				mu.Lock()
				errList = append(errList, err)
				mu.Unlock()
				return
			}
			results[j] = reconcile.Succeeded(records)
		}(i)
	}
	wg.Wait()
	return results, errors.Join(errList...)
}

// report turns an API error into a notification. Session expiry is handled
// by the client and is not repeated here.
func report(n notify.Notifier, err error, fallback string) {
	if errors.Is(err, apiclient.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return
	}
	n.Error(apiclient.Message(err, fallback))
}

func orDiscard(n notify.Notifier) notify.Notifier {
	if n == nil {
		return notify.Discard
	}
	return n
}

func find(records []model.Circular, id string) (model.Circular, bool) {
	for _, rec := range records {
		if rec.ID == id {
			return rec, true
		}
	}
	return model.Circular{}, false
}

func clone(records []model.Circular) []model.Circular {
	if records == nil {
		return nil
	}
	out := make([]model.Circular, len(records))
	copy(out, records)
	return out
}

func cloneBuckets(b reconcile.Buckets) reconcile.Buckets {
	return reconcile.Buckets{
		Pending:  clone(b.Pending),
		Approved: clone(b.Approved),
		Rejected: clone(b.Rejected),
	}
}
