// Package mirror plans the offline backup of the approved archive: it walks
// every approved circular and queues the ones the ledger has not seen.
package mirror

import (
	"context"
	"fmt"
	"log"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/ledger"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/queue"
	"github.com/dharsanguruparan/CircularNest/internal/model"
)

// PageSize is how many approved circulars are requested per page.
const PageSize = 100

// Lister pages through circulars.
type Lister interface {
	ListCirculars(ctx context.Context, q apiclient.CircularQuery) (*apiclient.CircularList, error)
}

// Claimer marks a circular as queued, reporting false when it already was.
// MarkFailed releases a claim so a later run picks the circular up again.
type Claimer interface {
	Claim(ctx context.Context, e ledger.Entry) (bool, error)
	MarkFailed(ctx context.Context, circularID, msg string) error
}

// Result summarises one planning run.
type Result struct {
	Seen     int
	Enqueued int
	Skipped  int
}

// Planner enqueues mirror tasks for approved circulars.
type Planner struct {
	lister  Lister
	claimer Claimer
	queue   queue.Enqueuer
}

// NewPlanner builds a Planner.
func NewPlanner(lister Lister, claimer Claimer, q queue.Enqueuer) *Planner {
	return &Planner{lister: lister, claimer: claimer, queue: q}
}

// Run pages through every approved circular and enqueues the unclaimed ones.
// Paging stops at the first short page, or at the reported total when the
// server sends one.
func (p *Planner) Run(ctx context.Context) (Result, error) {
	var res Result
	for page := 1; ; page++ {
		list, err := p.lister.ListCirculars(ctx, apiclient.CircularQuery{
			Status: model.StatusApproved,
			Limit:  PageSize,
			Page:   page,
		})
		if err != nil {
			return res, fmt.Errorf("list page %d: %w", page, err)
		}
		for _, c := range list.Circulars {
			res.Seen++
			if err := p.plan(ctx, c, &res); err != nil {
				return res, err
			}
		}
		if len(list.Circulars) < PageSize || (list.Total > 0 && res.Seen >= list.Total) {
			break
		}
	}
	log.Printf("mirror plan: %d seen, %d enqueued, %d already known", res.Seen, res.Enqueued, res.Skipped)
	return res, nil
}

func (p *Planner) plan(ctx context.Context, c model.Circular, res *Result) error {
	if c.Bucket() != model.StatusApproved {
		res.Skipped++
		return nil
	}
	claimed, err := p.claimer.Claim(ctx, ledger.Entry{
		CircularID: c.ID,
		Title:      c.Title,
		Category:   string(c.Category),
		FileName:   c.FileName,
	})
	if err != nil {
		return err
	}
	if !claimed {
		res.Skipped++
		return nil
	}
	err = queue.EnqueueMirror(ctx, p.queue, queue.MirrorPayload{
		CircularID: c.ID,
		Title:      c.Title,
		Category:   string(c.Category),
		FileName:   c.FileName,
	})
	if err != nil {
		if markErr := p.claimer.MarkFailed(ctx, c.ID, err.Error()); markErr != nil {
			log.Printf("mirror plan: release claim %s: %v", c.ID, markErr)
		}
		return fmt.Errorf("enqueue %s: %w", c.ID, err)
	}
	res.Enqueued++
	return nil
}
