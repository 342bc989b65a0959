package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/dashboard"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/reconcile"
)

func newDashboardCmd(a *app) *cobra.Command {
	var (
		watch           bool
		category, query string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show your dashboard (the admin view for administrators)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireUser(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.session.User().IsAdmin() {
				board := dashboard.NewAdmin(a.client, a.notify)
				return a.show(ctx, board, watch, func() {
					stats := board.Stats()
					fmt.Fprintf(out, "total %d  pending %d  approved %d  rejected %d\n",
						stats.Total, stats.Pending, stats.Approved, stats.Rejected)
					printBuckets(out, board.Buckets())
				})
			}
			var filter model.Category
			if category != "" {
				c, ok := model.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				filter = c
			}
			board := dashboard.NewUser(a.client, a.notify)
			board.SetFilter(filter, query)
			return a.show(ctx, board, watch, func() {
				printCounts(out, board.Counts())
				printBuckets(out, board.Visible())
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh every interval until interrupted")
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	cmd.Flags().StringVar(&query, "search", "", "match title or description")
	return cmd
}

func newReviewCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Show the admin review queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAdmin(ctx); err != nil {
				return err
			}
			queue := dashboard.NewReview(a.client, a.notify)
			out := cmd.OutOrStdout()
			return a.show(ctx, queue, watch, func() {
				fmt.Fprintf(out, "%d awaiting review\n", len(queue.Queue()))
				_ = printRecords(out, queue.Queue())
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh every interval until interrupted")
	return cmd
}

// show loads once, or keeps polling with --watch until the context ends. A
// section that failed to load is shown empty and only logged.
func (a *app) show(ctx context.Context, loader dashboard.Loader, watch bool, render func()) error {
	poller := dashboard.NewPoller(loader, a.cfg.RefreshInterval)
	poller.OnLoad(func(error) { render() })
	if err := poller.Refresh(ctx); err != nil {
		log.Printf("dashboard load: %v", err)
	}
	if !watch {
		return nil
	}
	err := poller.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printBuckets(w io.Writer, b reconcile.Buckets) {
	for _, section := range []struct {
		name    string
		records []model.Circular
	}{
		{"Pending", b.Pending},
		{"Approved", b.Approved},
		{"Rejected", b.Rejected},
	} {
		fmt.Fprintf(w, "\n%s (%d)\n", section.name, len(section.records))
		if len(section.records) > 0 {
			_ = printRecords(w, section.records)
		}
	}
}

func printCounts(w io.Writer, counts map[model.Category]int) {
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, string(c))
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-24s %d\n", name, counts[model.Category(name)])
	}
}
