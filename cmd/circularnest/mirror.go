package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/mirror"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/database"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/ledger"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/s3storage"
)

func newMirrorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Back up the approved archive to object storage",
	}
	cmd.AddCommand(newMirrorEnqueueCmd(a), newMirrorStatusCmd(a), newMirrorFetchCmd(a))
	return cmd
}

func newMirrorEnqueueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue",
		Short: "Queue every approved circular that is not mirrored yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			if err := database.EnsureSchema(ctx, pool); err != nil {
				return err
			}
			client := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     a.cfg.RedisAddr,
				Password: a.cfg.RedisPassword,
				DB:       a.cfg.RedisDB,
			})
			defer client.Close()

			res, err := mirror.NewPlanner(a.client, ledger.New(pool), client).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d approved, %d queued, %d already mirrored or in progress\n",
				res.Seen, res.Enqueued, res.Skipped)
			return nil
		},
	}
}

func newMirrorStatusCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List mirror ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			entries, err := ledger.New(pool).List(ctx, ledger.Status(status))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CIRCULAR\tSTATUS\tPAGES\tATTEMPTS\tRAW KEY\tERROR")
			for _, e := range entries {
				raw, msg := "-", ""
				if e.RawKey != nil {
					raw = *e.RawKey
				}
				if e.ErrorMessage != nil {
					msg = *e.ErrorMessage
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", e.CircularID, e.Status, e.Pages, e.Attempts, raw, msg)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "queued, processing, completed or failed")
	return cmd
}

func newMirrorFetchCmd(a *app) *cobra.Command {
	var (
		out    string
		link   bool
		expiry time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch <id>",
		Short: "Save the archived copy of a circular, or print a presigned link to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()
			store, err := s3storage.New(a.cfg)
			if err != nil {
				return err
			}
			archive := mirror.NewArchive(ledger.New(pool), store)

			if link {
				u, err := archive.Link(ctx, args[0], expiry)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			}
			entry, data, err := archive.Fetch(ctx, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".pdf"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%q, %d pages)\n", out, entry.Title, entry.Pages)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "destination file")
	cmd.Flags().BoolVar(&link, "link", false, "print a presigned URL instead of downloading")
	cmd.Flags().DurationVar(&expiry, "expiry", 15*time.Minute, "lifetime of the presigned URL")
	return cmd
}
