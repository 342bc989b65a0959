package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/dashboard"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/upload"
)

func newSubmitCmd(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "submit <file.pdf>",
		Short: "Submit a PDF for admin review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireUser(cmd.Context()); err != nil {
				return err
			}
			return a.submit(cmd, upload.User, f.form, args[0])
		},
	}
	f.register(cmd, false)
	return cmd
}

func newGuestSubmitCmd(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "guest-submit <file.pdf>",
		Short: "Submit a PDF for review without an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.submit(cmd, upload.Guest, f.form, args[0])
		},
	}
	f.register(cmd, true)
	return cmd
}

func newPendingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Work with submissions awaiting review",
	}
	cmd.AddCommand(
		newPendingListCmd(a),
		newPendingMineCmd(a),
		newPendingDecisionCmd(a, model.StatusApproved),
		newPendingDecisionCmd(a, model.StatusRejected),
		newPendingDeleteCmd(a),
		newPendingFileCmd(a),
	)
	return cmd
}

func newPendingListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.client.ListPending(cmd.Context(), model.Status(status))
			if err != nil {
				a.notify.Error(apiclient.Message(err, "Failed to load pending uploads"))
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&status, "status", string(model.StatusPending), "pending, approved, rejected or empty for all")
	return cmd
}

func newPendingMineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.client.MySubmissions(cmd.Context())
			if err != nil {
				a.notify.Error(apiclient.Message(err, "Failed to load your submissions"))
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
}

func newPendingDecisionCmd(a *app, decision model.Status) *cobra.Command {
	var notes string
	use, short := "approve <id>", "Approve and publish a submission (admin)"
	if decision == model.StatusRejected {
		use, short = "reject <id>", "Reject a submission (admin)"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAdmin(ctx); err != nil {
				return err
			}
			return a.decide(ctx, cmd.OutOrStdout(), args[0], decision, notes)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	return cmd
}

func newPendingDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a submission (your own unless approved, any as admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.deleteRecord(cmd.Context(), args[0])
		},
	}
}

// decide loads the review queue and approves or rejects one submission
// through it, then reports what is left to review.
func (a *app) decide(ctx context.Context, out io.Writer, id string, decision model.Status, notes string) error {
	queue := dashboard.NewReview(a.client, a.notify)
	if err := queue.Load(ctx); err != nil {
		log.Printf("load review queue: %v", err)
	}
	var err error
	if decision == model.StatusApproved {
		err = queue.Approve(ctx, id, notes)
	} else {
		err = queue.Reject(ctx, id, notes)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d awaiting review\n", len(queue.Queue()))
	return nil
}

// deleteRecord deletes through the caller's dashboard, so the same local
// rules apply as on screen: admins may delete anything they can see, users
// only their own submissions that are not approved.
func (a *app) deleteRecord(ctx context.Context, id string) error {
	if err := a.requireUser(ctx); err != nil {
		return err
	}
	if a.session.User().IsAdmin() {
		board := dashboard.NewAdmin(a.client, a.notify)
		if err := board.Load(ctx); err != nil {
			log.Printf("load dashboard: %v", err)
		}
		return board.Delete(ctx, id)
	}
	board := dashboard.NewUser(a.client, a.notify)
	if err := board.Load(ctx); err != nil {
		log.Printf("load dashboard: %v", err)
	}
	return board.DeleteSubmission(ctx, id)
}

func newPendingFileCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "file <id>",
		Short: "Save the PDF of a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := a.client.PendingFile(cmd.Context(), args[0])
			if err != nil {
				a.notify.Error(apiclient.Message(err, "Failed to download PDF"))
				return err
			}
			path, err := saveBlob(blob, out, args[0]+".pdf")
			if err != nil {
				return err
			}
			a.notify.Success("Saved " + path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "destination file")
	return cmd
}
