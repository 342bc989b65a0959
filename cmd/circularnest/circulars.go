package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/upload"
)

func newCircularsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circulars",
		Short: "Browse and manage published circulars",
	}
	cmd.AddCommand(
		newCircularsListCmd(a),
		newCircularsGetCmd(a),
		newCircularsDownloadCmd(a),
		newCircularsUpdateCmd(a),
		newCircularsDeleteCmd(a),
		newCircularsStatusCmd(a),
		newCircularsUploadCmd(a),
	)
	return cmd
}

func newCircularsListCmd(a *app) *cobra.Command {
	var (
		category, status, userID string
		limit, page              int
		storage, asJSON          bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List circulars (approved only unless signed in as admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := apiclient.CircularQuery{Status: model.Status(status), Limit: limit, Page: page, UserID: userID}
			if category != "" {
				c, ok := model.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				q.Category = c
			}
			list := a.client.ListCirculars
			if storage {
				list = a.client.ListStorageCirculars
			}
			res, err := list(cmd.Context(), q)
			if err != nil {
				a.notify.Error(apiclient.Message(err, "Failed to load circulars"))
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			if err := printRecords(cmd.OutOrStdout(), res.Circulars); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(res.Circulars), res.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&status, "status", "", "pending, approved or rejected (admin)")
	cmd.Flags().StringVar(&userID, "user", "", "only circulars uploaded by this user id")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&page, "page", 0, "page number, starting at 1")
	cmd.Flags().BoolVar(&storage, "storage", false, "use the storage listing with direct file URLs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newCircularsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one circular",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client.GetCircular(cmd.Context(), args[0])
			if err != nil {
				a.notify.Error(apiclient.Message(err, "Circular not found"))
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
}

func newCircularsDownloadCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save the PDF of a circular",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := a.client.DownloadCircular(cmd.Context(), args[0])
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

func newCircularsUpdateCmd(a *app) *cobra.Command {
	var (
		title, description, category, orderDate string
		published                               bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit the details of a circular (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAdmin(ctx); err != nil {
				return err
			}
			flags := cmd.Flags()
			var update apiclient.CircularUpdate
			if flags.Changed("title") {
				update.Title = &title
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("category") {
				c, ok := model.ParseCategory(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				update.Category = &c
			}
			if flags.Changed("order-date") {
				update.OrderDate = &orderDate
			}
			if flags.Changed("published") {
				update.IsPublished = &published
			}
			if update == (apiclient.CircularUpdate{}) {
				return fmt.Errorf("nothing to update")
			}
			c, err := a.client.UpdateCircular(ctx, args[0], update)
			if err != nil {
				a.notify.Error(apiclient.Message(err, "Failed to update circular"))
				return err
			}
			a.notify.Success("Circular updated")
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().StringVar(&orderDate, "order-date", "", "new order date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&published, "published", false, "publish or unpublish")
	return cmd
}

func newCircularsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a circular (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireAdmin(ctx); err != nil {
				return err
			}
			return a.deleteRecord(ctx, args[0])
		},
	}
}

func newCircularsStatusCmd(a *app) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "status <id> <approved|rejected>",
		Short: "Change the review status of a circular (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := model.Status(args[1])
			if !status.Terminal() {
				return fmt.Errorf("status must be approved or rejected")
			}
			c, err := a.client.UpdateCircularStatus(cmd.Context(), args[0], status, notes)
			if err != nil {
				a.notify.Error(apiclient.Message(err, "Failed to update status"))
				return err
			}
			a.notify.Success(fmt.Sprintf("Circular %s", c.Bucket()))
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	return cmd
}

type formFlags struct {
	form upload.Form
}

func (f *formFlags) register(cmd *cobra.Command, guest bool) {
	cmd.Flags().StringVar(&f.form.Title, "title", "", "title (defaults to Untitled)")
	cmd.Flags().StringVar(&f.form.Description, "description", "", "description")
	cmd.Flags().StringVar((*string)(&f.form.Category), "category", string(model.CategoryEducation), "category")
	cmd.Flags().StringVar(&f.form.OrderDate, "order-date", "", "order date, YYYY-MM-DD")
	if guest {
		cmd.Flags().StringVar(&f.form.GuestName, "name", "", "your name (defaults to Anonymous)")
		cmd.Flags().StringVar(&f.form.GuestEmail, "guest-email", "", "contact email")
	}
}

func (a *app) submit(cmd *cobra.Command, variant upload.Variant, form upload.Form, path string) error {
	file, err := upload.OpenFile(path)
	if err != nil {
		return err
	}
	submitter := upload.NewSubmitter(a.client, a.notify, upload.WithMaxFileSize(a.cfg.MaxFileSize))
	rec, err := submitter.Submit(cmd.Context(), variant, form, file)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
	return nil
}

func newCircularsUploadCmd(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Publish a PDF directly (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(cmd.Context()); err != nil {
				return err
			}
			return a.submit(cmd, upload.AdminDirect, f.form, args[0])
		},
	}
	f.register(cmd, false)
	return cmd
}
