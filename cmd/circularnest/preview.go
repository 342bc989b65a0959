package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/preview"
)

func newPreviewCmd(a *app) *cobra.Command {
	var (
		pending, direct, hold bool
		textPages             int
	)
	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Fetch a circular's PDF into a local preview file",
		Long: `preview downloads the PDF into a temporary file and prints where it is,
its page count and optionally the text of the first pages. With --direct the
signed storage URL is probed instead and printed for a browser to open.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			manager := preview.NewManager(preview.NewObjectURLs(a.cfg.PreviewDir),
				preview.WithTimeout(a.cfg.PreviewTimeout),
				preview.WithNotifier(a.notify),
			)
			defer manager.Close()

			var p *preview.Preview
			switch {
			case direct:
				link, err := a.storageURL(ctx, id)
				if err != nil {
					return err
				}
				p = manager.OpenDirect(ctx, id, link, a.fallback(id))
			case pending:
				p = manager.OpenBlob(ctx, id, func(ctx context.Context) (*apiclient.Blob, error) {
					return a.client.PendingFile(ctx, id)
				}, a.fallback(id))
			default:
				p = manager.OpenBlob(ctx, id, func(ctx context.Context) (*apiclient.Blob, error) {
					return a.client.DownloadCircular(ctx, id)
				}, a.fallback(id))
			}
			return a.showPreview(ctx, cmd.OutOrStdout(), p, textPages, hold)
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "preview a submission awaiting review")
	cmd.Flags().BoolVar(&direct, "direct", false, "open the signed storage URL instead of downloading")
	cmd.Flags().BoolVar(&hold, "hold", false, "keep the preview file until interrupted")
	cmd.Flags().IntVar(&textPages, "text", 0, "print the text of the first N pages")
	return cmd
}

func (a *app) fallback(id string) preview.Fallback {
	open, _ := a.client.ResolveURL(apiclient.CircularDownloadPath(id))
	return preview.Fallback{OpenURL: open, DownloadURL: open}
}

// storageURL finds the signed file URL of an approved circular in the storage
// listing.
func (a *app) storageURL(ctx context.Context, id string) (string, error) {
	list, err := a.client.ListStorageCirculars(ctx, apiclient.CircularQuery{})
	if err != nil {
		return "", err
	}
	for _, c := range list.Circulars {
		if c.ID == id && c.FileURL != "" {
			return a.client.ResolveURL(c.FileURL)
		}
	}
	return "", fmt.Errorf("no public file URL for %s", id)
}

func (a *app) showPreview(ctx context.Context, out io.Writer, p *preview.Preview, textPages int, hold bool) error {
	if !p.Ready() {
		fmt.Fprintf(out, "preview unavailable: %v\n", p.Fallback.Reason)
		fmt.Fprintf(out, "open in browser: %s\n", p.Fallback.OpenURL)
		return nil
	}
	if p.URL != "" {
		fmt.Fprintf(out, "open: %s\n", p.URL)
		return nil
	}
	fmt.Fprintf(out, "preview: %s\n", p.Path)
	if pages, err := p.Pages(); err == nil {
		fmt.Fprintf(out, "pages: %d\n", pages)
	}
	if textPages > 0 {
		text, err := p.Text(textPages)
		if err != nil {
			a.notify.Error("Could not read text from this PDF")
		} else {
			fmt.Fprintln(out, text)
		}
	}
	if hold {
		fmt.Fprintln(out, "press Ctrl+C to discard the preview")
		wait, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		<-wait.Done()
	}
	return nil
}
