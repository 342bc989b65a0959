package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecords(w io.Writer, records []model.Circular) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tTITLE\tSIZE\tSUBMITTER\tCREATED")
	for _, r := range records {
		created := "-"
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Bucket(), r.Category, r.Title, model.FormatFileSize(r.FileSize), r.Submitter(), created)
	}
	return tw.Flush()
}

// saveBlob writes b to out, or to the served file name in the working
// directory when out is empty.
func saveBlob(b *apiclient.Blob, out, fallbackName string) (string, error) {
	if out == "" {
		out = filepath.Base(b.FileName)
		if out == "" || out == "." || out == "/" {
			out = fallbackName
		}
	}
	if err := os.WriteFile(out, b.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
