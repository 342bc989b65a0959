package pdfutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned for data without a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

var header = []byte("%PDF-")

// HasHeader reports whether data starts like a PDF file.
func HasHeader(data []byte) bool {
	return bytes.HasPrefix(data, header)
}

// Document is a parsed PDF held in memory.
type Document struct {
	r *pdf.Reader
}

// Open parses PDF bytes.
func Open(data []byte) (doc *Document, err error) {
	if !HasHeader(data) {
		return nil, ErrNotPDF
	}
	// ledongthuc/pdf panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("new pdf reader: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("new pdf reader: %w", err)
	}
	return &Document{r: r}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.r.NumPage()
}

// Text returns the plain text of the first maxPages pages, all pages when
// maxPages <= 0. Pages are separated by a newline.
func (d *Document) Text(maxPages int) (string, error) {
	var builder strings.Builder
	total := d.r.NumPage()
	if maxPages > 0 && maxPages < total {
		total = maxPages
	}
	for page := 1; page <= total; page++ {
		p := d.r.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// ExtractText returns the text of every page of a PDF.
func ExtractText(data []byte) (string, error) {
	doc, err := Open(data)
	if err != nil {
		return "", err
	}
	return doc.Text(0)
}

// ExtractFromReader drains r and extracts its text.
func ExtractFromReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return ExtractText(data)
}

// PageCount parses data and returns its page count.
func PageCount(data []byte) (int, error) {
	doc, err := Open(data)
	if err != nil {
		return 0, err
	}
	return doc.PageCount(), nil
}
