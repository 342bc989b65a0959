package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dharsanguruparan/CircularNest/internal/mirror/ledger"
)

// ErrNotMirrored is returned for a circular whose copy is not complete.
var ErrNotMirrored = errors.New("circular is not mirrored yet")

// EntryReader looks up one ledger entry.
type EntryReader interface {
	Get(ctx context.Context, circularID string) (*ledger.Entry, error)
}

// RawArchive reads archived PDFs back.
type RawArchive interface {
	DownloadRaw(ctx context.Context, objectKey string) ([]byte, error)
	PresignRawURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// Archive serves completed copies out of the raw bucket.
type Archive struct {
	entries EntryReader
	raw     RawArchive
}

// NewArchive builds an Archive.
func NewArchive(entries EntryReader, raw RawArchive) *Archive {
	return &Archive{entries: entries, raw: raw}
}

func (a *Archive) rawKey(ctx context.Context, circularID string) (*ledger.Entry, string, error) {
	e, err := a.entries.Get(ctx, circularID)
	if err != nil {
		return nil, "", err
	}
	if e.Status != ledger.StatusCompleted || e.RawKey == nil {
		return nil, "", fmt.Errorf("%s is %s: %w", circularID, e.Status, ErrNotMirrored)
	}
	return e, *e.RawKey, nil
}

// Fetch returns the archived PDF of a circular together with its entry.
func (a *Archive) Fetch(ctx context.Context, circularID string) (*ledger.Entry, []byte, error) {
	e, key, err := a.rawKey(ctx, circularID)
	if err != nil {
		return nil, nil, err
	}
	data, err := a.raw.DownloadRaw(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return e, data, nil
}

// Link returns a presigned URL to the archived PDF.
func (a *Archive) Link(ctx context.Context, circularID string, expiry time.Duration) (string, error) {
	_, key, err := a.rawKey(ctx, circularID)
	if err != nil {
		return "", err
	}
	return a.raw.PresignRawURL(ctx, key, expiry)
}
