// Package worker consumes mirror tasks: it downloads an approved circular
// through the API, extracts its text and archives both to object storage.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/queue"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/s3storage"
	pdfutil "github.com/dharsanguruparan/CircularNest/internal/pdf"
)

// Ledger tracks mirror progress per circular.
type Ledger interface {
	MarkProcessing(ctx context.Context, circularID string) error
	MarkFailed(ctx context.Context, circularID, msg string) error
	MarkCompleted(ctx context.Context, circularID, rawKey, textKey string, pages int) error
}

// Archive is where the PDF and its text end up.
type Archive interface {
	UploadRaw(ctx context.Context, objectKey string, data []byte, title string) error
	UploadText(ctx context.Context, objectKey string, text string) error
}

// Source downloads a circular's PDF.
type Source interface {
	DownloadCircular(ctx context.Context, id string) (*apiclient.Blob, error)
}

type extractFunc func(data []byte) (text string, pages int, err error)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	ledger  Ledger
	archive Archive
	source  Source
	extract extractFunc
}

// NewProcessor constructs a worker processor.
func NewProcessor(ledger Ledger, archive Archive, source Source) *Processor {
	return &Processor{ledger: ledger, archive: archive, source: source, extract: extractPDF}
}

func extractPDF(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	doc, err := pdfutil.Open(data)
	if err != nil {
		return "", 0, err
	}
	text, err = doc.Text(0)
	if err != nil {
		return "", 0, err
	}
	return text, doc.PageCount(), nil
}

// Handler registers the mirror task handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.MirrorCircularTask, p.HandleMirror)
	return mux
}

// HandleMirror processes one mirror task. A missing PDF or one that cannot
// be parsed is recorded as failed and not retried.
func (p *Processor) HandleMirror(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseMirrorPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	failure := func(err error) error {
		log.Printf("mirror failed for %s: %v", payload.CircularID, err)
		if markErr := p.ledger.MarkFailed(ctx, payload.CircularID, err.Error()); markErr != nil {
			log.Printf("record failure for %s: %v", payload.CircularID, markErr)
		}
		return err
	}
	if err := p.ledger.MarkProcessing(ctx, payload.CircularID); err != nil {
		return failure(err)
	}
	blob, err := p.source.DownloadCircular(ctx, payload.CircularID)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return failure(fmt.Errorf("%w: %v", asynq.SkipRetry, err))
		}
		return failure(err)
	}
	text, pages, err := p.extract(blob.Data)
	if err != nil {
		return failure(fmt.Errorf("%w: extract text: %v", asynq.SkipRetry, err))
	}
	rawKey := s3storage.RawKey(payload.Category, payload.CircularID)
	if err := p.archive.UploadRaw(ctx, rawKey, blob.Data, payload.Title); err != nil {
		return failure(err)
	}
	textKey := s3storage.TextKey(rawKey)
	if err := p.archive.UploadText(ctx, textKey, text); err != nil {
		return failure(err)
	}
	if err := p.ledger.MarkCompleted(ctx, payload.CircularID, rawKey, textKey, pages); err != nil {
		return failure(err)
	}
	log.Printf("circular %s mirrored (%d pages, %d bytes of text)", payload.CircularID, pages, len(text))
	return nil
}
