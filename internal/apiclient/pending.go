package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

type pendingListEnvelope struct {
	PendingUploads []model.PendingUpload `json:"pendingUploads"`
}

type pendingEnvelope struct {
	PendingUpload *model.PendingUpload `json:"pendingUpload"`
	Circular      *model.Circular      `json:"circular"`
}

func (e pendingEnvelope) record() *model.PendingUpload {
	if e.PendingUpload != nil {
		return e.PendingUpload
	}
	return e.Circular
}

type reviewBody struct {
	ReviewNotes string `json:"reviewNotes,omitempty"`
}

// SubmitPending queues an authenticated submission for review.
func (c *Client) SubmitPending(ctx context.Context, fields map[string]string, file UploadFile) (*model.PendingUpload, error) {
	var out pendingEnvelope
	if err := c.postMultipart(ctx, "/api/pending/upload", fields, file, &out); err != nil {
		return nil, err
	}
	return out.record(), nil
}

// SubmitGuest queues an anonymous submission for review.
func (c *Client) SubmitGuest(ctx context.Context, fields map[string]string, file UploadFile) (*model.PendingUpload, error) {
	var out pendingEnvelope
	if err := c.postMultipart(ctx, "/api/pending/guest-upload", fields, file, &out); err != nil {
		return nil, err
	}
	return out.record(), nil
}

// ListPending lists submissions with the given status (empty = all).
func (c *Client) ListPending(ctx context.Context, status model.Status) ([]model.PendingUpload, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	var out pendingListEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/pending", q, nil, &out); err != nil {
		return nil, err
	}
	return out.PendingUploads, nil
}

// MySubmissions lists the caller's own submissions in every status.
func (c *Client) MySubmissions(ctx context.Context) ([]model.PendingUpload, error) {
	var out pendingListEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/pending/my-submissions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.PendingUploads, nil
}

// ApprovePending publishes a pending submission.
func (c *Client) ApprovePending(ctx context.Context, id, notes string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/pending/"+url.PathEscape(id)+"/approve", nil, reviewBody{notes}, nil)
}

// RejectPending rejects a pending submission.
func (c *Client) RejectPending(ctx context.Context, id, notes string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/pending/"+url.PathEscape(id)+"/reject", nil, reviewBody{notes}, nil)
}

// DeletePending removes a submission.
func (c *Client) DeletePending(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/pending/"+url.PathEscape(id), nil, nil, nil)
}

// PendingFilePath is the API path of a submission's PDF.
func PendingFilePath(id string) string {
	return "/api/pending/" + url.PathEscape(id) + "/file"
}

// PendingFile fetches the PDF of a submission before approval.
func (c *Client) PendingFile(ctx context.Context, id string) (*Blob, error) {
	return c.Fetch(ctx, PendingFilePath(id))
}
