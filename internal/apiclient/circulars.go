package apiclient

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strconv"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

// CircularQuery filters listing calls. Zero values are omitted.
type CircularQuery struct {
	Category model.Category
	Status   model.Status
	Limit    int
	Page     int
	UserID   string
}

func (q CircularQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.UserID != "" {
		v.Set("userId", q.UserID)
	}
	return v
}

// CircularList is one page of circulars.
type CircularList struct {
	Circulars []model.Circular `json:"circulars"`
	Total     int              `json:"total"`
}

type circularEnvelope struct {
	Circular *model.Circular `json:"circular"`
}

// CircularUpdate is a partial update; nil fields are not sent.
type CircularUpdate struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Category    *model.Category `json:"category,omitempty"`
	OrderDate   *string         `json:"orderDate,omitempty"`
	IsPublished *bool           `json:"isPublished,omitempty"`
	Status      *model.Status   `json:"status,omitempty"`
}

// ListCirculars queries /api/circulars.
func (c *Client) ListCirculars(ctx context.Context, q CircularQuery) (*CircularList, error) {
	var out CircularList
	if err := c.doJSON(ctx, http.MethodGet, "/api/circulars", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListStorageCirculars queries the /circulars variant, whose records carry
// directly usable file URLs.
func (c *Client) ListStorageCirculars(ctx context.Context, q CircularQuery) (*CircularList, error) {
	var out CircularList
	if err := c.doJSON(ctx, http.MethodGet, "/circulars", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCircular fetches one circular.
func (c *Client) GetCircular(ctx context.Context, id string) (*model.Circular, error) {
	var out circularEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/circulars/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Circular == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "circular not found"}
	}
	return out.Circular, nil
}

// UpdateCircular applies a partial update.
func (c *Client) UpdateCircular(ctx context.Context, id string, update CircularUpdate) (*model.Circular, error) {
	var out circularEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/api/circulars/"+url.PathEscape(id), nil, update, &out); err != nil {
		return nil, err
	}
	return out.Circular, nil
}

// UpdateCircularStatus performs the admin status transition.
func (c *Client) UpdateCircularStatus(ctx context.Context, id string, status model.Status, notes string) (*model.Circular, error) {
	body := struct {
		Status      model.Status `json:"status"`
		ReviewNotes string       `json:"reviewNotes,omitempty"`
	}{status, notes}
	var out circularEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/api/circulars/"+url.PathEscape(id)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return out.Circular, nil
}

// DeleteCircular removes a circular.
func (c *Client) DeleteCircular(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/circulars/"+url.PathEscape(id), nil, nil, nil)
}

// CircularDownloadPath is the API path of the binary PDF stream.
func CircularDownloadPath(id string) string {
	return "/api/circulars/" + url.PathEscape(id) + "/download"
}

// DownloadCircular fetches the PDF of a circular.
func (c *Client) DownloadCircular(ctx context.Context, id string) (*Blob, error) {
	return c.Fetch(ctx, CircularDownloadPath(id))
}

// UploadFile is the file part of a multipart submission.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadCircular creates a circular directly (admin path).
func (c *Client) UploadCircular(ctx context.Context, fields map[string]string, file UploadFile) (*model.Circular, error) {
	var out circularEnvelope
	if err := c.postMultipart(ctx, "/api/circulars/upload", fields, file, &out); err != nil {
		return nil, err
	}
	return out.Circular, nil
}

// postMultipart streams the form through a pipe so the file is never held in
// memory twice.
func (c *Client) postMultipart(ctx context.Context, path string, fields map[string]string, file UploadFile, out any) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer src.Close()
		pw.CloseWithError(writeForm(mw, fields, file, src))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, pr)
	if err != nil {
		pr.CloseWithError(err)
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	err = c.decode(req, out)
	pr.Close()
	return err
}

func writeForm(mw *multipart.Writer, fields map[string]string, file UploadFile, src io.Reader) error {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := mw.WriteField(key, fields[key]); err != nil {
			return err
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}
