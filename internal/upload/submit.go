package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/model"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
)

// Variant selects the submission endpoint.
type Variant int

const (
	// AdminDirect publishes immediately.
	AdminDirect Variant = iota
	// User queues a submission linked to the signed-in account.
	User
	// Guest queues an anonymous submission.
	Guest
)

func (v Variant) String() string {
	switch v {
	case AdminDirect:
		return "admin"
	case User:
		return "user"
	case Guest:
		return "guest"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// API is the subset of the client used for submissions.
type API interface {
	UploadCircular(ctx context.Context, fields map[string]string, file apiclient.UploadFile) (*model.Circular, error)
	SubmitPending(ctx context.Context, fields map[string]string, file apiclient.UploadFile) (*model.PendingUpload, error)
	SubmitGuest(ctx context.Context, fields map[string]string, file apiclient.UploadFile) (*model.PendingUpload, error)
}

// Submitter validates and sends submissions.
type Submitter struct {
	api      API
	notify   notify.Notifier
	validate *validator.Validate
	maxSize  int64
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithMaxFileSize lowers the size cap. Values above MaxFileSize are ignored.
func WithMaxFileSize(n int64) Option {
	return func(s *Submitter) {
		if n > 0 && n < MaxFileSize {
			s.maxSize = n
		}
	}
}

// NewSubmitter creates a Submitter.
func NewSubmitter(api API, n notify.Notifier, opts ...Option) *Submitter {
	if n == nil {
		n = notify.Discard
	}
	s := &Submitter{api: api, notify: n, validate: NewValidator(), maxSize: MaxFileSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates file and form and sends them to the endpoint for variant.
// A local validation failure is notified and returned without any request.
func (s *Submitter) Submit(ctx context.Context, variant Variant, form Form, file *File) (*model.Circular, error) {
	if file == nil {
		s.notify.Error("Please select a PDF file")
		return nil, ErrNoFile
	}
	if err := validateFile(file.Name, file.ContentType, file.Size, s.maxSize); err != nil {
		s.notify.Error(fileMessage(err))
		return nil, err
	}
	form = form.normalize(variant)
	if err := form.validate(s.validate); err != nil {
		s.notify.Error(err.Error())
		return nil, err
	}

	fields := form.fields(variant)
	var (
		rec *model.Circular
		err error
	)
	switch variant {
	case AdminDirect:
		rec, err = s.api.UploadCircular(ctx, fields, file.upload())
	case User:
		rec, err = s.api.SubmitPending(ctx, fields, file.upload())
	case Guest:
		rec, err = s.api.SubmitGuest(ctx, fields, file.upload())
	default:
		return nil, fmt.Errorf("unknown submission variant %s", variant)
	}
	if err != nil {
		if !errors.Is(err, apiclient.ErrUnauthorized) {
			s.notify.Error(apiclient.Message(err, "Failed to submit file for review"))
		}
		return nil, err
	}
	s.notify.Success(successMessage(variant))
	return rec, nil
}

func fileMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotPDF):
		return "Invalid file type. Only PDF files are allowed."
	case errors.Is(err, ErrTooLarge):
		return "File size must be less than 10MB"
	case errors.Is(err, ErrEmptyFile):
		return "The selected file is empty"
	}
	return err.Error()
}

func successMessage(v Variant) string {
	switch v {
	case AdminDirect:
		return "Circular uploaded successfully"
	case Guest:
		return "File submitted for review as guest. Admin will review and approve soon."
	default:
		return "File submitted for review. Admin will review and approve soon."
	}
}
