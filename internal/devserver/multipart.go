package devserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

const maxFieldBytes = 64 << 10

// inputError carries a message meant for the submitting user.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func badInput(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

var (
	errNoFile    = badInput("No file uploaded")
	errEmptyFile = badInput("Uploaded file is empty")
	errNotPDF    = badInput("Only PDF files are allowed")
)

type submission struct {
	fields map[string]string
	file   *storedFile
}

// readSubmission streams a multipart body, collecting text fields and the
// first "file" part. The file is re-validated here regardless of what the
// client checked: sniffed type must be PDF and size within the limit.
func (s *Server) readSubmission(c *gin.Context) (*submission, error) {
	r := c.Request
	r.Body = http.MaxBytesReader(c.Writer, r.Body, s.cfg.MaxFileSize+maxFieldBytes*8)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badInput("Expecting a multipart form")
	}
	sub := &submission{fields: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if tooLarge(err) {
				return nil, s.sizeError()
			}
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		if part.FormName() == "file" && sub.file == nil {
			file, err := s.persistPart(part)
			if err != nil {
				return nil, err
			}
			sub.file = file
			continue
		}
		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read field %s: %w", part.FormName(), err)
		}
		sub.fields[part.FormName()] = string(value)
	}
	if sub.file == nil {
		return nil, errNoFile
	}
	return sub, nil
}

func (s *Server) persistPart(part *multipart.Part) (*storedFile, error) {
	defer part.Close()
	var data bytes.Buffer
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > s.cfg.MaxFileSize {
				return nil, s.sizeError()
			}
			data.Write(buf[:n])
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if tooLarge(readErr) {
				return nil, s.sizeError()
			}
			return nil, fmt.Errorf("read file: %w", readErr)
		}
	}
	if written == 0 {
		return nil, errEmptyFile
	}
	sniff := data.Bytes()
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	if contentType := http.DetectContentType(sniff); contentType != "application/pdf" {
		return nil, errNotPDF
	}
	name := part.FileName()
	if name == "" {
		name = "circular.pdf"
	}
	return &storedFile{
		Name:        name,
		ContentType: "application/pdf",
		Data:        data.Bytes(),
		ModTime:     time.Now().UTC(),
	}, nil
}

func (s *Server) sizeError() error {
	return badInput("File size must be less than %dMB", s.cfg.MaxFileSize>>20)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// newRecord builds a record from submitted fields, applying the same
// defaults as the client.
func (s *Server) newRecord(id string, fields map[string]string, file *storedFile) (*model.Circular, error) {
	rec := &model.Circular{
		ID:          id,
		Title:       strings.TrimSpace(fields["title"]),
		Description: strings.TrimSpace(fields["description"]),
		Category:    model.CategoryEducation,
		OrderDate:   strings.TrimSpace(fields["orderDate"]),
		FileName:    file.Name,
		FileSize:    int64(len(file.Data)),
	}
	if rec.Title == "" {
		rec.Title = "Untitled"
	}
	if raw := strings.TrimSpace(fields["category"]); raw != "" {
		category, ok := model.ParseCategory(raw)
		if !ok {
			return nil, badInput("Invalid category %q", raw)
		}
		rec.Category = category
	}
	if rec.OrderDate != "" {
		if _, err := time.Parse("2006-01-02", rec.OrderDate); err != nil {
			return nil, badInput("orderDate must be YYYY-MM-DD")
		}
	}
	return rec, nil
}
