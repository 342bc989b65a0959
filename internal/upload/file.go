// Package upload validates PDF submissions locally and sends them through one
// of the three submission endpoints.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
)

// MaxFileSize is the largest accepted PDF, 10 MiB.
const MaxFileSize int64 = 10 * 1024 * 1024

const sniffLen = 512

var (
	ErrNotPDF    = errors.New("invalid file type, only PDF files are allowed")
	ErrTooLarge  = errors.New("file size must be less than 10MB")
	ErrEmptyFile = errors.New("file is empty")
	ErrNoFile    = errors.New("no file selected")
)

// ValidateFile checks a file against the PDF type and 10 MiB size rules.
// Either the MIME type or the extension must say PDF.
func ValidateFile(name, contentType string, size int64) error {
	return validateFile(name, contentType, size, MaxFileSize)
}

func validateFile(name, contentType string, size, limit int64) error {
	if !isPDF(name, contentType) {
		return ErrNotPDF
	}
	if size > limit {
		return ErrTooLarge
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	return nil
}

func isPDF(name, contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	if strings.EqualFold(strings.TrimSpace(mediaType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// File is a local file selected for upload.
type File struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// OpenFile stats path and sniffs its MIME type from the first 512 bytes.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	sniff := make([]byte, sniffLen)
	n, err := io.ReadFull(f, sniff)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &File{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(sniff[:n]),
		Size:        info.Size(),
	}, nil
}

// Validate applies ValidateFile to f.
func (f *File) Validate() error {
	return ValidateFile(f.Name, f.ContentType, f.Size)
}

func (f *File) upload() apiclient.UploadFile {
	contentType := f.ContentType
	if isPDF(f.Name, "") {
		contentType = "application/pdf"
	}
	return apiclient.UploadFile{
		Name:        f.Name,
		ContentType: contentType,
		Size:        f.Size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(f.Path)
		},
	}
}
