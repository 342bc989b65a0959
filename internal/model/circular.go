// Package model contains the record types shared by the API client, the
// dashboards and the contract stub server.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status describes where a circular sits in the review lifecycle. The zero
// value is legacy data written before the field existed and counts as approved.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the three lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further review transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Category is one of the fixed departments a circular is filed under.
type Category string

const (
	CategoryEducation      Category = "Education"
	CategoryFireDepartment Category = "Fire Department"
	CategoryBuildingSafety Category = "PWD - Building Safety"
	CategoryTransport      Category = "Transport"
	CategoryLandRecord     Category = "Land Record"
	CategoryRevenue        Category = "Revenue"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryEducation,
	CategoryFireDepartment,
	CategoryBuildingSafety,
	CategoryTransport,
	CategoryLandRecord,
	CategoryRevenue,
}

// ParseCategory matches s against the known categories ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Circular is a published (or reviewed) notice. PendingUpload shares the same
// descriptive fields and adds guest contact details.
type Circular struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	OrderDate   string     `json:"orderDate,omitempty"`
	FileName    string     `json:"fileName"`
	FileSize    int64      `json:"fileSize"`
	FileURL     string     `json:"fileUrl,omitempty"`
	Status      Status     `json:"status,omitempty"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	ReviewedBy  string     `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	UploadedBy  *Uploader  `json:"uploadedBy,omitempty"`
	IsPublished bool       `json:"isPublished"`
	GuestName   string     `json:"guestName,omitempty"`
	GuestEmail  string     `json:"guestEmail,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PendingUpload is a submission that has not been published yet.
type PendingUpload = Circular

// Uploader identifies the submitting account. Older payloads send a bare id,
// newer ones a populated user object.
type Uploader struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Bucket returns the display bucket of c. A missing status is legacy data and
// is shown as approved.
func (c Circular) Bucket() Status {
	switch c.Status {
	case StatusPending:
		return StatusPending
	case StatusRejected:
		return StatusRejected
	default:
		return StatusApproved
	}
}

// UploaderID returns the submitting user's id or "" for guest submissions.
func (c Circular) UploaderID() string {
	if c.UploadedBy == nil {
		return ""
	}
	return c.UploadedBy.ID
}

// Submitter is the label shown in review queues.
func (c Circular) Submitter() string {
	if c.UploadedBy != nil && c.UploadedBy.Email != "" {
		return c.UploadedBy.Email
	}
	if c.GuestName != "" {
		label := c.GuestName + " (Guest)"
		if c.GuestEmail != "" {
			label += " - " + c.GuestEmail
		}
		return label
	}
	return "Guest User"
}

// wireCircular mirrors the loosely typed payloads the backend produces.
type wireCircular struct {
	MongoID     string          `json:"_id"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	OrderDate   string          `json:"orderDate"`
	FileName    string          `json:"fileName"`
	FileSize    json.RawMessage `json:"fileSize"`
	FileURL     string          `json:"fileUrl"`
	PDFURL      string          `json:"pdfUrl"`
	Status      Status          `json:"status"`
	ReviewNotes string          `json:"reviewNotes"`
	ReviewedBy  json.RawMessage `json:"reviewedBy"`
	ReviewedAt  *time.Time      `json:"reviewedAt"`
	UploadedBy  json.RawMessage `json:"uploadedBy"`
	IsPublished json.RawMessage `json:"isPublished"`
	GuestName   string          `json:"guestName"`
	GuestEmail  string          `json:"guestEmail"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// UnmarshalJSON accepts both the `_id` and `id` identifier shapes, string or
// numeric file sizes and plain or populated uploader references.
func (c *Circular) UnmarshalJSON(data []byte) error {
	var w wireCircular
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	size, err := parseFileSize(w.FileSize)
	if err != nil {
		return fmt.Errorf("fileSize: %w", err)
	}
	uploader, err := parseUploader(w.UploadedBy)
	if err != nil {
		return fmt.Errorf("uploadedBy: %w", err)
	}
	reviewer, err := parseUploader(w.ReviewedBy)
	if err != nil {
		return fmt.Errorf("reviewedBy: %w", err)
	}
	*c = Circular{
		ID:          firstNonEmpty(w.MongoID, w.ID),
		Title:       w.Title,
		Description: w.Description,
		Category:    Category(w.Category),
		OrderDate:   w.OrderDate,
		FileName:    w.FileName,
		FileSize:    size,
		FileURL:     firstNonEmpty(w.FileURL, w.PDFURL),
		Status:      w.Status,
		ReviewNotes: w.ReviewNotes,
		ReviewedAt:  w.ReviewedAt,
		UploadedBy:  uploader,
		IsPublished: parseLooseBool(w.IsPublished),
		GuestName:   w.GuestName,
		GuestEmail:  w.GuestEmail,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if reviewer != nil {
		c.ReviewedBy = firstNonEmpty(reviewer.Email, reviewer.ID)
	}
	if c.Category == "" {
		c.Category = CategoryEducation
	}
	return nil
}

// UnmarshalJSON accepts either a bare identifier or a user object.
func (u *Uploader) UnmarshalJSON(data []byte) error {
	parsed, err := parseUploader(data)
	if err != nil {
		return err
	}
	if parsed == nil {
		*u = Uploader{}
		return nil
	}
	*u = *parsed
	return nil
}

func parseUploader(raw json.RawMessage) (*Uploader, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, err
		}
		if id == "" {
			return nil, nil
		}
		return &Uploader{ID: id}, nil
	}
	var obj struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return &Uploader{ID: firstNonEmpty(obj.MongoID, obj.ID), Email: obj.Email}, nil
}

func parseFileSize(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Unparseable sizes render as "0 B" rather than failing the record.
			return 0, nil
		}
		return n, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseLooseBool(raw json.RawMessage) bool {
	switch strings.Trim(string(raw), `"`) {
	case "true", "1":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FormatFileSize renders a byte count the way listings display it.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes <= 0:
		return "0 B"
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}
