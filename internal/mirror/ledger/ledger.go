// Package ledger records which circulars have been copied into the archive
// buckets and how each attempt went.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status is the lifecycle of one mirror entry.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ErrNotFound is returned when no entry exists for a circular.
var ErrNotFound = errors.New("mirror entry not found")

// Entry is a row in mirrored_circulars.
type Entry struct {
	CircularID   string    `json:"circularId"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	FileName     string    `json:"fileName"`
	RawKey       *string   `json:"rawKey,omitempty"`
	TextKey      *string   `json:"textKey,omitempty"`
	Pages        int       `json:"pages"`
	Status       Status    `json:"status"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Ledger wraps the SQL used by the enqueue command and the worker.
type Ledger struct {
	pool *pgxpool.Pool
}

// New constructs a Ledger.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Claim inserts a queued entry for a circular. It reports false when the
// circular is already queued, in progress or mirrored; failed entries are
// requeued.
func (l *Ledger) Claim(ctx context.Context, e Entry) (bool, error) {
	now := time.Now().UTC()
	var id string
	err := l.pool.QueryRow(ctx, `
		INSERT INTO mirrored_circulars (circular_id, title, category, file_name, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		ON CONFLICT (circular_id) DO UPDATE
			SET status = EXCLUDED.status, error_message = NULL, updated_at = EXCLUDED.updated_at
			WHERE mirrored_circulars.status = $7
		RETURNING circular_id
	`, e.CircularID, e.Title, e.Category, e.FileName, StatusQueued, now, StatusFailed).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", e.CircularID, err)
	}
	return true, nil
}

// Get returns the entry of one circular.
func (l *Ledger) Get(ctx context.Context, circularID string) (*Entry, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT circular_id, title, category, file_name, raw_key, text_key, pages, status, error_message, attempts, created_at, updated_at
		FROM mirrored_circulars WHERE circular_id=$1
	`, circularID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", circularID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select entry: %w", err)
	}
	return e, nil
}

// List returns entries with the given status (empty = all), newest first.
func (l *Ledger) List(ctx context.Context, status Status) ([]Entry, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT circular_id, title, category, file_name, raw_key, text_key, pages, status, error_message, attempts, created_at, updated_at
		FROM mirrored_circulars
		WHERE $1 = '' OR status = $1
		ORDER BY updated_at DESC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e        Entry
		rawKey   sql.NullString
		textKey  sql.NullString
		errorMsg sql.NullString
	)
	if err := row.Scan(&e.CircularID, &e.Title, &e.Category, &e.FileName, &rawKey, &textKey, &e.Pages, &e.Status, &errorMsg, &e.Attempts, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.RawKey = nullable(rawKey)
	e.TextKey = nullable(textKey)
	e.ErrorMessage = nullable(errorMsg)
	return &e, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// MarkProcessing sets the status to processing and counts the attempt.
func (l *Ledger) MarkProcessing(ctx context.Context, circularID string) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE mirrored_circulars
		SET status=$1, attempts = attempts + 1, error_message = NULL, updated_at=$2
		WHERE circular_id=$3
	`, StatusProcessing, time.Now().UTC(), circularID)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return nil
}

// MarkFailed stores the failure message.
func (l *Ledger) MarkFailed(ctx context.Context, circularID, msg string) error {
	return l.updateStatus(ctx, circularID, StatusFailed, nil, nil, nil, &msg)
}

// MarkCompleted stores the archive keys and page count.
func (l *Ledger) MarkCompleted(ctx context.Context, circularID, rawKey, textKey string, pages int) error {
	return l.updateStatus(ctx, circularID, StatusCompleted, &rawKey, &textKey, &pages, nil)
}

func (l *Ledger) updateStatus(ctx context.Context, circularID string, status Status, rawKey, textKey *string, pages *int, errorMsg *string) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE mirrored_circulars
		SET status=$1,
			raw_key = COALESCE($2, raw_key),
			text_key = COALESCE($3, text_key),
			pages = COALESCE($4, pages),
			error_message = $5,
			updated_at=$6
		WHERE circular_id=$7
	`, status, rawKey, textKey, pages, errorMsg, time.Now().UTC(), circularID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}
