package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrAlreadyDecided = errors.New("submission already reviewed")
)

type account struct {
	user model.User
	hash []byte
}

// storedFile is the PDF behind a record.
type storedFile struct {
	Name        string
	ContentType string
	Data        []byte
	ModTime     time.Time
}

// MemoryStore keeps users, circulars, submissions and their files in maps
// guarded by one RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*account
	emails    map[string]string
	circulars map[string]*model.Circular
	pending   map[string]*model.PendingUpload
	files     map[string]*storedFile
	now       func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*account),
		emails:    make(map[string]string),
		circulars: make(map[string]*model.Circular),
		pending:   make(map[string]*model.PendingUpload),
		files:     make(map[string]*storedFile),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts an account. Emails are unique ignoring case.
func (m *MemoryStore) CreateUser(u model.User, hash []byte) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := emailKey(u.Email)
	if _, taken := m.emails[key]; taken {
		return model.User{}, ErrEmailTaken
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	m.users[u.ID] = &account{user: u, hash: hash}
	m.emails[key] = u.ID
	return u, nil
}

// Credentials returns the account for email along with its password hash.
func (m *MemoryStore) Credentials(email string) (model.User, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[emailKey(email)]
	if !ok {
		return model.User{}, nil, ErrNotFound
	}
	acc := m.users[id]
	return acc.user, acc.hash, nil
}

// User returns an account by id.
func (m *MemoryStore) User(id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return acc.user, nil
}

// UpdateProfile applies the set fields of in.
func (m *MemoryStore) UpdateProfile(id string, in model.Institution) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	in.Apply(&acc.user)
	return acc.user, nil
}

// SaveCircular inserts or replaces a circular and its file.
func (m *MemoryStore) SaveCircular(c *model.Circular, file *storedFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamp(c)
	m.circulars[c.ID] = c
	if file != nil {
		m.files[c.ID] = file
	}
}

// SavePending inserts or replaces a submission and its file.
func (m *MemoryStore) SavePending(p *model.PendingUpload, file *storedFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamp(p)
	m.pending[p.ID] = p
	if file != nil {
		m.files[p.ID] = file
	}
}

func (m *MemoryStore) stamp(c *model.Circular) {
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// Circular returns a copy of one circular.
func (m *MemoryStore) Circular(id string) (model.Circular, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.circulars[id]
	if !ok {
		return model.Circular{}, ErrNotFound
	}
	return *c, nil
}

// Pending returns a copy of one submission.
func (m *MemoryStore) Pending(id string) (model.PendingUpload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pending[id]
	if !ok {
		return model.PendingUpload{}, ErrNotFound
	}
	return *p, nil
}

// CircularFilter narrows ListCirculars. Zero fields match everything.
type CircularFilter struct {
	Category model.Category
	Status   model.Status
	UserID   string
}

func (f CircularFilter) match(c *model.Circular) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Status != "" && c.Bucket() != f.Status {
		return false
	}
	if f.UserID != "" && c.UploaderID() != f.UserID {
		return false
	}
	return true
}

// ListCirculars returns matching circulars, newest first.
func (m *MemoryStore) ListCirculars(f CircularFilter) []model.Circular {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Circular, 0, len(m.circulars))
	for _, c := range m.circulars {
		if f.match(c) {
			out = append(out, *c)
		}
	}
	newestFirst(out)
	return out
}

// ListPending returns submissions with the given status (empty = all) and,
// when uploaderID is set, only that user's.
func (m *MemoryStore) ListPending(status model.Status, uploaderID string) []model.PendingUpload {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.PendingUpload, 0, len(m.pending))
	for _, p := range m.pending {
		if status != "" && p.Status != status {
			continue
		}
		if uploaderID != "" && p.UploaderID() != uploaderID {
			continue
		}
		out = append(out, *p)
	}
	newestFirst(out)
	return out
}

func newestFirst(records []model.Circular) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

// UpdateCircular runs fn on the stored circular under the write lock.
func (m *MemoryStore) UpdateCircular(id string, fn func(c *model.Circular) error) (model.Circular, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.circulars[id]
	if !ok {
		return model.Circular{}, ErrNotFound
	}
	next := *c
	if err := fn(&next); err != nil {
		return model.Circular{}, err
	}
	next.UpdatedAt = m.now()
	*c = next
	return next, nil
}

// Review moves a pending submission to approved or rejected exactly once.
// The decision is mirrored into the circulars map under the same id so the
// record shows up in status-filtered circular listings.
func (m *MemoryStore) Review(id string, decision model.Status, notes, reviewer string) (model.Circular, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	if !ok {
		return model.Circular{}, ErrNotFound
	}
	if p.Status != model.StatusPending {
		return model.Circular{}, ErrAlreadyDecided
	}
	now := m.now()
	p.Status = decision
	p.ReviewNotes = notes
	p.ReviewedBy = reviewer
	p.ReviewedAt = &now
	p.UpdatedAt = now

	c := *p
	c.IsPublished = decision == model.StatusApproved
	m.circulars[id] = &c
	return c, nil
}

// DeleteCircular removes a circular and, unless a submission still refers to
// it, its file.
func (m *MemoryStore) DeleteCircular(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.circulars[id]; !ok {
		return ErrNotFound
	}
	delete(m.circulars, id)
	if _, ok := m.pending[id]; !ok {
		delete(m.files, id)
	}
	return nil
}

// DeletePending removes a submission and, unless it was published, its
// rejected copy and its file.
func (m *MemoryStore) DeletePending(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[id]; !ok {
		return ErrNotFound
	}
	delete(m.pending, id)
	if c, ok := m.circulars[id]; ok && c.Bucket() != model.StatusApproved {
		delete(m.circulars, id)
	}
	if _, ok := m.circulars[id]; !ok {
		delete(m.files, id)
	}
	return nil
}

// File returns the PDF stored for a record id.
func (m *MemoryStore) File(id string) (*storedFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}
