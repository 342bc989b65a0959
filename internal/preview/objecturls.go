// Package preview opens PDFs for viewing. Authenticated files are fetched into
// a temporary object that is revoked when the preview closes or is replaced;
// public files are probed and opened by URL.
package preview

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const handlePrefix = "blob:circularnest/"

// ObjectURLs tracks temporary files that back preview handles.
type ObjectURLs struct {
	dir string

	mu   sync.Mutex
	live map[string]string
}

// NewObjectURLs stores objects under dir, or the system temp dir when empty.
func NewObjectURLs(dir string) *ObjectURLs {
	return &ObjectURLs{dir: dir, live: make(map[string]string)}
}

// Create writes data to a new temporary file and returns its handle.
func (o *ObjectURLs) Create(data []byte) (string, error) {
	if o.dir != "" {
		if err := os.MkdirAll(o.dir, 0o700); err != nil {
			return "", fmt.Errorf("create preview dir: %w", err)
		}
	}
	f, err := os.CreateTemp(o.dir, "circular-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create preview file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close preview file: %w", err)
	}
	handle := handlePrefix + uuid.NewString()
	o.mu.Lock()
	o.live[handle] = f.Name()
	o.mu.Unlock()
	return handle, nil
}

// Path returns the file behind a live handle.
func (o *ObjectURLs) Path(handle string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	path, ok := o.live[handle]
	return path, ok
}

// Revoke deletes the object behind handle. Unknown handles are ignored.
func (o *ObjectURLs) Revoke(handle string) {
	o.mu.Lock()
	path, ok := o.live[handle]
	delete(o.live, handle)
	o.mu.Unlock()
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("revoke preview %s: %v", handle, err)
	}
}

// RevokeAll deletes every live object.
func (o *ObjectURLs) RevokeAll() {
	for _, handle := range o.Outstanding() {
		o.Revoke(handle)
	}
}

// Outstanding lists the handles that have not been revoked.
func (o *ObjectURLs) Outstanding() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.live))
	for handle := range o.live {
		out = append(out, handle)
	}
	sort.Strings(out)
	return out
}
