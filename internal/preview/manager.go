package preview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	pdfutil "github.com/dharsanguruparan/CircularNest/internal/pdf"
)

// DefaultTimeout bounds how long a preview may stay in the loading state.
const DefaultTimeout = 7 * time.Second

var (
	// ErrTimeout means the file did not arrive within the bounded wait.
	ErrTimeout = errors.New("preview timed out")
	// ErrUnavailable means the server answered but not with a PDF.
	ErrUnavailable = errors.New("PDF is not available for viewing")
	// ErrSuperseded means another open or Close happened first.
	ErrSuperseded = errors.New("preview replaced")
)

// Fallback is offered when a preview cannot be shown inline.
type Fallback struct {
	OpenURL     string
	DownloadURL string
	Reason      error
}

// Preview is the outcome of one open. Exactly one of Handle, URL or Fallback
// is set.
type Preview struct {
	ID       string
	Handle   string
	Path     string
	URL      string
	Fallback *Fallback

	data []byte
}

// Ready reports whether the preview can be shown inline.
func (p *Preview) Ready() bool {
	return p.Fallback == nil
}

// Text extracts up to maxPages pages of text from a fetched preview.
func (p *Preview) Text(maxPages int) (string, error) {
	if p.data == nil {
		return "", errors.New("no document data for this preview")
	}
	doc, err := pdfutil.Open(p.data)
	if err != nil {
		return "", err
	}
	return doc.Text(maxPages)
}

// Pages returns the page count of a fetched preview.
func (p *Preview) Pages() (int, error) {
	if p.data == nil {
		return 0, errors.New("no document data for this preview")
	}
	return pdfutil.PageCount(p.data)
}

// FetchFunc downloads the PDF for the blob strategy.
type FetchFunc func(ctx context.Context) (*apiclient.Blob, error)

// Manager owns the single preview that is open at a time.
type Manager struct {
	urls    *ObjectURLs
	http    *http.Client
	timeout time.Duration
	notify  notify.Notifier

	mu      sync.Mutex
	gen     uint64
	current string
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithHTTPClient sets the client used to probe public URLs.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.http = hc }
}

// WithNotifier reports fallbacks to the user.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notify = n }
}

// NewManager creates a Manager backed by urls.
func NewManager(urls *ObjectURLs, opts ...Option) *Manager {
	m := &Manager{
		urls:    urls,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		notify:  notify.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// begin revokes the current handle and starts a new generation.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != "" {
		m.urls.Revoke(m.current)
		m.current = ""
	}
	m.gen++
	return m.gen
}

// OpenBlob fetches the file with fetch and exposes it through a new handle.
// The previous handle is revoked first. A fetch that errors, returns a
// non-PDF body or outlives the bounded wait yields fb.
func (m *Manager) OpenBlob(ctx context.Context, id string, fetch FetchFunc, fb Fallback) *Preview {
	gen := m.begin()

	type result struct {
		blob *apiclient.Blob
		err  error
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	done := make(chan result, 1)
	go func() {
		blob, err := fetch(ctx)
		done <- result{blob, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return m.fallback(id, fb, timeoutReason(ctx.Err()))
	}
	if res.err != nil {
		return m.fallback(id, fb, res.err)
	}
	if res.blob == nil || !isPDFBlob(res.blob) {
		return m.fallback(id, fb, ErrUnavailable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return &Preview{ID: id, Fallback: &Fallback{OpenURL: fb.OpenURL, DownloadURL: fb.DownloadURL, Reason: ErrSuperseded}}
	}
	handle, err := m.urls.Create(res.blob.Data)
	if err != nil {
		fb.Reason = err
		return &Preview{ID: id, Fallback: &fb}
	}
	m.current = handle
	path, _ := m.urls.Path(handle)
	return &Preview{ID: id, Handle: handle, Path: path, data: res.blob.Data}
}

// OpenDirect probes a public URL and opens it by reference. Any previous
// handle is revoked.
func (m *Manager) OpenDirect(ctx context.Context, id, url string, fb Fallback) *Preview {
	m.begin()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.probe(ctx, url); err != nil {
		if ctx.Err() != nil {
			err = timeoutReason(ctx.Err())
		}
		return m.fallback(id, fb, err)
	}
	return &Preview{ID: id, URL: url}
}

func (m *Manager) probe(ctx context.Context, url string) error {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return fmt.Errorf("build probe: %w", err)
		}
		resp, err := m.http.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusMethodNotAllowed && method == http.MethodHead {
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("probe %s: %s", url, resp.Status)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/pdf") {
			return ErrUnavailable
		}
		return nil
	}
	return ErrUnavailable
}

// Close revokes the current handle. A fetch still in flight is discarded
// when it lands.
func (m *Manager) Close() {
	m.begin()
}

// Current returns the live handle, if any.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) fallback(id string, fb Fallback, reason error) *Preview {
	fb.Reason = reason
	switch {
	case errors.Is(reason, apiclient.ErrUnauthorized), errors.Is(reason, context.Canceled):
	case errors.Is(reason, ErrUnavailable):
		m.notify.Error(ErrUnavailable.Error())
	default:
		m.notify.Error(apiclient.Message(reason, "Failed to preview PDF"))
	}
	return &Preview{ID: id, Fallback: &fb}
}

func timeoutReason(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func isPDFBlob(b *apiclient.Blob) bool {
	if pdfutil.HasHeader(b.Data) {
		return true
	}
	return strings.HasPrefix(b.ContentType, "application/pdf") && len(b.Data) > 0
}
