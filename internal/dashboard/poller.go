package dashboard

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultInterval is the auto-refresh period.
const DefaultInterval = 10 * time.Second

// Loader is any view that can re-fetch its state.
type Loader interface {
	Load(ctx context.Context) error
}

// Poller re-runs a Loader on a fixed interval while enabled. Disabling skips
// future ticks but never aborts a load already running. Overlapping loads are
// not deduplicated; the last one to finish wins.
type Poller struct {
	loader   Loader
	interval time.Duration
	onLoad   func(error)

	mu      sync.Mutex
	enabled bool
}

// NewPoller creates an enabled poller. A non-positive interval means
// DefaultInterval.
func NewPoller(loader Loader, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{loader: loader, interval: interval, enabled: true}
}

// OnLoad registers a callback that runs after every load, scheduled or manual.
func (p *Poller) OnLoad(fn func(error)) {
	p.onLoad = fn
}

// SetEnabled toggles auto-refresh.
func (p *Poller) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Enabled reports whether auto-refresh is on.
func (p *Poller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Refresh runs one load immediately, whatever the auto-refresh flag says.
func (p *Poller) Refresh(ctx context.Context) error {
	err := p.loader.Load(ctx)
	if p.onLoad != nil {
		p.onLoad(err)
	}
	return err
}

// Run ticks until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.Enabled() {
				continue
			}
			if err := p.Refresh(ctx); err != nil {
				log.Printf("auto-refresh: %v", err)
			}
		}
	}
}
