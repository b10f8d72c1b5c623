// Package hover defers side effects of hovering a gallery card: an action
// is scheduled when the pointer enters and cancelled when it leaves.
package hover

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Debouncer runs one deferred action per key after a fixed delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
}

type entry struct {
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*entry)}
}

// Start schedules fn for key, replacing any action already pending for it.
func (d *Debouncer) Start(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if old, ok := d.pending[key]; ok {
		old.timer.Stop()
	}

	e := &entry{}
	e.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current, ok := d.pending[key]
		if !ok || current != e {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
	d.pending[key] = e
}

// Cancel drops the pending action for key. It reports whether one was
// pending. An action that already began running is not interrupted.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending is the number of scheduled actions.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels everything and refuses new actions.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
}

// PrefetchFunc warms whatever the hovered video needs.
type PrefetchFunc func(ctx context.Context, videoID string) error

// Prefetcher prefetches a video's metadata once the pointer has rested on
// its card for the debounce delay.
type Prefetcher struct {
	ctx      context.Context
	debounce *Debouncer
	fetch    PrefetchFunc
	timeout  time.Duration
	logger   *slog.Logger
}

// NewPrefetcher creates a prefetcher whose fetches run under ctx.
func NewPrefetcher(ctx context.Context, delay time.Duration, fetch PrefetchFunc, logger *slog.Logger) *Prefetcher {
	return &Prefetcher{
		ctx:      ctx,
		debounce: NewDebouncer(delay),
		fetch:    fetch,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// Enter schedules a prefetch of videoID.
func (p *Prefetcher) Enter(videoID string) {
	p.debounce.Start(videoID, func() {
		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
		if err := p.fetch(ctx, videoID); err != nil {
			p.logger.Debug("hover prefetch failed", "video_id", videoID, "error", err)
			return
		}
		p.logger.Debug("hover prefetch done", "video_id", videoID)
	})
}

// Leave cancels a scheduled prefetch of videoID. It reports whether one
// was still pending.
func (p *Prefetcher) Leave(videoID string) bool {
	return p.debounce.Cancel(videoID)
}

func (p *Prefetcher) Stop() {
	p.debounce.Stop()
}
