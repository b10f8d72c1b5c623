package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const DefaultRefreshInterval = 5 * time.Minute

// Refresher keeps the cached listing in step with the gallery by calling
// Refresh on a fixed interval.
type Refresher struct {
	service  *Service
	logger   *slog.Logger
	interval time.Duration
	running  atomic.Bool
	paused   atomic.Bool
	failures atomic.Int32
}

func NewRefresher(service *Service, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		service:  service,
		logger:   logger,
		interval: interval,
	}
}

// Start refreshes once immediately, then on every tick until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}
	defer r.running.Store(false)

	r.logger.Info("catalog refresher started", "interval", r.interval)
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("catalog refresher stopping")
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.refresh(ctx)
			}
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if _, err := r.service.Refresh(ctx); err != nil {
		n := r.failures.Add(1)
		r.logger.Warn("catalog refresh failed", "error", err, "consecutive_failures", n)
		return
	}
	r.failures.Store(0)
}

func (r *Refresher) Pause() {
	r.paused.Store(true)
	r.logger.Info("catalog refresher paused")
}

func (r *Refresher) Resume() {
	r.paused.Store(false)
	r.logger.Info("catalog refresher resumed")
}

func (r *Refresher) IsPaused() bool {
	return r.paused.Load()
}

func (r *Refresher) IsRunning() bool {
	return r.running.Load()
}

// Failures is the number of consecutive failed refreshes.
func (r *Refresher) Failures() int {
	return int(r.failures.Load())
}
