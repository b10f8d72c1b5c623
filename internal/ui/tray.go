package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/fireshare/trim-agent/internal/catalog"
	"github.com/fireshare/trim-agent/internal/trim"
)

const pollInterval = 2 * time.Second

type Tray struct {
	catalogSvc catalog.CatalogService
	refresher  *catalog.Refresher
	sessions   *trim.Manager
	logger     *slog.Logger

	statusItem   *systray.MenuItem
	sessionsItem *systray.MenuItem
	videosItem   *systray.MenuItem
	pauseItem    *systray.MenuItem

	mu   sync.Mutex
	stop chan struct{}

	onQuit func()
}

type TrayConfig struct {
	CatalogService catalog.CatalogService
	Refresher      *catalog.Refresher
	Sessions       *trim.Manager
	Logger         *slog.Logger
	OnQuit         func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		catalogSvc: cfg.CatalogService,
		refresher:  cfg.Refresher,
		sessions:   cfg.Sessions,
		logger:     cfg.Logger,
		onQuit:     cfg.OnQuit,
		stop:       make(chan struct{}),
	}
}

// Run blocks on the platform event loop until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes())
	systray.SetTitle("Trimmer")
	systray.SetTooltip("Trim Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.sessionsItem = systray.AddMenuItem("Sessions: 0", "Open trim sessions")
	t.sessionsItem.Disable()

	t.videosItem = systray.AddMenuItem("Videos: 0", "Cached gallery videos")
	t.videosItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Refresh", "Pause catalog refresh")
	refreshItem := systray.AddMenuItem("Refresh Now", "Refresh the gallery listing")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Trim Agent")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-refreshItem.ClickedCh:
				t.refreshNow()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
	go t.poll()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	close(t.stop)
	t.logger.Info("system tray exiting")
}

func (t *Tray) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		t.update()
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
	}
}

func (t *Tray) update() {
	var snaps []trim.Snapshot
	if t.sessions != nil {
		for _, s := range t.sessions.Sessions() {
			snaps = append(snaps, s.Snapshot())
		}
	}

	videos := -1
	if t.catalogSvc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		if list, err := t.catalogSvc.Videos(ctx, catalog.SortNewest); err == nil {
			videos = len(list)
		}
		cancel()
	}

	paused := t.refresher != nil && t.refresher.IsPaused()
	failures := 0
	if t.refresher != nil {
		failures = t.refresher.Failures()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle("Status: " + statusLabel(snaps, paused, failures))
	t.sessionsItem.SetTitle(fmt.Sprintf("Sessions: %d", len(snaps)))
	if videos >= 0 {
		t.videosItem.SetTitle(fmt.Sprintf("Videos: %d", videos))
	}
}

// statusLabel summarises the agent for the tray menu. An in-flight trim
// outranks a paused or failing refresher.
func statusLabel(snaps []trim.Snapshot, paused bool, refreshFailures int) string {
	submitting := 0
	for _, s := range snaps {
		if s.State == trim.StateSubmitting {
			submitting++
		}
	}
	switch {
	case submitting == 1:
		return "Trimming"
	case submitting > 1:
		return fmt.Sprintf("Trimming (%d)", submitting)
	case paused:
		return "Paused"
	case refreshFailures > 0:
		return "Gallery unreachable"
	default:
		return "Idle"
	}
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.refresher == nil {
		return
	}

	if t.refresher.IsPaused() {
		t.refresher.Resume()
		t.pauseItem.SetTitle("Pause Refresh")
	} else {
		t.refresher.Pause()
		t.pauseItem.SetTitle("Resume Refresh")
	}
}

func (t *Tray) refreshNow() {
	if t.catalogSvc == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := t.catalogSvc.Refresh(ctx); err != nil {
			t.logger.Error("manual refresh failed", "error", err)
			return
		}
		t.update()
	}()
}

func (t *Tray) Quit() {
	systray.Quit()
}
