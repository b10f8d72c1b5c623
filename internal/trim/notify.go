package trim

import (
	"context"
	"log/slog"
)

type AlertType string

const (
	AlertSuccess AlertType = "success"
	AlertError   AlertType = "error"
	AlertInfo    AlertType = "info"
	AlertWarning AlertType = "warning"
)

// Alert is a user-visible notification.
type Alert struct {
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
	Open    bool      `json:"open"`
}

// Notifier is a fire-and-forget sink for alerts.
type Notifier interface {
	Notify(a Alert)
}

type NotifierFunc func(a Alert)

func (f NotifierFunc) Notify(a Alert) { f(a) }

// LogNotifier writes alerts to a logger, for headless use.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(a Alert) {
	level := slog.LevelInfo
	switch a.Type {
	case AlertError:
		level = slog.LevelError
	case AlertWarning:
		level = slog.LevelWarn
	}
	n.Logger.Log(context.Background(), level, "alert", "type", a.Type, "message", a.Message)
}

// MultiNotifier fans an alert out to every non-nil notifier.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(a Alert) {
	for _, n := range m {
		if n != nil {
			n.Notify(a)
		}
	}
}
