package ui

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/fireshare/trim-agent/internal/trim"
)

func TestStatusLabel(t *testing.T) {
	idle := trim.Snapshot{State: trim.StateIdle}
	busy := trim.Snapshot{State: trim.StateSubmitting}

	tests := []struct {
		name     string
		snaps    []trim.Snapshot
		paused   bool
		failures int
		want     string
	}{
		{"no sessions", nil, false, 0, "Idle"},
		{"idle sessions", []trim.Snapshot{idle, idle}, false, 0, "Idle"},
		{"one trim", []trim.Snapshot{idle, busy}, false, 0, "Trimming"},
		{"two trims", []trim.Snapshot{busy, busy}, false, 0, "Trimming (2)"},
		{"trim outranks pause", []trim.Snapshot{busy}, true, 3, "Trimming"},
		{"paused", nil, true, 0, "Paused"},
		{"gallery down", []trim.Snapshot{idle}, false, 2, "Gallery unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusLabel(tt.snaps, tt.paused, tt.failures); got != tt.want {
				t.Errorf("statusLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIconBytes(t *testing.T) {
	data := iconBytes()
	if len(data) == 0 {
		t.Fatal("iconBytes() is empty")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("icon size = %v, want 32x32", b)
	}
	if &iconBytes()[0] != &data[0] {
		t.Error("icon rendered twice")
	}
}
