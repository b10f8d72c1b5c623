package export

import (
	"strings"
	"testing"

	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/timeline"
)

func TestGenerateEDL_Selection(t *testing.T) {
	d := media.Descriptor{ID: "abc", Extension: ".mp4", Duration: 10}
	loc := media.Locator{BaseURL: "http://gallery", ServedBy: media.ServedByNginx}
	clip := SelectionClip(d, "Ace <round 3>", timeline.Range{Start: 4, End: 7}, loc)

	edl := GenerateEDL([]Clip{clip}, "Ace <round 3>", 0)

	want := []string{
		"TITLE: Ace _round 3_",
		"FCM: NON-DROP FRAME",
		"001  AX       V     C        00:00:04:00 00:00:07:00 00:00:00:00 00:00:03:00",
		"* FROM CLIP NAME:  Ace _round 3_",
		"* SOURCE FILE:  http://gallery/_content/video/abc.mp4",
	}
	for _, w := range want {
		if !strings.Contains(edl, w) {
			t.Errorf("EDL missing %q:\n%s", w, edl)
		}
	}
}

func TestGenerateEDL_RecordSideIsContiguous(t *testing.T) {
	clips := []Clip{
		{Name: "A", MediaURL: "/a.mp4", Start: 0, End: 1},
		{Name: "B", MediaURL: "/b.mp4", Start: 1, End: 2.5},
	}

	edl := GenerateEDL(clips, "Multi", 30)

	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:01:00 00:00:02:15 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	edl := GenerateEDL([]Clip{{Name: "c", Start: 0, End: 1}}, "Drop", 59.94)
	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestSelectionClip_FallsBackToID(t *testing.T) {
	clip := SelectionClip(media.Descriptor{ID: "abc"}, "\n\t", timeline.Range{End: 1}, media.Locator{})
	if clip.Name != "abc" {
		t.Errorf("Name = %q, want abc", clip.Name)
	}
	if clip.MediaURL != "/api/video?id=abc&quality=original" {
		t.Errorf("MediaURL = %q", clip.MediaURL)
	}
}

func TestTimecode(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		fps     int
		want    string
	}{
		{"zero", 0, 60, "00:00:00:00"},
		{"half second at 60", 0.5, 60, "00:00:00:30"},
		{"half second at 30", 0.5, 30, "00:00:00:15"},
		{"one minute", 60, 30, "00:01:00:00"},
		{"one hour", 3600, 30, "01:00:00:00"},
		{"rounds to frame", 1.999, 30, "00:00:02:00"},
		{"negative clamps", -3, 30, "00:00:00:00"},
		{"default fps", 1, 0, "00:00:01:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Timecode(tc.seconds, tc.fps); got != tc.want {
				t.Fatalf("Timecode(%v, %d) = %q, want %q", tc.seconds, tc.fps, got, tc.want)
			}
		})
	}
}
