// Package timeline holds the time/position math and the draggable
// selection state of a trim session.
package timeline

import (
	"fmt"
	"math"
)

// MinTrimDuration is the shortest selection, in seconds, that may be trimmed.
const MinTrimDuration = 0.5

// epsilon absorbs float error from start+MinTrimDuration style arithmetic.
const epsilon = 1e-9

// TimeToFraction maps a time offset to its position along duration.
// Callers guard duration > 0 and clamp the result.
func TimeToFraction(t, duration float64) float64 {
	return t / duration
}

// FractionToTime is the inverse of TimeToFraction.
func FractionToTime(fraction, duration float64) float64 {
	return fraction * duration
}

// Bounds is the horizontal bounding box of the timeline track in client
// coordinates.
type Bounds struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// FractionAt returns the pointer position along b clamped to [0, 1].
func (b Bounds) FractionAt(clientX float64) float64 {
	if b.Width <= 0 {
		return 0
	}
	return clamp((clientX-b.Left)/b.Width, 0, 1)
}

// Range is the selected sub-range of a video, in seconds.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r Range) Duration() float64 {
	return r.End - r.Start
}

// Trimmable reports whether the range meets the minimum trim length.
func (r Range) Trimmable() bool {
	return r.Duration()+epsilon >= MinTrimDuration
}

func (r Range) String() string {
	return fmt.Sprintf("%.3f-%.3f", r.Start, r.End)
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
