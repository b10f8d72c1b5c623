package timeline

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTimeFractionRoundTrip(t *testing.T) {
	tests := []struct {
		time     float64
		duration float64
		fraction float64
	}{
		{0, 10, 0},
		{5, 10, 0.5},
		{10, 10, 1},
		{30, 120, 0.25},
	}

	for _, tt := range tests {
		if got := TimeToFraction(tt.time, tt.duration); !approx(got, tt.fraction) {
			t.Errorf("TimeToFraction(%v, %v) = %v, want %v", tt.time, tt.duration, got, tt.fraction)
		}
		if got := FractionToTime(tt.fraction, tt.duration); !approx(got, tt.time) {
			t.Errorf("FractionToTime(%v, %v) = %v, want %v", tt.fraction, tt.duration, got, tt.time)
		}
	}
}

func TestBounds_FractionAt(t *testing.T) {
	b := Bounds{Left: 100, Width: 200}
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"left edge", 100, 0},
		{"middle", 200, 0.5},
		{"right edge", 300, 1},
		{"before track", 20, 0},
		{"after track", 900, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.FractionAt(tt.x); !approx(got, tt.want) {
				t.Errorf("FractionAt(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}

	if got := (Bounds{Width: 0}).FractionAt(50); got != 0 {
		t.Errorf("zero-width FractionAt = %v, want 0", got)
	}
}

func TestRange_Trimmable(t *testing.T) {
	tests := []struct {
		r    Range
		want bool
	}{
		{Range{Start: 2, End: 2.4}, false},
		{Range{Start: 2, End: 2.5}, true},
		{Range{Start: 0.1, End: 0.6}, true},
		{Range{Start: 0, End: 10}, true},
		{Range{Start: 3, End: 3}, false},
	}

	for _, tt := range tests {
		if got := tt.r.Trimmable(); got != tt.want {
			t.Errorf("%v.Trimmable() = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{7.9, "00:00:07"},
		{61, "00:01:01"},
		{3725, "01:02:05"},
		{-4, "00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
