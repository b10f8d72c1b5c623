package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fireshare/trim-agent/internal/media"
)

// SortMode is a feed ordering.
type SortMode int

const (
	SortNewest SortMode = iota
	SortOldest
	SortTitleAZ
	SortTitleZA
	SortMostViews
	SortLeastViews
)

var sortModes = []struct {
	mode  SortMode
	key   string
	label string
	less  func(a, b *media.Video) bool
}{
	{SortNewest, "newest", "Newest", func(a, b *media.Video) bool { return a.UpdatedAt.After(b.UpdatedAt) }},
	{SortOldest, "oldest", "Oldest", func(a, b *media.Video) bool { return a.UpdatedAt.Before(b.UpdatedAt) }},
	{SortTitleAZ, "az", "A-Z", func(a, b *media.Video) bool { return titleKey(a) < titleKey(b) }},
	{SortTitleZA, "za", "Z-A", func(a, b *media.Video) bool { return titleKey(a) > titleKey(b) }},
	{SortMostViews, "most_views", "Most Views", func(a, b *media.Video) bool { return a.ViewCount > b.ViewCount }},
	{SortLeastViews, "least_views", "Least Views", func(a, b *media.Video) bool { return a.ViewCount < b.ViewCount }},
}

// ParseSortMode maps a query value to a mode. Empty selects SortNewest.
func ParseSortMode(s string) (SortMode, error) {
	if s == "" {
		return SortNewest, nil
	}
	for _, m := range sortModes {
		if m.key == s {
			return m.mode, nil
		}
	}
	return 0, fmt.Errorf("unknown sort mode %q", s)
}

func (m SortMode) String() string {
	if int(m) < 0 || int(m) >= len(sortModes) {
		return fmt.Sprintf("SortMode(%d)", int(m))
	}
	return sortModes[m].key
}

// Label is the display name of the mode.
func (m SortMode) Label() string {
	if int(m) < 0 || int(m) >= len(sortModes) {
		return ""
	}
	return sortModes[m].label
}

// Less orders a before b under m. Ties fall back to the video ID so the
// order is total.
func (m SortMode) Less(a, b *media.Video) bool {
	less := sortModes[SortNewest].less
	if int(m) >= 0 && int(m) < len(sortModes) {
		less = sortModes[m].less
	}
	if less(a, b) {
		return true
	}
	if less(b, a) {
		return false
	}
	return a.VideoID < b.VideoID
}

// Sort orders videos in place.
func (m SortMode) Sort(videos []*media.Video) {
	sort.SliceStable(videos, func(i, j int) bool { return m.Less(videos[i], videos[j]) })
}

// SortModes lists every mode in display order.
func SortModes() []SortMode {
	out := make([]SortMode, len(sortModes))
	for i, m := range sortModes {
		out[i] = m.mode
	}
	return out
}

func titleKey(v *media.Video) string {
	return strings.ToLower(v.Info.Title)
}
