// Package export renders trim selections for use in editing software.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/fireshare/trim-agent/internal/media"
	"github.com/fireshare/trim-agent/internal/timeline"
)

const maxClipName = 64

// SelectionClip describes the selected range r of video d as an EDL clip.
func SelectionClip(d media.Descriptor, title string, r timeline.Range, loc media.Locator) Clip {
	name := CleanName(title, maxClipName)
	if name == "" {
		name = d.ID
	}
	return Clip{
		Name:     name,
		MediaURL: loc.VideoURL(d.ID, media.QualityOriginal, d.Extension),
		Start:    r.Start,
		End:      r.End,
	}
}

// GenerateEDL renders clips as a CMX3600 edit decision list. Events are
// laid back to back on the record side.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	fps := int(math.Round(frameRate))

	dropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{"TITLE: " + CleanName(title, 70)}
	if dropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	record := 0.0
	for i, c := range clips {
		length := c.End - c.Start
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				Timecode(c.Start, fps), Timecode(c.End, fps),
				Timecode(record, fps), Timecode(record+length, fps)),
			"* FROM CLIP NAME:  "+c.Name,
			"* SOURCE FILE:  "+c.MediaURL,
		)
		record += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// Timecode renders seconds as HH:MM:SS:FF at fps, rounding to the nearest
// frame.
func Timecode(seconds float64, fps int) string {
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}
	if seconds < 0 {
		seconds = 0
	}
	frames := int(math.Round(seconds * float64(fps)))
	ff := frames % fps
	secs := frames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60, ff)
}
