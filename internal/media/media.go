// Package media describes gallery videos and where their renditions and
// posters are fetched from.
package media

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Quality is a rendition tier of a video.
type Quality string

const (
	QualityOriginal Quality = "original"
	Quality720p     Quality = "720p"
	Quality1080p    Quality = "1080p"
)

// Info is the metadata block the gallery backend attaches to a video.
type Info struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Has720p  bool    `json:"has_720p"`
	Has1080p bool    `json:"has_1080p"`
}

// Video is a gallery video as returned by the backend.
type Video struct {
	VideoID   string    `json:"video_id"`
	Extension string    `json:"extension"`
	Info      Info      `json:"info"`
	ViewCount int       `json:"view_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Descriptor is the immutable input of one trim session.
type Descriptor struct {
	ID         string
	Extension  string
	Duration   float64
	Width      int
	Height     int
	Renditions []Quality // ordered by seek preference
	PosterURL  string
}

// NewDescriptor builds the session descriptor for v. Renditions are in
// seek preference order: 720p, then the original. 1080p comes last.
func NewDescriptor(v Video, loc Locator) Descriptor {
	renditions := make([]Quality, 0, 3)
	if v.Info.Has720p {
		renditions = append(renditions, Quality720p)
	}
	renditions = append(renditions, QualityOriginal)
	if v.Info.Has1080p {
		renditions = append(renditions, Quality1080p)
	}

	return Descriptor{
		ID:         v.VideoID,
		Extension:  v.Extension,
		Duration:   v.Info.Duration,
		Width:      v.Info.Width,
		Height:     v.Info.Height,
		Renditions: renditions,
		PosterURL:  loc.PosterURL(v.VideoID),
	}
}

// SeekRendition returns the rendition to use for frame extraction.
func (d Descriptor) SeekRendition() Quality {
	if len(d.Renditions) == 0 {
		return QualityOriginal
	}
	return d.Renditions[0]
}

// AspectRatio is width/height, 16:9 when the dimensions are unknown.
func (d Descriptor) AspectRatio() float64 {
	if d.Width <= 0 || d.Height <= 0 {
		return 16.0 / 9.0
	}
	return float64(d.Width) / float64(d.Height)
}

// ServedBy selects how the gallery exposes media files.
type ServedBy string

const (
	ServedByNginx ServedBy = "nginx"
	ServedByFlask ServedBy = "flask"
)

func ParseServedBy(s string) (ServedBy, error) {
	switch ServedBy(strings.ToLower(s)) {
	case ServedByNginx:
		return ServedByNginx, nil
	case ServedByFlask, "":
		return ServedByFlask, nil
	default:
		return "", fmt.Errorf("unknown served-by mode %q", s)
	}
}

// Locator maps videos to fetchable URLs.
type Locator struct {
	BaseURL  string
	ServedBy ServedBy
}

func (l Locator) base() string {
	return strings.TrimRight(l.BaseURL, "/")
}

// VideoURL returns the URL of the given rendition.
func (l Locator) VideoURL(videoID string, q Quality, extension string) string {
	id := url.PathEscape(videoID)
	if l.ServedBy == ServedByNginx {
		if q == QualityOriginal {
			ext := strings.TrimPrefix(extension, ".")
			if ext == "" {
				ext = "mp4"
			}
			return fmt.Sprintf("%s/_content/video/%s.%s", l.base(), id, ext)
		}
		return fmt.Sprintf("%s/_content/derived/%s/%s-%s.mp4", l.base(), id, id, q)
	}

	v := url.Values{}
	v.Set("id", videoID)
	v.Set("quality", string(q))
	return fmt.Sprintf("%s/api/video?%s", l.base(), v.Encode())
}

// PosterURL returns the still image shown while a video loads.
func (l Locator) PosterURL(videoID string) string {
	if l.ServedBy == ServedByNginx {
		return fmt.Sprintf("%s/_content/derived/%s/poster.jpg", l.base(), url.PathEscape(videoID))
	}
	return fmt.Sprintf("%s/api/video/poster?id=%s", l.base(), url.QueryEscape(videoID))
}

// SourceURL is the URL of the rendition preferred for seeking.
func (l Locator) SourceURL(d Descriptor) string {
	return l.VideoURL(d.ID, d.SeekRendition(), d.Extension)
}
