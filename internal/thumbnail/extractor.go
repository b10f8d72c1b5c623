package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"
	"time"

	"golang.org/x/image/draw"

	"github.com/fireshare/trim-agent/internal/media"
)

const (
	DefaultCount   = 10
	DefaultHeight  = 50
	CompactHeight  = 40
	DefaultQuality = 50
)

// ErrUnavailable means extraction never started: the duration is unknown
// or the source could not be loaded.
var ErrUnavailable = errors.New("no decodable source")

// Sample is one filmstrip frame.
type Sample struct {
	Time  float64
	Image []byte // JPEG
}

type Options struct {
	Count       int
	Quality     int           // JPEG quality 1-100
	SeekTimeout time.Duration // 0 waits for every seek indefinitely
}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = DefaultCount
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

type Extractor struct {
	opener  Opener
	locator media.Locator
	opts    Options
	logger  *slog.Logger
}

func NewExtractor(opener Opener, locator media.Locator, opts Options, logger *slog.Logger) *Extractor {
	return &Extractor{
		opener:  opener,
		locator: locator,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
}

// Extract produces Count samples at 0, D/Count, 2D/Count, ... in order.
// Seeks are strictly sequential since every sample reuses the same source
// and canvas. The source is rewound to 0 afterwards.
func (e *Extractor) Extract(ctx context.Context, d media.Descriptor, height int) ([]Sample, error) {
	if d.Duration <= 0 || math.IsNaN(d.Duration) {
		return nil, ErrUnavailable
	}
	if height <= 0 {
		height = DefaultHeight
	}

	url := e.locator.SourceURL(d)
	src, err := e.opener.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer src.Close()

	aspect := d.AspectRatio()
	if w, h := src.Size(); w > 0 && h > 0 {
		aspect = float64(w) / float64(h)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, int(math.Round(float64(height)*aspect)), height))

	start := time.Now()
	interval := d.Duration / float64(e.opts.Count)
	samples := make([]Sample, 0, e.opts.Count)
	var buf bytes.Buffer

	for i := 0; i < e.opts.Count; i++ {
		t := float64(i) * interval
		if err := e.seek(ctx, src, t); err != nil {
			return nil, fmt.Errorf("seek to %.3fs: %w", t, err)
		}

		frame, err := src.Frame()
		if err != nil {
			return nil, fmt.Errorf("read frame at %.3fs: %w", t, err)
		}
		draw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), frame, frame.Bounds(), draw.Src, nil)

		buf.Reset()
		if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: e.opts.Quality}); err != nil {
			return nil, fmt.Errorf("encode frame at %.3fs: %w", t, err)
		}
		samples = append(samples, Sample{Time: t, Image: bytes.Clone(buf.Bytes())})
	}

	if err := rewind(ctx, src); err != nil && e.logger != nil {
		e.logger.Debug("failed to rewind source", "video_id", d.ID, "error", err)
	}

	if e.logger != nil {
		e.logger.Info("filmstrip extracted",
			"video_id", d.ID,
			"rendition", d.SeekRendition(),
			"samples", len(samples),
			"width", canvas.Bounds().Dx(),
			"height", height,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return samples, nil
}

func rewind(ctx context.Context, src Source) error {
	if r, ok := src.(Rewinder); ok {
		return r.Rewind()
	}
	return src.Seek(ctx, 0)
}

func (e *Extractor) seek(ctx context.Context, src Source, t float64) error {
	if e.opts.SeekTimeout <= 0 {
		return src.Seek(ctx, t)
	}
	ctx, cancel := context.WithTimeout(ctx, e.opts.SeekTimeout)
	defer cancel()
	return src.Seek(ctx, t)
}
