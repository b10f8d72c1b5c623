// Package thumbnail builds the filmstrip shown under the trim timeline by
// seeking a decode surface through evenly spaced timestamps.
package thumbnail

import (
	"context"
	"image"
)

// Source is a decodable media resource with a single shared seek/draw
// position, the Go analogue of a hidden video element.
type Source interface {
	// Size reports the natural frame dimensions.
	Size() (width, height int)
	// Seek moves to t seconds and returns once the frame there is ready.
	Seek(ctx context.Context, t float64) error
	// Frame returns the frame at the current position.
	Frame() (image.Image, error)
	Close() error
}

// Rewinder is implemented by sources that can return to the start without
// decoding a frame.
type Rewinder interface {
	Rewind() error
}

// Opener loads a Source from a media URL.
type Opener interface {
	Open(ctx context.Context, url string) (Source, error)
}
