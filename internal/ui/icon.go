package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var (
	iconOnce sync.Once
	iconData []byte
)

// iconBytes renders the tray icon: a filmstrip frame with a highlighted
// selection, 32px square.
func iconBytes() []byte {
	iconOnce.Do(func() {
		iconData = renderIcon(32)
	})
	return iconData
}

func renderIcon(size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	frame := color.NRGBA{R: 0x2b, G: 0x2f, B: 0x3a, A: 0xff}
	selection := color.NRGBA{R: 0xf5, G: 0xa6, B: 0x23, A: 0xff}
	hole := color.NRGBA{R: 0xe8, G: 0xe8, B: 0xe8, A: 0xff}

	top, bottom := size/5, size-size/5
	for y := top; y < bottom; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, frame)
		}
	}
	// sprocket holes along both edges of the strip
	for x := 2; x < size-2; x += 5 {
		for dx := 0; dx < 2; dx++ {
			img.SetNRGBA(x+dx, top+1, hole)
			img.SetNRGBA(x+dx, bottom-2, hole)
		}
	}
	// selection handles
	lo, hi := size/4, size-size/4
	for y := top + 3; y < bottom-3; y++ {
		for x := lo; x < hi; x++ {
			if x < lo+2 || x >= hi-2 || y < top+5 || y >= bottom-5 {
				img.SetNRGBA(x, y, selection)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
