package main

import (
	"image"
	"image/png"
	"io"
)

// writePNG streams img to w as PNG, the cache tier's wire format: cheap to
// encode, lossless, good enough for a local control-plane round trip that
// itself decodes a webp-encoded disk cache entry a moment earlier.
func writePNG(w io.Writer, img *image.RGBA) {
	_ = png.Encode(w, img)
}
