package pipeline

import "image"

// ComputeHistogram scans every opaque pixel of img and returns the 4x256
// bin histogram. Padding pixels (alpha == 0, introduced by rotation or a
// GPU backend's staging texture) never contribute, per spec.md §4.3.
func ComputeHistogram(img *image.RGBA) Histogram {
	var h Histogram
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			idx := img.PixOffset(x, y)
			if img.Pix[idx+3] == 0 {
				continue
			}
			r, g, bch := img.Pix[idx+0], img.Pix[idx+1], img.Pix[idx+2]
			h.add(r, g, bch, luminance8(r, g, bch))
		}
	}
	return h
}
