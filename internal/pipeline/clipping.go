package pipeline

import "image"

// ComputeClippingMap returns one packed ClippingFlags byte per pixel, in
// row-major order matching img's bounds, flagging per-channel shadow (value
// 0) and highlight (value 255) clipping. Padding pixels get a zero byte
// (no channel is considered clipped).
func ComputeClippingMap(img *image.RGBA) []ClippingFlags {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]ClippingFlags, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			if img.Pix[idx+3] == 0 {
				continue
			}
			out[y*w+x] = clipFlags(img.Pix[idx+0], img.Pix[idx+1], img.Pix[idx+2])
		}
	}
	return out
}
