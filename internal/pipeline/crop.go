package pipeline

import (
	"image"

	"github.com/literoom/engine/internal/editstate"
)

// Crop extracts the normalized rectangle r from canvas (the output of the
// rotation stage). A nil r, or one numerically within 0.001 of the full
// frame, is a no-op per spec.md §4.3's crop-free invariant.
func Crop(canvas *image.RGBA, r *editstate.Rect) *image.RGBA {
	if r == nil {
		out := newRGBA(canvas.Bounds().Dx(), canvas.Bounds().Dy())
		copy(out.Pix, canvas.Pix)
		return out
	}

	cb := canvas.Bounds()
	cw, ch := cb.Dx(), cb.Dy()

	left := int(r.Left*float64(cw) + 0.5)
	top := int(r.Top*float64(ch) + 0.5)
	width := int(r.Width*float64(cw) + 0.5)
	height := int(r.Height*float64(ch) + 0.5)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if left+width > cw {
		width = cw - left
	}
	if top+height > ch {
		height = ch - top
	}

	out := newRGBA(width, height)
	for y := 0; y < height; y++ {
		srcIdx := canvas.PixOffset(left, top+y)
		dstIdx := out.PixOffset(0, y)
		copy(out.Pix[dstIdx:dstIdx+width*4], canvas.Pix[srcIdx:srcIdx+width*4])
	}
	return out
}
