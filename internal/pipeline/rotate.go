package pipeline

import (
	"image"
	"math"
)

// Rotate rotates src by angleDeg degrees (positive = clockwise), resampling
// with bilinear interpolation. The output canvas is the smallest
// axis-aligned rectangle containing the rotated source; pixels that map
// outside the source are transparent black. Per spec.md §4.3, corner
// pixels produced purely from padding never contribute to histogram or
// clipping — callers must track that via the alpha channel this function
// sets to 0 for padding.
func Rotate(src *image.RGBA, angleDeg float64) *image.RGBA {
	if angleDeg == 0 {
		out := newRGBA(src.Bounds().Dx(), src.Bounds().Dy())
		copy(out.Pix, src.Pix)
		return out
	}

	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	theta := angleDeg * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)

	// Bounding box of the rotated source, centered at the source center.
	hw, hh := float64(sw)/2, float64(sh)/2
	corners := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	var maxX, maxY float64
	for _, c := range corners {
		rx := math.Abs(c[0]*cos - c[1]*sin)
		ry := math.Abs(c[0]*sin + c[1]*cos)
		if rx > maxX {
			maxX = rx
		}
		if ry > maxY {
			maxY = ry
		}
	}
	ow := int(math.Ceil(maxX * 2))
	oh := int(math.Ceil(maxY * 2))
	if ow < 1 {
		ow = 1
	}
	if oh < 1 {
		oh = 1
	}

	out := newRGBA(ow, oh)
	ocx, ocy := float64(ow)/2, float64(oh)/2

	// Inverse mapping: for each output pixel, find the source coordinate
	// that rotates to it, then bilinear-sample (or leave transparent).
	invSin, invCos := math.Sin(-theta), math.Cos(-theta)
	for oy := 0; oy < oh; oy++ {
		for ox := 0; ox < ow; ox++ {
			dx := float64(ox) + 0.5 - ocx
			dy := float64(oy) + 0.5 - ocy
			sx := dx*invCos-dy*invSin + hw
			sy := dx*invSin+dy*invCos + hh

			r, g, b, a, ok := bilinearSample(src, sx-0.5, sy-0.5)
			idx := out.PixOffset(ox, oy)
			if !ok {
				// Padding: transparent black, excluded from histogram/clipping.
				out.Pix[idx+3] = 0
				continue
			}
			out.Pix[idx+0] = r
			out.Pix[idx+1] = g
			out.Pix[idx+2] = b
			out.Pix[idx+3] = a
		}
	}
	return out
}

// bilinearSample samples src at floating-point coordinates (x,y) in pixel
// space (0,0 at the center of the top-left pixel). ok is false when the
// sample point falls entirely outside the source.
func bilinearSample(src *image.RGBA, x, y float64) (r, g, b, a uint8, ok bool) {
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1, y1 := x0+1, y0+1

	if x1 < 0 || y1 < 0 || x0 >= sw || y0 >= sh {
		return 0, 0, 0, 0, false
	}

	fx := x - float64(x0)
	fy := y - float64(y0)

	get := func(px, py int) (float64, float64, float64, float64, bool) {
		if px < 0 || py < 0 || px >= sw || py >= sh {
			return 0, 0, 0, 0, false
		}
		idx := src.PixOffset(px, py)
		return float64(src.Pix[idx]), float64(src.Pix[idx+1]), float64(src.Pix[idx+2]), float64(src.Pix[idx+3]), true
	}

	r00, g00, b00, a00, ok00 := get(x0, y0)
	r10, g10, b10, a10, ok10 := get(x1, y0)
	r01, g01, b01, a01, ok01 := get(x0, y1)
	r11, g11, b11, a11, ok11 := get(x1, y1)
	if !ok00 && !ok10 && !ok01 && !ok11 {
		return 0, 0, 0, 0, false
	}

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	rt := lerp(lerp(r00, r10, fx), lerp(r01, r11, fx), fy)
	gt := lerp(lerp(g00, g10, fx), lerp(g01, g11, fx), fy)
	bt := lerp(lerp(b00, b10, fx), lerp(b01, b11, fx), fy)
	at := lerp(lerp(a00, a10, fx), lerp(a01, a11, fx), fy)

	return clamp8(rt), clamp8(gt), clamp8(bt), clamp8(at), true
}
