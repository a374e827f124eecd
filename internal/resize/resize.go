// Package resize implements the deterministic scaling stage that sits
// between decode and the pipeline: resize to exact dimensions, or resize to
// fit within a max long edge without ever upscaling.
package resize

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/literoom/engine/internal/engineerr"
)

// Filter selects the resampling kernel.
type Filter string

const (
	FilterNearest  Filter = "nearest"
	FilterBilinear Filter = "bilinear"
	FilterLanczos3 Filter = "lanczos3"
)

// interpolator maps a Filter to the golang.org/x/image/draw kernel that
// approximates it most closely. x/image/draw has no kernel literally named
// Lanczos3; CatmullRom is its closest cubic kernel and is used for the
// lanczos3 filter, documented in DESIGN.md rather than silently substituted.
func interpolator(f Filter) (xdraw.Interpolator, error) {
	switch f {
	case FilterNearest:
		return xdraw.NearestNeighbor, nil
	case FilterBilinear, "":
		return xdraw.BiLinear, nil
	case FilterLanczos3:
		return xdraw.CatmullRom, nil
	default:
		return nil, engineerr.New(engineerr.InvalidFormat, "unknown resize filter: "+string(f))
	}
}

// Resize scales src to exactly w x h using the given filter.
func Resize(src *image.RGBA, w, h int, filter Filter) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, engineerr.New(engineerr.InvalidFormat, "resize target dimensions must be positive")
	}
	sampler, err := interpolator(filter)
	if err != nil {
		return nil, err
	}

	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		out := image.NewRGBA(image.Rect(0, 0, w, h))
		copy(out.Pix, src.Pix)
		return out, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sampler.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return dst, nil
}

// ResizeToFit scales src so its long edge is at most maxEdge, preserving
// aspect ratio. If both dimensions already fit, it returns a copy of src
// (the "no-op clone reference" spec.md §4.2 asks for) without resampling.
func ResizeToFit(src *image.RGBA, maxEdge int, filter Filter) (*image.RGBA, error) {
	if maxEdge <= 0 {
		return nil, engineerr.New(engineerr.InvalidFormat, "resize-to-fit max edge must be positive")
	}
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw <= maxEdge && sh <= maxEdge {
		out := image.NewRGBA(image.Rect(0, 0, sw, sh))
		copy(out.Pix, src.Pix)
		return out, nil
	}

	var w, h int
	if sw >= sh {
		w = maxEdge
		h = int(float64(sh) * float64(maxEdge) / float64(sw))
	} else {
		h = maxEdge
		w = int(float64(sw) * float64(maxEdge) / float64(sh))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Resize(src, w, h, filter)
}
