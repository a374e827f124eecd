package pipeline

import (
	"image"
	"math"

	"github.com/literoom/engine/internal/editstate"
)

// ApplyMasks runs each enabled mask's adjustments over img, in mask order,
// per spec.md §4.3: for every mask, the masked-local result M_i is computed
// by re-running the fixed adjustment sequence with the mask's own
// Adjustments, then blended back into the canvas with weight
// maskWeight(x,y) * (1 - maskWeight already applied by earlier masks is NOT
// composed — each mask reads the canvas as modified by the previous mask,
// matching sequential (not independent-then-merge) compositing).
func ApplyMasks(img *image.RGBA, masks []editstate.Mask) {
	for _, m := range masks {
		if !m.Enabled || m.Adjustments.IsZero() {
			continue
		}
		applyMask(img, m)
	}
}

func applyMask(img *image.RGBA, m editstate.Mask) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			if img.Pix[idx+3] == 0 {
				continue
			}
			u := (float64(x) + 0.5) / float64(w)
			v := (float64(y) + 0.5) / float64(h)
			weight := maskWeight(m, u, v)
			if weight <= 0 {
				continue
			}

			r := float64(img.Pix[idx+0]) / 255
			g := float64(img.Pix[idx+1]) / 255
			bch := float64(img.Pix[idx+2]) / 255

			mr, mg, mb := applyPixelAdjustments(r, g, bch, m.Adjustments)

			img.Pix[idx+0] = clamp8((r + (mr-r)*weight) * 255)
			img.Pix[idx+1] = clamp8((g + (mg-g)*weight) * 255)
			img.Pix[idx+2] = clamp8((bch + (mb-bch)*weight) * 255)
		}
	}
}

// maskWeight returns the (possibly feathered) mask coverage at normalized
// coordinate (u,v), in [0,1].
func maskWeight(m editstate.Mask, u, v float64) float64 {
	var w float64
	switch m.Kind {
	case editstate.MaskLinear:
		w = linearWeight(m.Linear, m.Feather, u, v)
	case editstate.MaskRadial:
		w = radialWeight(m.Radial, m.Feather, u, v)
	default:
		return 0
	}
	if m.Invert && m.Kind == editstate.MaskRadial {
		w = 1 - w
	}
	return w
}

// linearWeight implements a linear gradient mask: zero coverage at (x0,y0),
// ramping up to full coverage by (x1,y1), with the ramp spread over the
// feather fraction of the gradient length via smoothstep.
func linearWeight(g *editstate.LinearGeometry, feather, u, v float64) float64 {
	if g == nil {
		return 0
	}
	dx, dy := g.X1-g.X0, g.Y1-g.Y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 1
	}
	nx, ny := dx/length, dy/length
	proj := (u-g.X0)*nx + (v-g.Y0)*ny
	t := proj / length

	featherFrac := clampf(feather, 0, 1)
	if featherFrac == 0 {
		if t >= 1 {
			return 1
		}
		return 0
	}
	return smoothstep(1-featherFrac, 1, t)
}

// radialWeight implements an elliptical radial mask: full coverage inside
// the ellipse, fading to zero over the feather fraction of the radius,
// optionally rotated by RotationRad.
func radialWeight(g *editstate.RadialGeometry, feather, u, v float64) float64 {
	if g == nil {
		return 0
	}
	dx, dy := u-g.CenterX, v-g.CenterY
	cos, sin := math.Cos(-g.RotationRad), math.Sin(-g.RotationRad)
	rx := dx*cos - dy*sin
	ry := dx*sin + dy*cos

	rax := g.RadiusX
	ray := g.RadiusY
	if rax <= 0 {
		rax = 1e-6
	}
	if ray <= 0 {
		ray = 1e-6
	}
	dist := math.Hypot(rx/rax, ry/ray)

	featherFrac := clampf(feather, 0, 1)
	if featherFrac == 0 {
		if dist <= 1 {
			return 1
		}
		return 0
	}
	inner := 1 - featherFrac
	return 1 - smoothstep(inner, 1, dist)
}
