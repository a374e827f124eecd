package pipeline

import (
	"image"
	"math"

	"github.com/literoom/engine/internal/editstate"
)

// Adjustment math constants, pinned per spec.md §9's Open Question ("the
// exact numeric curves ... are not formally specified and must be pinned
// during implementation and frozen via golden tests"). Covered by the S1-S3
// golden tests in pipeline_test.go.
const (
	temperatureGain = 0.30
	temperatureCube = 0.20
	tintGreenGain   = 0.25
	tintCrossGain   = 0.15

	highlightLift = 0.35
	shadowLift    = 0.35
	whiteLift     = 0.45
	blackLift     = 0.45

	skinHueLo, skinHueHi = 15.0, 45.0
	skinProtectFactor    = 0.4
)

// ApplyAdjustments applies the ten fixed-sequence operations from spec.md
// §4.3 to every opaque pixel of img, in place, as a single per-pixel pass.
// At every field zero the function is the identity (no pixel write
// differs), satisfying the "all ten fields at default leave pixels
// bit-identical" requirement.
func ApplyAdjustments(img *image.RGBA, adj editstate.Adjustments) {
	if adj.IsZero() {
		return
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			idx := img.PixOffset(x, y)
			if img.Pix[idx+3] == 0 {
				continue // padding pixel, never touched
			}
			r := float64(img.Pix[idx+0]) / 255
			g := float64(img.Pix[idx+1]) / 255
			bch := float64(img.Pix[idx+2]) / 255

			r, g, bch = applyPixelAdjustments(r, g, bch, adj)

			img.Pix[idx+0] = clamp8(r * 255)
			img.Pix[idx+1] = clamp8(g * 255)
			img.Pix[idx+2] = clamp8(bch * 255)
		}
	}
}

// applyPixelAdjustments is the pure per-pixel core shared by the global
// adjustment pass and mask-local re-application (spec.md §4.3's "M_i is
// computed by re-running the adjustment step ... with mask-local
// adjustment values").
func applyPixelAdjustments(r, g, b float64, adj editstate.Adjustments) (float64, float64, float64) {
	r, g, b = applyTemperatureTint(r, g, b, adj.Temperature, adj.Tint)
	r, g, b = applyExposure(r, g, b, adj.Exposure)
	r, g, b = applyContrast(r, g, b, adj.Contrast)
	r, g, b = applyHighlightsShadows(r, g, b, adj.Highlights, adj.Shadows)
	r, g, b = applyWhitesBlacks(r, g, b, adj.Whites, adj.Blacks)
	r, g, b = applySaturation(r, g, b, adj.Saturation)
	r, g, b = applyVibrance(r, g, b, adj.Vibrance)
	return clampf(r, 0, 1), clampf(g, 0, 1), clampf(b, 0, 1)
}

func applyTemperatureTint(r, g, b, temperature, tint float64) (float64, float64, float64) {
	if temperature == 0 && tint == 0 {
		return r, g, b
	}
	t := temperature / 100
	// Negative cools (R down, B up); positive warms (R up, B down). A
	// cubic term gives the highlights a gentler roll-off than a pure
	// linear gain, matching the "matched cubic approximation" spec.md asks
	// for without claiming true Kelvin-space accuracy.
	warm := temperatureGain * (t + temperatureCube*t*t*t)
	gainR := 1 + warm
	gainB := 1 - warm

	s := tint / 100
	// Negative shifts toward green, positive toward magenta (R+B up, G down).
	gainG := 1 - tintGreenGain*s
	gainRT := 1 + tintCrossGain*s
	gainBT := 1 + tintCrossGain*s

	return r * gainR * gainRT, g * gainG, b * gainB * gainBT
}

func applyExposure(r, g, b, stops float64) (float64, float64, float64) {
	if stops == 0 {
		return r, g, b
	}
	// Well-known linear-in-sRGB approximation: scale the stored sRGB-encoded
	// value directly by 2^stops rather than round-tripping through scene-linear
	// light, the cheap 8-bit fast path.
	factor := math.Pow(2, stops)
	return r * factor, g * factor, b * factor
}

func applyContrast(r, g, b, contrast float64) (float64, float64, float64) {
	if contrast == 0 {
		return r, g, b
	}
	factor := 1 + contrast/100
	if factor < 0 {
		factor = 0
	}
	pivot := func(c float64) float64 { return (c-0.5)*factor + 0.5 }
	return pivot(r), pivot(g), pivot(b)
}

// smoothstep is the standard Hermite smoothstep, valid for edge1 < edge0 as
// well (the ratio's sign flips the ramp direction).
func smoothstep(edge0, edge1, x float64) float64 {
	t := clampf((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

func lift(c, amount, mask float64) float64 {
	if amount >= 0 {
		return c + amount*mask*(1-c)
	}
	return c + amount*mask*c
}

func applyHighlightsShadows(r, g, b, highlights, shadows float64) (float64, float64, float64) {
	if highlights == 0 && shadows == 0 {
		return r, g, b
	}
	lum := 0.299*r + 0.587*g + 0.114*b
	if highlights != 0 {
		mask := smoothstep(0.5, 1.0, lum)
		amount := highlights / 100 * highlightLift
		r, g, b = lift(r, amount, mask), lift(g, amount, mask), lift(b, amount, mask)
	}
	if shadows != 0 {
		mask := smoothstep(0.5, 0.0, lum)
		amount := shadows / 100 * shadowLift
		r, g, b = lift(r, amount, mask), lift(g, amount, mask), lift(b, amount, mask)
	}
	return r, g, b
}

func applyWhitesBlacks(r, g, b, whites, blacks float64) (float64, float64, float64) {
	if whites == 0 && blacks == 0 {
		return r, g, b
	}
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	if whites != 0 {
		mask := smoothstep(0.9, 1.0, maxC)
		amount := whites / 100 * whiteLift
		r, g, b = lift(r, amount, mask), lift(g, amount, mask), lift(b, amount, mask)
	}
	if blacks != 0 {
		mask := smoothstep(0.1, 0.0, minC)
		amount := blacks / 100 * blackLift
		r, g, b = lift(r, amount, mask), lift(g, amount, mask), lift(b, amount, mask)
	}
	return r, g, b
}

func applySaturation(r, g, b, saturation float64) (float64, float64, float64) {
	if saturation == 0 {
		return r, g, b
	}
	h, s, v := rgbToHSV(r, g, b)
	factor := 1 + saturation/100
	if factor < 0 {
		factor = 0
	}
	s = clampf(s*factor, 0, 1)
	return hsvToRGB(h, s, v)
}

func applyVibrance(r, g, b, vibrance float64) (float64, float64, float64) {
	if vibrance == 0 {
		return r, g, b
	}
	h, s, v := rgbToHSV(r, g, b)
	protect := skinProtect(h)
	boost := vibrance / 100 * (1 - s) * protect
	s = clampf(s+boost, 0, 1)
	return hsvToRGB(h, s, v)
}

// skinProtect returns a multiplier in [skinProtectFactor,1], dipping toward
// skinProtectFactor for hues in the skin-tone band (~15-45 degrees) so
// vibrance boosts skin tones less aggressively than other colors.
func skinProtect(hueDeg float64) float64 {
	const fadeWidth = 10.0
	if hueDeg >= skinHueLo && hueDeg <= skinHueHi {
		return skinProtectFactor
	}
	if hueDeg >= skinHueLo-fadeWidth && hueDeg < skinHueLo {
		t := (hueDeg - (skinHueLo - fadeWidth)) / fadeWidth
		return 1 - t*(1-skinProtectFactor)
	}
	if hueDeg > skinHueHi && hueDeg <= skinHueHi+fadeWidth {
		t := (hueDeg - skinHueHi) / fadeWidth
		return skinProtectFactor + t*(1-skinProtectFactor)
	}
	return 1.0
}

// rgbToHSV/hsvToRGB operate on [0,1] channels; hue is returned in degrees
// [0,360).
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC
	v = maxC
	if maxC > 0 {
		s = delta / maxC
	}
	if delta == 0 {
		h = 0
		return
	}
	switch maxC {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}
