package pipeline

import (
	"image"
	"math"
	"sort"

	"github.com/literoom/engine/internal/editstate"
)

// BuildCurveLUT converts a control-point tone curve into a 256-entry lookup
// table using Fritsch-Carlson monotone cubic Hermite interpolation, so the
// curve is guaranteed non-decreasing end to end even between sparse control
// points (spec.md §4.3's "fit with a monotone cubic ... the implementation
// must guarantee the interpolated curve is itself non-decreasing").
func BuildCurveLUT(points []editstate.CurvePoint) [256]uint8 {
	pts := make([]editstate.CurvePoint, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	n := len(pts)
	var lut [256]uint8
	if n < 2 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range pts {
		xs[i] = p.X
		ys[i] = p.Y
	}

	// Secant slopes between consecutive points, and tangents m_i via the
	// Fritsch-Carlson rule: zero the tangent at any point where the secant
	// changes sign or is flat, otherwise a weighted harmonic-style average
	// that keeps the Hermite segment monotone.
	d := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		dx := xs[i+1] - xs[i]
		if dx <= 0 {
			d[i] = 0
		} else {
			d[i] = (ys[i+1] - ys[i]) / dx
		}
	}
	m := make([]float64, n)
	m[0] = d[0]
	m[n-1] = d[n-2]
	for i := 1; i < n-1; i++ {
		if d[i-1] == 0 || d[i] == 0 || (d[i-1] > 0) != (d[i] > 0) {
			m[i] = 0
		} else {
			m[i] = (d[i-1] + d[i]) / 2
		}
	}
	for i := 0; i < n-1; i++ {
		if d[i] == 0 {
			m[i], m[i+1] = 0, 0
			continue
		}
		a := m[i] / d[i]
		b := m[i+1] / d[i]
		if a < 0 {
			m[i] = 0
		}
		if b < 0 {
			m[i+1] = 0
		}
		sq := a*a + b*b
		if sq > 9 {
			tau := 3 / math.Sqrt(sq)
			m[i] = tau * a * d[i]
			m[i+1] = tau * b * d[i]
		}
	}

	hermite := func(seg int, t float64) float64 {
		dx := xs[seg+1] - xs[seg]
		h00 := 2*t*t*t - 3*t*t + 1
		h10 := t*t*t - 2*t*t + t
		h01 := -2*t*t*t + 3*t*t
		h11 := t*t*t - t*t
		return h00*ys[seg] + h10*dx*m[seg] + h01*ys[seg+1] + h11*dx*m[seg+1]
	}

	seg := 0
	for i := 0; i < 256; i++ {
		x := float64(i) / 255
		for seg < n-2 && x > xs[seg+1] {
			seg++
		}
		dx := xs[seg+1] - xs[seg]
		var t float64
		if dx > 0 {
			t = (x - xs[seg]) / dx
		}
		lut[i] = clamp8(hermite(seg, t) * 255)
	}

	// Enforce non-decreasing output even across floating point noise at
	// segment boundaries, so the LUT satisfies monotonicity exactly.
	for i := 1; i < 256; i++ {
		if lut[i] < lut[i-1] {
			lut[i] = lut[i-1]
		}
	}
	return lut
}

// ApplyToneCurve applies lut to every channel of every opaque pixel in img,
// in place.
func ApplyToneCurve(img *image.RGBA, lut [256]uint8) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			idx := img.PixOffset(x, y)
			if img.Pix[idx+3] == 0 {
				continue
			}
			img.Pix[idx+0] = lut[img.Pix[idx+0]]
			img.Pix[idx+1] = lut[img.Pix[idx+1]]
			img.Pix[idx+2] = lut[img.Pix[idx+2]]
		}
	}
}

// IdentityLUT returns the no-op 256-entry lookup table, used when a caller
// needs an explicit LUT value for the default curve without allocating
// control points.
func IdentityLUT() [256]uint8 {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(i)
	}
	return lut
}
