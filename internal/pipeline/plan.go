package pipeline

import (
	"image"

	"github.com/literoom/engine/internal/editstate"
)

// Result is the output of running a full or partial pipeline Plan.
type Result struct {
	Image     *image.RGBA
	Histogram *Histogram
	Clipping  []ClippingFlags
}

// Run executes the fixed-order pipeline spec.md §4.3 defines — rotation,
// crop, global adjustments, tone curve, masks, histogram, clipping — over
// src, skipping any stage absent from stages (nil means "run everything").
// src is never mutated; Run always works on a private copy.
func Run(src *image.RGBA, state *editstate.EditState, stages StageSet) Result {
	img := cloneRGBA(src)

	if stages.Enabled(StageRotation) {
		angle := state.CropTransform.Rotation.CombinedAngle()
		img = Rotate(img, angle)
	}

	if stages.Enabled(StageCrop) {
		img = Crop(img, state.CropTransform.Crop)
	}

	if stages.Enabled(StageAdjust) {
		ApplyAdjustments(img, state.Adjustments)
	}

	if stages.Enabled(StageToneCurve) {
		lut := BuildCurveLUT(state.ToneCurve)
		ApplyToneCurve(img, lut)
	}

	if stages.Enabled(StageMasks) {
		ApplyMasks(img, state.Masks)
	}

	res := Result{Image: img}
	if stages.Enabled(StageHistogram) {
		h := ComputeHistogram(img)
		res.Histogram = &h
	}
	if stages.Enabled(StageClipping) {
		res.Clipping = ComputeClippingMap(img)
	}
	return res
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	out := newRGBA(src.Bounds().Dx(), src.Bounds().Dy())
	copy(out.Pix, src.Pix)
	return out
}
