package editstate

import "github.com/jinzhu/copier"

// Clone returns a deep, independent copy of src. Copy/paste of edit
// settings between assets is a pure transformation over records, never a
// store method — see spec.md §9.
func Clone(src *EditState) *EditState {
	if src == nil {
		return nil
	}
	dst := &EditState{}
	// copier.Copy performs a deep field-by-field copy, including nested
	// slices/structs, which is what a naive `*dst = *src` would get wrong
	// for the ToneCurve/Masks slices (they would alias src's backing
	// arrays instead of being independently owned).
	_ = copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true})
	return dst
}

// CopyAdjustments copies only the global Adjustments block from src onto a
// clone of dst, leaving dst's crop, tone curve, and masks untouched. This is
// the "paste adjustments only" operation the catalog UI exposes.
func CopyAdjustments(src, dst *EditState) *EditState {
	out := Clone(dst)
	out.Adjustments = src.Adjustments
	return out
}

// CopyAll clones src's adjustments, tone curve, and crop/rotation onto a
// copy of dst, but never copies masks (masks are geometry tied to the
// source image and rarely transfer meaningfully between assets).
func CopyAll(src, dst *EditState) *EditState {
	out := Clone(dst)
	out.Adjustments = src.Adjustments
	out.ToneCurve = Clone(src).ToneCurve
	out.CropTransform = Clone(src).CropTransform
	return out
}
