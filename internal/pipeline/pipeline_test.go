package pipeline

import (
	"image"
	"testing"

	"github.com/literoom/engine/internal/editstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidGray(w, h int, r, g, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := img.PixOffset(x, y)
			img.Pix[idx+0] = r
			img.Pix[idx+1] = g
			img.Pix[idx+2] = b
			img.Pix[idx+3] = 255
		}
	}
	return img
}

func TestS1DefaultEditStateIsIdentity(t *testing.T) {
	src := solidGray(100, 100, 128, 128, 128)
	res := Run(src, editstate.Default(), nil)

	for i := 0; i < len(res.Image.Pix); i += 4 {
		require.EqualValues(t, 128, res.Image.Pix[i])
		require.EqualValues(t, 128, res.Image.Pix[i+1])
		require.EqualValues(t, 128, res.Image.Pix[i+2])
	}
	require.EqualValues(t, 10000, res.Histogram.L[128])
	for bin, count := range res.Histogram.L {
		if bin != 128 {
			assert.Zero(t, count)
		}
	}
	for _, c := range res.Clipping {
		assert.Zero(t, c)
	}
}

func TestS2FullStopExposureClipsToWhite(t *testing.T) {
	src := solidGray(100, 100, 128, 128, 128)
	state := editstate.Default()
	state.Adjustments.Exposure = 1.0
	res := Run(src, state, nil)

	for i := 0; i < len(res.Image.Pix); i += 4 {
		require.EqualValues(t, 255, res.Image.Pix[i])
		require.EqualValues(t, 255, res.Image.Pix[i+1])
		require.EqualValues(t, 255, res.Image.Pix[i+2])
	}
	require.EqualValues(t, 10000, res.Histogram.L[255])
	for _, c := range res.Clipping {
		assert.Equal(t, FlagHighlightR|FlagHighlightG|FlagHighlightB, c)
	}
}

func TestS3ContrastZeroIsIdentityAndExtremesPinned(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	set := func(x, y int, v uint8) {
		idx := img.PixOffset(x, y)
		img.Pix[idx], img.Pix[idx+1], img.Pix[idx+2], img.Pix[idx+3] = v, v, v, 255
	}
	set(0, 0, 0)
	set(1, 0, 255)
	set(0, 1, 0)
	set(1, 1, 255)

	state := editstate.Default()
	res := Run(img, state, nil)
	assert.Equal(t, img.Pix, res.Image.Pix)

	state.Adjustments.Contrast = 100
	res2 := Run(img, state, nil)
	assert.Equal(t, img.Pix, res2.Image.Pix, "extreme pixels already at the pivot bounds must stay pinned")
}

func TestS4CropMatchesInputOffset(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			idx := src.PixOffset(x, y)
			src.Pix[idx], src.Pix[idx+1], src.Pix[idx+2], src.Pix[idx+3] = uint8(x%256), uint8(y%256), 0, 255
		}
	}

	state := editstate.Default()
	state.CropTransform.Crop = &editstate.Rect{Left: 0.5, Top: 0, Width: 0.5, Height: 1}
	res := Run(src, state, NewStageSet([]Stage{StageRotation, StageCrop}))

	require.Equal(t, 100, res.Image.Bounds().Dx())
	require.Equal(t, 100, res.Image.Bounds().Dy())

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			gotIdx := res.Image.PixOffset(x, y)
			wantIdx := src.PixOffset(x+100, y)
			assert.Equal(t, src.Pix[wantIdx:wantIdx+3], res.Image.Pix[gotIdx:gotIdx+3])
		}
	}
}

func TestS6LinearMaskFadesFromSourceToDoubled(t *testing.T) {
	src := solidGray(100, 10, 64, 64, 64)
	state := editstate.Default()
	state.Masks = []editstate.Mask{
		{
			ID:      "m1",
			Kind:    editstate.MaskLinear,
			Enabled: true,
			Linear:  &editstate.LinearGeometry{X0: 0, Y0: 0, X1: 1, Y1: 0},
			Feather: 1,
			Adjustments: editstate.Adjustments{
				Exposure: 1,
			},
		},
	}
	res := Run(src, state, nil)

	leftIdx := res.Image.PixOffset(0, 5)
	rightIdx := res.Image.PixOffset(99, 5)
	// Left edge (near the mask's zero-weight end) stays close to the 64
	// source value; right edge (near full weight) approaches the +1 stop
	// result of the 8-bit path, which doubles the sRGB value (~128 for 64).
	assert.InDelta(t, 64, res.Image.Pix[leftIdx], 5)
	assert.InDelta(t, 128, res.Image.Pix[rightIdx], 8)
	assert.Greater(t, res.Image.Pix[rightIdx], res.Image.Pix[leftIdx])
}

func TestInvariant2DeterminismAcrossRuns(t *testing.T) {
	src := solidGray(50, 50, 10, 200, 90)
	state := editstate.Default()
	state.Adjustments.Vibrance = 30
	state.Adjustments.Highlights = -20

	res1 := Run(src, state, nil)
	res2 := Run(src, state, nil)
	assert.Equal(t, res1.Image.Pix, res2.Image.Pix)
	assert.Equal(t, *res1.Histogram, *res2.Histogram)
}

func TestInvariant4MonotoneCurveKeepsLuminanceOrder(t *testing.T) {
	lut := BuildCurveLUT([]editstate.CurvePoint{{X: 0, Y: 0}, {X: 0.5, Y: 0.3}, {X: 1, Y: 1}})
	for i := 1; i < 256; i++ {
		assert.GreaterOrEqual(t, lut[i], lut[i-1], "lut must be non-decreasing at index %d", i)
	}
}

func TestInvariant6DisabledMasksEqualGlobalOnly(t *testing.T) {
	src := solidGray(20, 20, 100, 120, 140)
	state := editstate.Default()
	state.Adjustments.Contrast = 15
	state.Masks = []editstate.Mask{
		{
			ID:          "m1",
			Kind:        editstate.MaskLinear,
			Enabled:     false,
			Linear:      &editstate.LinearGeometry{X1: 1},
			Adjustments: editstate.Adjustments{Exposure: 3},
		},
	}

	withDisabledMask := Run(src, state, nil)

	state.Masks = nil
	globalOnly := Run(src, state, nil)

	assert.Equal(t, globalOnly.Image.Pix, withDisabledMask.Image.Pix)
}

func TestInvariant9HistogramConservation(t *testing.T) {
	src := solidGray(30, 40, 50, 60, 70)
	res := Run(src, editstate.Default(), nil)

	opaque := 0
	b := res.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if res.Image.Pix[res.Image.PixOffset(x, y)+3] != 0 {
				opaque++
			}
		}
	}

	var sumR, sumL uint32
	for _, c := range res.Histogram.R {
		sumR += c
	}
	for _, c := range res.Histogram.L {
		sumL += c
	}
	assert.EqualValues(t, opaque, sumR)
	assert.EqualValues(t, opaque, sumL)
}

func TestRotationZeroIsNoOp(t *testing.T) {
	src := solidGray(10, 10, 5, 5, 5)
	out := Rotate(src, 0)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestRotationPaddingPixelsAreTransparent(t *testing.T) {
	src := solidGray(10, 10, 200, 200, 200)
	out := Rotate(src, 45)
	cornerIdx := out.PixOffset(0, 0)
	assert.Zero(t, out.Pix[cornerIdx+3], "corner of a 45-degree rotated square must be padding")
}
