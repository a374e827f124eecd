package editstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestValidateCurveRejectsNonMonotone(t *testing.T) {
	s := Default()
	s.ToneCurve = []CurvePoint{{X: 0, Y: 0}, {X: 0.5, Y: 0.8}, {X: 0.4, Y: 0.9}, {X: 1, Y: 1}}
	assert.Error(t, Validate(s))
}

func TestValidateCurveRejectsBadEndpoints(t *testing.T) {
	s := Default()
	s.ToneCurve = []CurvePoint{{X: 0.1, Y: 0}, {X: 1, Y: 1}}
	assert.Error(t, Validate(s))
}

func TestValidateCropRejectsOutOfBounds(t *testing.T) {
	s := Default()
	s.CropTransform.Crop = &Rect{Left: 0.6, Top: 0, Width: 0.6, Height: 1}
	assert.Error(t, Validate(s))
}

func TestValidateCropAcceptsFullFrame(t *testing.T) {
	s := Default()
	s.CropTransform.Crop = &Rect{Left: 0, Top: 0, Width: 1, Height: 1}
	assert.NoError(t, Validate(s))
}

func TestValidateMaskIDsRejectsDuplicates(t *testing.T) {
	s := Default()
	s.Masks = []Mask{
		{ID: "a", Kind: MaskLinear, Linear: &LinearGeometry{X1: 1}},
		{ID: "a", Kind: MaskLinear, Linear: &LinearGeometry{X1: 1}},
	}
	assert.Error(t, Validate(s))
}

func TestCropTransformIsIdentity(t *testing.T) {
	c := CropTransform{}
	assert.True(t, c.IsIdentity())

	c.Crop = &Rect{Left: 0.0005, Top: 0, Width: 0.9996, Height: 1}
	assert.True(t, c.IsIdentity(), "within 0.001 tolerance should still be identity")

	c.Crop = &Rect{Left: 0, Top: 0, Width: 0.5, Height: 1}
	assert.False(t, c.IsIdentity())
}

func TestCloneIsIndependent(t *testing.T) {
	s := Default()
	s.Masks = []Mask{{ID: "m1", Kind: MaskLinear, Linear: &LinearGeometry{X1: 1}}}

	clone := Clone(s)
	clone.Masks[0].ID = "changed"
	clone.ToneCurve[0].Y = 0.5

	assert.Equal(t, "m1", s.Masks[0].ID, "mutating the clone must not affect the source")
	assert.Equal(t, 0.0, s.ToneCurve[0].Y)
}

func TestAdjustmentsIsZero(t *testing.T) {
	assert.True(t, Adjustments{}.IsZero())
	assert.False(t, Adjustments{Exposure: 1}.IsZero())
}
