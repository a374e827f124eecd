// Package editstate defines the per-asset edit parameters that drive a
// pipeline render: adjustments, tone curve, crop/rotation, and masks. A
// render is a pure function of (source pixels, EditState, resolution scale,
// enabled stages) — EditState itself carries no hidden state.
package editstate

// CurrentVersion is the schema version new EditState values are created at.
const CurrentVersion = 1

// Adjustments holds the ten global (or mask-local) scalar sliders. Zero
// value leaves pixels bit-identical to the input.
type Adjustments struct {
	Temperature float64 `json:"temperature"` // [-100,100]
	Tint        float64 `json:"tint"`        // [-100,100]
	Exposure    float64 `json:"exposure"`    // stops, [-5,5]
	Contrast    float64 `json:"contrast"`    // [-100,100]
	Highlights  float64 `json:"highlights"`  // [-100,100]
	Shadows     float64 `json:"shadows"`     // [-100,100]
	Whites      float64 `json:"whites"`      // [-100,100]
	Blacks      float64 `json:"blacks"`      // [-100,100]
	Vibrance    float64 `json:"vibrance"`    // [-100,100]
	Saturation  float64 `json:"saturation"`  // [-100,100]
}

// IsZero reports whether every field is at its default value.
func (a Adjustments) IsZero() bool {
	return a == Adjustments{}
}

// CurvePoint is one control point of the tone curve, normalized to [0,1]^2.
type CurvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultCurve is the identity tone curve.
func DefaultCurve() []CurvePoint {
	return []CurvePoint{{X: 0, Y: 0}, {X: 1, Y: 1}}
}

// Rect is a normalized crop rectangle, left/top/width/height in [0,1].
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rotation combines the user-set rotation angle and the fine straighten
// adjustment; CombinedAngle is what the pipeline actually applies.
type Rotation struct {
	Angle      float64 `json:"angle"`      // (-180,180]
	Straighten float64 `json:"straighten"` // [-45,45]
}

// CombinedAngle is the angle actually applied by the rotation stage.
func (r Rotation) CombinedAngle() float64 {
	return r.Angle + r.Straighten
}

// CropTransform bundles the optional crop rectangle with rotation.
type CropTransform struct {
	Crop     *Rect    `json:"crop,omitempty"`
	Rotation Rotation `json:"rotation"`
}

// IsIdentity reports whether the crop/rotation stage is a no-op: no crop (or
// a crop numerically within 0.001 of the full frame) and zero combined
// rotation, per the "crop-free invariant" in spec.md §4.3.
func (c CropTransform) IsIdentity() bool {
	const eps = 0.001
	if c.Rotation.CombinedAngle() != 0 {
		return false
	}
	if c.Crop == nil {
		return true
	}
	r := *c.Crop
	return absf(r.Left) <= eps && absf(r.Top) <= eps &&
		absf(r.Width-1) <= eps && absf(r.Height-1) <= eps
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// MaskKind distinguishes the two supported local-adjustment geometries.
type MaskKind string

const (
	MaskLinear MaskKind = "linear"
	MaskRadial MaskKind = "radial"
)

// LinearGeometry defines a band perpendicular to the line from (X0,Y0) to
// (X1,Y1): weight 0 at the first point, 1 at the second, linear between.
type LinearGeometry struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// RadialGeometry defines a core ellipse (weight 1) inside an outer ellipse
// (weight 0), with a smoothstep transition across the feather annulus.
type RadialGeometry struct {
	CenterX     float64 `json:"cx"`
	CenterY     float64 `json:"cy"`
	RadiusX     float64 `json:"rx"`
	RadiusY     float64 `json:"ry"`
	RotationRad float64 `json:"rotation"`
}

// Mask is one ordered local-adjustment layer.
type Mask struct {
	ID          string          `json:"id"`
	Kind        MaskKind        `json:"kind"`
	Enabled     bool            `json:"enabled"`
	Linear      *LinearGeometry `json:"linear,omitempty"`
	Radial      *RadialGeometry `json:"radial,omitempty"`
	Feather     float64         `json:"feather"` // [0,1]
	Invert      bool            `json:"invert"`  // radial only
	Adjustments Adjustments     `json:"adjustments"`
}

// EditState is the full, versioned set of parameters controlling a render
// of one asset.
type EditState struct {
	Version       int           `json:"version"`
	Adjustments   Adjustments   `json:"adjustments"`
	ToneCurve     []CurvePoint  `json:"toneCurve"`
	CropTransform CropTransform `json:"cropTransform"`
	Masks         []Mask        `json:"masks"`
}

// Default returns the identity EditState: every field at its default,
// rendering bit-identical to the decoded source.
func Default() *EditState {
	return &EditState{
		Version:       CurrentVersion,
		Adjustments:   Adjustments{},
		ToneCurve:     DefaultCurve(),
		CropTransform: CropTransform{Crop: nil, Rotation: Rotation{}},
		Masks:         nil,
	}
}
