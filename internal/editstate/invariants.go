package editstate

import (
	"fmt"

	"github.com/literoom/engine/internal/engineerr"
)

// Validate checks invariants I1-I3 from spec.md §3 (tone curve monotonicity,
// crop containment, unique mask ids). It does not check I4 (version only
// advances via migration) — that is enforced by the migration registry, not
// by structural validation of a single snapshot.
func Validate(s *EditState) error {
	if err := validateCurve(s.ToneCurve); err != nil {
		return err
	}
	if err := validateCrop(s.CropTransform.Crop); err != nil {
		return err
	}
	if err := validateMaskIDs(s.Masks); err != nil {
		return err
	}
	return nil
}

func validateCurve(points []CurvePoint) error {
	if len(points) < 2 {
		return engineerr.New(engineerr.Internal, "tone curve must have at least 2 control points")
	}
	if points[0].X != 0 {
		return engineerr.New(engineerr.Internal, "tone curve must start at x=0")
	}
	if points[len(points)-1].X != 1 {
		return engineerr.New(engineerr.Internal, "tone curve must end at x=1")
	}
	for i, p := range points {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return engineerr.New(engineerr.Internal, fmt.Sprintf("tone curve point %d out of [0,1]^2", i))
		}
		if i > 0 && points[i-1].X >= p.X {
			return engineerr.New(engineerr.Internal, fmt.Sprintf("tone curve x values must be strictly increasing at index %d", i))
		}
	}
	return nil
}

func validateCrop(r *Rect) error {
	if r == nil {
		return nil
	}
	if r.Width <= 0 || r.Height <= 0 {
		return engineerr.New(engineerr.Internal, "crop width/height must be positive")
	}
	if r.Left < 0 || r.Top < 0 {
		return engineerr.New(engineerr.Internal, "crop left/top must be non-negative")
	}
	if r.Left+r.Width > 1+1e-9 || r.Top+r.Height > 1+1e-9 {
		return engineerr.New(engineerr.Internal, "crop rectangle must lie fully within [0,1]^2")
	}
	return nil
}

func validateMaskIDs(masks []Mask) error {
	seen := make(map[string]bool, len(masks))
	for _, m := range masks {
		if m.ID == "" {
			return engineerr.New(engineerr.Internal, "mask id must not be empty")
		}
		if seen[m.ID] {
			return engineerr.New(engineerr.Internal, fmt.Sprintf("duplicate mask id %q", m.ID))
		}
		seen[m.ID] = true
	}
	return nil
}
