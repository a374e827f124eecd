package executor

import (
	"context"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/pipeline"
	"github.com/literoom/engine/internal/resize"
)

// CPUBackend runs the pipeline as scalar loops striped across goroutines by
// row range in a "fan out, require all to succeed" shape, built here
// on golang.org/x/sync/errgroup since every row band must succeed for the
// render to be valid (a partial band failure should fail the whole render,
// not silently drop rows).
type CPUBackend struct {
	curves *curveLUTCache
}

// NewCPUBackend constructs a CPU backend with its own tone-curve LUT cache.
func NewCPUBackend() *CPUBackend {
	return &CPUBackend{curves: newCurveLUTCache()}
}

func (b *CPUBackend) Name() string { return "cpu" }

// Render implements Backend.
func (b *CPUBackend) Render(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled before start", err)
	}

	stages := effectiveStages(req)
	img := cloneRGBA(req.Source)

	if stages.Enabled(pipeline.StageRotation) {
		img = pipeline.Rotate(img, req.State.CropTransform.Rotation.CombinedAngle())
	}
	if err := ctx.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled after rotation", err)
	}

	if stages.Enabled(pipeline.StageCrop) {
		img = pipeline.Crop(img, req.State.CropTransform.Crop)
	}
	if err := ctx.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled after crop", err)
	}

	if req.MaxLongEdge > 0 {
		resized, err := resize.ResizeToFit(img, req.MaxLongEdge, resize.FilterBilinear)
		if err != nil {
			return nil, err
		}
		img = resized
	}

	if stages.Enabled(pipeline.StageAdjust) {
		if err := b.bandedRows(ctx, img, func(band *image.RGBA) {
			pipeline.ApplyAdjustments(band, req.State.Adjustments)
		}); err != nil {
			return nil, err
		}
	}

	if stages.Enabled(pipeline.StageToneCurve) {
		lut := b.curves.get(req.State.ToneCurve)
		if err := b.bandedRows(ctx, img, func(band *image.RGBA) {
			pipeline.ApplyToneCurve(band, lut)
		}); err != nil {
			return nil, err
		}
	}

	if stages.Enabled(pipeline.StageMasks) {
		pipeline.ApplyMasks(img, req.State.Masks)
	}
	if err := ctx.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled after masks", err)
	}

	res := &Result{Image: img, Backend: b.Name()}
	if stages.Enabled(pipeline.StageHistogram) {
		h := pipeline.ComputeHistogram(img)
		res.Histogram = &h
	}
	if stages.Enabled(pipeline.StageClipping) {
		res.Clipping = pipeline.ComputeClippingMap(img)
	}
	return res, nil
}

// bandedRows splits img into horizontal bands (sharing the underlying pixel
// slice via SubImage, never copying) and runs fn over each band
// concurrently. Safe because bands never overlap rows.
func (b *CPUBackend) bandedRows(ctx context.Context, img *image.RGBA, fn func(*image.RGBA)) error {
	bounds := img.Bounds()
	h := bounds.Dy()
	workers := runtime.GOMAXPROCS(0)
	if workers > h {
		workers = h
	}
	if workers < 1 {
		workers = 1
	}
	bandHeight := (h + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := bounds.Min.Y; start < bounds.Max.Y; start += bandHeight {
		end := start + bandHeight
		if end > bounds.Max.Y {
			end = bounds.Max.Y
		}
		rect := image.Rect(bounds.Min.X, start, bounds.Max.X, end)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sub, ok := img.SubImage(rect).(*image.RGBA)
			if !ok {
				return engineerr.New(engineerr.Internal, "row band SubImage was not *image.RGBA")
			}
			fn(sub)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return engineerr.Wrap(engineerr.Cancelled, "banded render cancelled", err)
	}
	return nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	copy(out.Pix, src.Pix)
	return out
}
