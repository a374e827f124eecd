package executor

import (
	"context"
	"image"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/metrics"
	"github.com/literoom/engine/internal/pipeline"
	"github.com/literoom/engine/internal/resize"
)

// GPUBackend simulates the compute-pass / ping-pong-texture / staging-pool
// architecture spec.md §4.4 describes for a real GPU executor. No pack
// dependency exposes an importable GPU compute binding (see DESIGN.md), so
// each "pass" below is plain Go work distributed across a worker pool
// rather than a dispatched compute shader. The texture lifecycle is
// simplified: the source is copied into a TexturePool buffer, rotation and
// crop produce new buffers (the previous one is released to the pool), the
// per-pixel passes run in place on a single buffer rather than ping-ponging
// between two, and histogram/clipping readback is gated by the staging pool.
type GPUBackend struct {
	textures *TexturePool
	staging  *stagingBufferPool
	curves   *curveLUTCache

	mu            sync.Mutex
	lastHistogram *pipeline.Histogram
	lastClipping  []pipeline.ClippingFlags
}

// NewGPUBackend constructs a GPU-simulation backend with its own texture
// pool, staging pool, and tone-curve LUT cache.
func NewGPUBackend() *GPUBackend {
	return &GPUBackend{
		textures: NewTexturePool(),
		staging:  newStagingBufferPool(1),
		curves:   newCurveLUTCache(),
	}
}

func (b *GPUBackend) Name() string { return "gpu" }

// Render implements Backend. It produces output that must agree with
// CPUBackend.Render to within 1/255 per channel (invariant I3): every
// per-pixel stage below calls the exact same pipeline functions the CPU
// backend calls, only the scheduling differs.
func (b *GPUBackend) Render(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled before start", err)
	}

	stages := effectiveStages(req)
	bounds := req.Source.Bounds()

	front := b.textures.Acquire(bounds.Dx(), bounds.Dy(), "rgba8")
	copy(front.Pix, req.Source.Pix)
	img := front

	if stages.Enabled(pipeline.StageRotation) {
		rotated := pipeline.Rotate(img, req.State.CropTransform.Rotation.CombinedAngle())
		b.textures.Release(img, "rgba8")
		img = rotated
	}
	if err := ctx.Err(); err != nil {
		b.textures.Release(img, "rgba8")
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled after rotation", err)
	}

	if stages.Enabled(pipeline.StageCrop) {
		cropped := pipeline.Crop(img, req.State.CropTransform.Crop)
		b.textures.Release(img, "rgba8")
		img = cropped
	}
	if err := ctx.Err(); err != nil {
		b.textures.Release(img, "rgba8")
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled after crop", err)
	}

	if req.MaxLongEdge > 0 {
		resized, err := resize.ResizeToFit(img, req.MaxLongEdge, resize.FilterBilinear)
		if err != nil {
			b.textures.Release(img, "rgba8")
			return nil, err
		}
		b.textures.Release(img, "rgba8")
		img = resized
	}

	if stages.Enabled(pipeline.StageAdjust) {
		if err := b.dispatchPass(ctx, img, func(band *image.RGBA) {
			pipeline.ApplyAdjustments(band, req.State.Adjustments)
		}); err != nil {
			b.textures.Release(img, "rgba8")
			return nil, err
		}
	}

	if stages.Enabled(pipeline.StageToneCurve) {
		lut := b.curves.get(req.State.ToneCurve)
		if err := b.dispatchPass(ctx, img, func(band *image.RGBA) {
			pipeline.ApplyToneCurve(band, lut)
		}); err != nil {
			b.textures.Release(img, "rgba8")
			return nil, err
		}
	}

	if stages.Enabled(pipeline.StageMasks) {
		pipeline.ApplyMasks(img, req.State.Masks)
	}
	if err := ctx.Err(); err != nil {
		b.textures.Release(img, "rgba8")
		return nil, engineerr.Wrap(engineerr.Cancelled, "render cancelled after masks", err)
	}

	// Copy out of the pooled buffer before returning it: the caller owns
	// the Result.Image past this point, the pool must not retain aliases.
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	b.textures.Release(img, "rgba8")

	res := &Result{Image: out, Backend: b.Name()}

	if stages.Enabled(pipeline.StageHistogram) {
		if buf, ok := b.staging.tryAcquire(); ok {
			h := pipeline.ComputeHistogram(out)
			res.Histogram = &h
			b.mu.Lock()
			b.lastHistogram = &h
			b.mu.Unlock()
			b.staging.release(buf)
		} else {
			metrics.StagingPoolExhaustedTotal.Inc()
			b.mu.Lock()
			res.Histogram = b.lastHistogram
			b.mu.Unlock()
		}
	}
	if stages.Enabled(pipeline.StageClipping) {
		if buf, ok := b.staging.tryAcquire(); ok {
			c := pipeline.ComputeClippingMap(out)
			res.Clipping = c
			b.mu.Lock()
			b.lastClipping = c
			b.mu.Unlock()
			b.staging.release(buf)
		} else {
			metrics.StagingPoolExhaustedTotal.Inc()
			b.mu.Lock()
			res.Clipping = b.lastClipping
			b.mu.Unlock()
		}
	}
	return res, nil
}

// dispatchPass runs fn over img split into row bands across a worker pool,
// the simulated analogue of dispatching a compute shader over the image's
// work-groups.
func (b *GPUBackend) dispatchPass(ctx context.Context, img *image.RGBA, fn func(*image.RGBA)) error {
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
				return engineerr.New(engineerr.Internal, "compute pass band was not *image.RGBA")
			}
			fn(sub)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return engineerr.Wrap(engineerr.Cancelled, "compute pass cancelled", err)
	}
	return nil
}
