// Package executor runs the pipeline package's per-pixel/geometry chain on
// one of two backends with identical observable output: a CPU backend that
// fans work out across goroutines, and a GPU backend that simulates the
// compute-pass/ping-pong-texture architecture spec.md §4.4 describes (no
// pack dependency exposes an importable GPU compute binding — see
// DESIGN.md). BackendSelector implements the preferred-GPU,
// fall-back-after-three-failures policy spec.md §4.4 specifies.
package executor

import (
	"image"

	"github.com/literoom/engine/internal/editstate"
	"github.com/literoom/engine/internal/pipeline"
)

// Quality selects the render's resolution/stage tradeoff.
type Quality string

const (
	QualityDraft Quality = "draft"
	QualityFull  Quality = "full"
)

// Request describes one render.
type Request struct {
	Source      *image.RGBA
	State       *editstate.EditState
	Quality     Quality
	MaxLongEdge int
	Stages      pipeline.StageSet
}

// Result is a completed render's output.
type Result struct {
	Image     *image.RGBA
	Histogram *pipeline.Histogram
	Clipping  []pipeline.ClippingFlags
	Backend   string
}

// effectiveStages applies the draft-quality stage-skipping rule from
// spec.md §4.4 on top of the caller's requested stage set: draft renders
// skip histogram and clipping. Skipping an unchanged tone-curve LUT rebuild
// is handled separately, for every quality, by curveLUTCache.
func effectiveStages(req Request) pipeline.StageSet {
	if req.Quality != QualityDraft {
		return req.Stages
	}
	base := req.Stages
	if base == nil {
		base = pipeline.NewStageSet([]pipeline.Stage{
			pipeline.StageRotation,
			pipeline.StageCrop,
			pipeline.StageAdjust,
			pipeline.StageToneCurve,
			pipeline.StageMasks,
		})
	}
	draft := make(pipeline.StageSet, len(base))
	for k, v := range base {
		draft[k] = v
	}
	delete(draft, pipeline.StageHistogram)
	delete(draft, pipeline.StageClipping)
	return draft
}
