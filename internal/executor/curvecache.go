package executor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/literoom/engine/internal/editstate"
	"github.com/literoom/engine/internal/pipeline"
)

// curveLUTCache memoizes BuildCurveLUT by control-point value, satisfying
// spec.md §4.4's draft-quality "skip tone curve LUT re-build if curve
// unchanged" rule without threading extra state through every render call.
// Holds a single entry, the last curve built, since a session only ever
// edits one asset's curve at a time.
type curveLUTCache struct {
	mu      sync.Mutex
	key     string
	lut     [256]uint8
	hasData bool
}

func newCurveLUTCache() *curveLUTCache {
	return &curveLUTCache{}
}

func (c *curveLUTCache) get(points []editstate.CurvePoint) [256]uint8 {
	key := curveKey(points)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasData && c.key == key {
		return c.lut
	}
	c.lut = pipeline.BuildCurveLUT(points)
	c.key = key
	c.hasData = true
	return c.lut
}

func curveKey(points []editstate.CurvePoint) string {
	var b strings.Builder
	for _, p := range points {
		fmt.Fprintf(&b, "%.6f,%.6f;", p.X, p.Y)
	}
	return b.String()
}
