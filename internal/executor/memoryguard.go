package executor

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/literoom/engine/internal/engineerr"
)

// defaultMinAvailableBytes is a conservative floor below which a
// full-resolution Sony ARW render (source + working copies, up to tens of
// megapixels of RGBA8) risks failing to allocate.
const defaultMinAvailableBytes = 512 * 1024 * 1024

// MemoryGuard samples available system memory (not process RSS) before a
// full-quality render and reports OutOfMemory when it is below the floor.
type MemoryGuard struct {
	minAvailableBytes uint64
	sample            func() (availableBytes uint64, err error)
}

// NewMemoryGuard builds a guard backed by github.com/shirou/gopsutil/v3.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		minAvailableBytes: defaultMinAvailableBytes,
		sample: func() (uint64, error) {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return vm.Available, nil
		},
	}
}

// Check returns an OutOfMemory error when available system memory is below
// the guard's floor. A sampling failure is treated as "assume enough" —
// the guard must never itself be the reason a render cannot proceed.
func (g *MemoryGuard) Check() error {
	available, err := g.sample()
	if err != nil {
		return nil
	}
	if available < g.minAvailableBytes {
		return engineerr.New(engineerr.OutOfMemory, "available system memory below render floor")
	}
	return nil
}

// halvedRequest returns a copy of req with MaxLongEdge halved, per spec.md
// §7's "executor must fall back to... a lower resolution." If req already
// specifies no explicit max edge, the source's long edge is halved instead
// so the halved request is still smaller than the original.
func halvedRequest(req Request) Request {
	out := req
	longEdge := req.MaxLongEdge
	if longEdge <= 0 {
		b := req.Source.Bounds()
		longEdge = b.Dx()
		if b.Dy() > longEdge {
			longEdge = b.Dy()
		}
	}
	out.MaxLongEdge = longEdge / 2
	if out.MaxLongEdge < 1 {
		out.MaxLongEdge = 1
	}
	return out
}
