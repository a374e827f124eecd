package executor

import (
	"context"
	"sync"
	"time"

	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/metrics"
)

// Backend renders one Request to completion. CPUBackend and GPUBackend are
// the two implementations; BackendSelector picks between them.
type Backend interface {
	Name() string
	Render(ctx context.Context, req Request) (*Result, error)
}

// maxConsecutiveGPUFailures is the spec.md §4.4 "three strikes" threshold:
// after this many consecutive GPU failures the selector stays on CPU until
// the process restarts or Reset is called explicitly.
const maxConsecutiveGPUFailures = 3

// BackendSelector prefers the GPU backend and falls back to CPU after three
// consecutive GPU failures, per spec.md §4.4: "the executor prefers the GPU
// backend... after three consecutive GPU failures it stays on the CPU
// backend until the process restarts or the caller explicitly resets it."
type BackendSelector struct {
	gpu    Backend
	cpu    Backend
	memory *MemoryGuard

	mu               sync.Mutex
	consecutiveFails int
	pinnedToCPU      bool
}

// NewBackendSelector builds a selector over the given GPU and CPU backends.
func NewBackendSelector(gpu, cpu Backend) *BackendSelector {
	return &BackendSelector{gpu: gpu, cpu: cpu}
}

// SetMemoryGuard installs the memory guard full-quality renders are checked
// against. A nil guard (the default) disables the check entirely.
func (s *BackendSelector) SetMemoryGuard(guard *MemoryGuard) {
	s.memory = guard
}

// Reset clears the pinned-to-CPU state, re-enabling GPU attempts.
func (s *BackendSelector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFails = 0
	s.pinnedToCPU = false
}

// Render dispatches req to the GPU backend unless the selector is pinned to
// CPU or the memory guard reports low memory, falling back to CPU on any
// GPU failure except cancellation, which is propagated rather than retried
// on the other backend.
func (s *BackendSelector) Render(ctx context.Context, req Request) (*Result, error) {
	lowMemory := false
	if req.Quality == QualityFull && s.memory != nil {
		if err := s.memory.Check(); err != nil {
			metrics.BackendFallbackTotal.WithLabelValues(string(engineerr.KindOf(err))).Inc()
			req = halvedRequest(req)
			lowMemory = true
		}
	}

	// spec.md §7: on OutOfMemory the executor falls back to CPU *and* to a
	// lower resolution, not resolution alone — skip the GPU attempt entirely
	// for this request rather than letting a starved GPU render the halved
	// request too.
	if !lowMemory && s.useGPU() {
		start := time.Now()
		res, err := s.gpu.Render(ctx, req)
		metrics.RenderDuration.WithLabelValues("gpu", string(req.Quality)).Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.RenderTotal.WithLabelValues("gpu", "success").Inc()
			s.recordSuccess()
			return res, nil
		}
		metrics.RenderTotal.WithLabelValues("gpu", "failure").Inc()
		if engineerr.Is(err, engineerr.Cancelled) {
			return nil, err
		}
		s.recordGPUFailure()
		metrics.BackendFallbackTotal.WithLabelValues(string(engineerr.KindOf(err))).Inc()
	}

	start := time.Now()
	res, err := s.cpu.Render(ctx, req)
	metrics.RenderDuration.WithLabelValues("cpu", string(req.Quality)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RenderTotal.WithLabelValues("cpu", "failure").Inc()
		return nil, err
	}
	metrics.RenderTotal.WithLabelValues("cpu", "success").Inc()
	return res, nil
}

func (s *BackendSelector) useGPU() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpu != nil && !s.pinnedToCPU
}

func (s *BackendSelector) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFails = 0
}

func (s *BackendSelector) recordGPUFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveFails++
	if s.consecutiveFails >= maxConsecutiveGPUFailures {
		s.pinnedToCPU = true
	}
}
