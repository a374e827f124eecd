package executor

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/literoom/engine/internal/engineerr"
)

func TestMemoryGuardChecksAvailableAgainstFloor(t *testing.T) {
	guard := &MemoryGuard{minAvailableBytes: 100, sample: func() (uint64, error) { return 50, nil }}
	err := guard.Check()
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.OutOfMemory))

	guard.sample = func() (uint64, error) { return 200, nil }
	assert.NoError(t, guard.Check())
}

func TestMemoryGuardTreatsSamplingFailureAsEnoughMemory(t *testing.T) {
	guard := &MemoryGuard{minAvailableBytes: 100, sample: func() (uint64, error) { return 0, errors.New("no /proc") }}
	assert.NoError(t, guard.Check())
}

func TestHalvedRequestHalvesExplicitMaxLongEdge(t *testing.T) {
	req := Request{Source: solidGray(100, 100, 0, 0, 0), MaxLongEdge: 2000}
	out := halvedRequest(req)
	assert.Equal(t, 1000, out.MaxLongEdge)
}

func TestHalvedRequestDerivesFromSourceWhenUnset(t *testing.T) {
	req := Request{Source: solidGray(400, 200, 0, 0, 0)}
	out := halvedRequest(req)
	assert.Equal(t, 200, out.MaxLongEdge)
}

func TestBackendSelectorRendersAtHalvedResolutionOnLowMemory(t *testing.T) {
	var seenMaxLongEdge []int
	probe := backendFunc(func(ctx context.Context, req Request) (*Result, error) {
		seenMaxLongEdge = append(seenMaxLongEdge, req.MaxLongEdge)
		return &Result{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Backend: "cpu"}, nil
	})
	sel := NewBackendSelector(nil, probe)
	sel.SetMemoryGuard(&MemoryGuard{minAvailableBytes: 1 << 40, sample: func() (uint64, error) { return 0, nil }})

	req := Request{Source: solidGray(800, 400, 0, 0, 0), Quality: QualityFull, MaxLongEdge: 800}
	_, err := sel.Render(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, seenMaxLongEdge, 1)
	assert.Equal(t, 400, seenMaxLongEdge[0])
}

func TestBackendSelectorSkipsGPUEntirelyOnLowMemory(t *testing.T) {
	gpuCalls := 0
	gpu := backendFunc(func(ctx context.Context, req Request) (*Result, error) {
		gpuCalls++
		return &Result{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Backend: "gpu"}, nil
	})
	cpuCalls := 0
	cpu := backendFunc(func(ctx context.Context, req Request) (*Result, error) {
		cpuCalls++
		return &Result{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Backend: "cpu"}, nil
	})
	sel := NewBackendSelector(gpu, cpu)
	sel.SetMemoryGuard(&MemoryGuard{minAvailableBytes: 1 << 40, sample: func() (uint64, error) { return 0, nil }})

	req := Request{Source: solidGray(800, 400, 0, 0, 0), Quality: QualityFull, MaxLongEdge: 800}
	res, err := sel.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, gpuCalls, "OutOfMemory must fall back to CPU, not just a lower resolution")
	assert.Equal(t, 1, cpuCalls)
	assert.Equal(t, "cpu", res.Backend)
}

func TestBackendSelectorSkipsMemoryCheckForDraftQuality(t *testing.T) {
	var seenMaxLongEdge []int
	probe := backendFunc(func(ctx context.Context, req Request) (*Result, error) {
		seenMaxLongEdge = append(seenMaxLongEdge, req.MaxLongEdge)
		return &Result{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), Backend: "cpu"}, nil
	})
	sel := NewBackendSelector(nil, probe)
	sel.SetMemoryGuard(&MemoryGuard{minAvailableBytes: 1 << 40, sample: func() (uint64, error) { return 0, nil }})

	req := Request{Source: solidGray(800, 400, 0, 0, 0), Quality: QualityDraft, MaxLongEdge: 800}
	_, err := sel.Render(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, seenMaxLongEdge, 1)
	assert.Equal(t, 800, seenMaxLongEdge[0], "draft-quality renders should not trigger the memory-guard halving")
}
