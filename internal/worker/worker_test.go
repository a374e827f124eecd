package worker

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/literoom/engine/internal/editstate"
	"github.com/literoom/engine/internal/executor"
)

func solidGray(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}

// stubBackend answers every render immediately, counting invocations.
type stubBackend struct {
	calls int
}

func (b *stubBackend) Name() string { return "cpu" }

func (b *stubBackend) Render(ctx context.Context, req executor.Request) (*executor.Result, error) {
	b.calls++
	return &executor.Result{Image: req.Source, Backend: "cpu"}, nil
}

func newTestWorker(backend executor.Backend) *Worker {
	sel := executor.NewBackendSelector(nil, backend)
	return New(sel)
}

func TestWorkerSubmitReturnsResultCorrelatedByID(t *testing.T) {
	w := newTestWorker(&stubBackend{})
	defer w.Stop()

	req := RenderRequest{
		AssetID: "asset-1",
		Source:  &executor.Request{Source: solidGray(4, 4), State: editstate.Default(), Quality: executor.QualityFull},
	}
	resp, err := w.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "cpu", resp.Backend)
	require.NotNil(t, resp.Result)
}

func TestWorkerSubmitHonorsCallerSuppliedID(t *testing.T) {
	w := newTestWorker(&stubBackend{})
	defer w.Stop()

	req := RenderRequest{
		ID:      "caller-assigned",
		Source:  &executor.Request{Source: solidGray(4, 4), State: editstate.Default(), Quality: executor.QualityFull},
	}
	resp, err := w.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "caller-assigned", resp.ID)
}

func TestWorkerSubmitPropagatesAlreadyCancelledContext(t *testing.T) {
	w := newTestWorker(&stubBackend{})
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := RenderRequest{Source: &executor.Request{Source: solidGray(4, 4), State: editstate.Default(), Quality: executor.QualityFull}}
	_, err := w.Submit(ctx, req)
	require.Error(t, err)
}

func TestWorkerSerializesConcurrentSubmits(t *testing.T) {
	backend := &stubBackend{}
	w := newTestWorker(backend)
	defer w.Stop()

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			req := RenderRequest{Source: &executor.Request{Source: solidGray(4, 4), State: editstate.Default(), Quality: executor.QualityFull}}
			_, err := w.Submit(context.Background(), req)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, n, backend.calls)
}

func TestDebouncerCoalescesRapidSchedulesIntoOneFire(t *testing.T) {
	d := &Debouncer{window: 20 * time.Millisecond, timers: map[string]*time.Timer{}, latest: map[string]RenderRequest{}, cancels: map[string]context.CancelFunc{}}

	fired := make(chan RenderRequest, 4)
	fire := func(ctx context.Context, req RenderRequest) { fired <- req }

	d.Schedule("asset-1", RenderRequest{ID: "first"}, fire)
	d.Schedule("asset-1", RenderRequest{ID: "second"}, fire)
	d.Schedule("asset-1", RenderRequest{ID: "third"}, fire)

	select {
	case req := <-fired:
		assert.Equal(t, "third", req.ID)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("debounced fire never happened")
	}

	select {
	case <-fired:
		t.Fatal("expected only the latest scheduled request to fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerFlushCancelsPendingFire(t *testing.T) {
	d := NewDebouncer()
	d.window = 20 * time.Millisecond

	fired := make(chan struct{}, 1)
	d.Schedule("asset-1", RenderRequest{ID: "x"}, func(ctx context.Context, req RenderRequest) { fired <- struct{}{} })
	d.Flush("asset-1")

	select {
	case <-fired:
		t.Fatal("flushed debounce should not fire")
	case <-time.After(60 * time.Millisecond):
	}
}
