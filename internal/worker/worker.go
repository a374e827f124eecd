// Package worker hosts the single goroutine through which every render
// passes: it owns the executor's BackendSelector, and the HTTP/WS surface in
// cmd/literoomd hands it typed request/response messages over a channel. It
// does not own the rest of the engine: decoding and resizing run in the
// calling handler's goroutine before a request is submitted, and the
// thumbnail/preview service (internal/cache) runs its own consumer loop.
package worker

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/literoom/engine/internal/editstate"
	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/executor"
	"github.com/literoom/engine/internal/metrics"
)

// RenderRequest is one render submitted to the worker. ID is opaque and
// only used to correlate the eventual RenderResponse; callers that don't
// already have one should leave it blank and use the ID Submit assigns.
type RenderRequest struct {
	ID          string              `json:"id"`
	AssetID     string              `json:"assetId"`
	Source      *executor.Request   `json:"-"`
	State       *editstate.EditState `json:"state"`
	Quality     executor.Quality    `json:"quality"`
	MaxLongEdge int                 `json:"maxLongEdge"`
}

// RenderResponse answers exactly one RenderRequest, correlated by ID.
type RenderResponse struct {
	ID      string           `json:"id"`
	Result  *executor.Result `json:"-"`
	Backend string           `json:"backend,omitempty"`
	Err     error            `json:"-"`
}

// requestQueueDepth bounds the worker's inbound channel. A full channel
// means the single render goroutine is saturated; Submit reports that as an
// Internal "render queue saturated" error rather than blocking the caller
// indefinitely.
const requestQueueDepth = 32

type envelope struct {
	ctx   context.Context
	req   RenderRequest
	reply chan RenderResponse
}

// Worker serializes every render through one goroutine, matching the
// TaskQueue-style single-consumer loop this module is adapted from.
type Worker struct {
	selector *executor.BackendSelector
	inbox    chan envelope
	done     chan struct{}
	closed   atomic.Bool
}

// New starts the worker goroutine backed by selector. Stop must be called
// to release it.
func New(selector *executor.BackendSelector) *Worker {
	w := &Worker{
		selector: selector,
		inbox:    make(chan envelope, requestQueueDepth),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	for env := range w.inbox {
		metrics.WorkerQueueDepth.Set(float64(len(w.inbox)))
		res, err := w.selector.Render(env.ctx, *env.req.Source)
		resp := RenderResponse{ID: env.req.ID, Err: err}
		if res != nil {
			resp.Result = res
			resp.Backend = res.Backend
		}
		env.reply <- resp
	}
}

// Submit enqueues req and blocks until its RenderResponse is ready, ctx is
// cancelled, or the worker's inbox is saturated. It assigns req.ID when the
// caller left it blank.
func (w *Worker) Submit(ctx context.Context, req RenderRequest) (RenderResponse, error) {
	if w.closed.Load() {
		return RenderResponse{}, engineerr.New(engineerr.Internal, "worker stopped")
	}
	if err := ctx.Err(); err != nil {
		return RenderResponse{}, engineerr.Wrap(engineerr.Cancelled, "render request cancelled before dispatch", err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	reply := make(chan RenderResponse, 1)
	select {
	case w.inbox <- envelope{ctx: ctx, req: req, reply: reply}:
	case <-ctx.Done():
		return RenderResponse{}, engineerr.Wrap(engineerr.Cancelled, "render request cancelled before dispatch", ctx.Err())
	default:
		return RenderResponse{}, engineerr.New(engineerr.Internal, "render queue saturated")
	}

	select {
	case resp := <-reply:
		if resp.Err != nil {
			return resp, resp.Err
		}
		return resp, nil
	case <-ctx.Done():
		return RenderResponse{}, engineerr.Wrap(engineerr.Cancelled, "render request cancelled", ctx.Err())
	}
}

// Stop closes the inbox and waits for the run loop to drain and exit. It is
// not safe to call Submit concurrently with Stop.
func (w *Worker) Stop() {
	if w.closed.CompareAndSwap(false, true) {
		close(w.inbox)
	}
	<-w.done
}
