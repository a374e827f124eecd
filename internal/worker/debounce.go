package worker

import (
	"context"
	"sync"
	"time"
)

// dragDebounceWindow is the quiet period spec.md §5 calls for between the
// last slider movement and the full-quality render it settles into: long
// enough to coalesce a drag gesture's draft renders, short enough that the
// full render still feels immediate once the user stops.
const dragDebounceWindow = 300 * time.Millisecond

// Debouncer coalesces a rapid series of draft renders for the same key
// (typically an asset ID) into a single full-quality render fired after the
// caller goes quiet for dragDebounceWindow. Superseded requests are dropped
// without ever reaching the worker.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	latest  map[string]RenderRequest
	cancels map[string]context.CancelFunc
}

// NewDebouncer builds a Debouncer using the standard spec.md §5 quiet
// window.
func NewDebouncer() *Debouncer {
	return &Debouncer{
		window:  dragDebounceWindow,
		timers:  make(map[string]*time.Timer),
		latest:  make(map[string]RenderRequest),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Schedule replaces any pending render for key with req, resetting the
// quiet-period timer, and arranges for fire to be called with the latest
// request once the window elapses uninterrupted. A call to Schedule before
// the timer fires cancels the previous context passed to fire.
func (d *Debouncer) Schedule(key string, req RenderRequest, fire func(context.Context, RenderRequest)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cancel, ok := d.cancels[key]; ok {
		cancel()
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancels[key] = cancel
	d.latest[key] = req

	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		pending := d.latest[key]
		delete(d.timers, key)
		delete(d.latest, key)
		delete(d.cancels, key)
		d.mu.Unlock()
		fire(ctx, pending)
	})
}

// Flush cancels any pending debounce for key without firing it, used when a
// caller navigates away mid-drag and the coalesced render is no longer
// wanted.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cancel, ok := d.cancels[key]; ok {
		cancel()
	}
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	delete(d.timers, key)
	delete(d.latest, key)
	delete(d.cancels, key)
}
