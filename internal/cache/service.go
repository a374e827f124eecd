package cache

import (
	"context"
	"image"
	"sync"

	"github.com/literoom/engine/internal/metrics"
)

// Service is the thumbnail/preview orchestration from spec.md §4.5: a
// priority queue feeding a single-threaded consumer that checks the memory
// LRU, then the persistent cache, then generates via Source, coalescing
// concurrent requests for the same key (invariant T1).
type Service struct {
	source Source
	thumbs *memoryLRU
	prevs  *memoryLRU
	disk   *diskCache

	mu          sync.Mutex
	queue       *priorityQueue
	subscribers map[Key][]chan Outcome
	wake        chan struct{}
}

// NewService builds a Service backed by source for cache misses and diskDir
// for the persistent tier.
func NewService(source Source, diskDir string) (*Service, error) {
	disk, err := newDiskCache(diskDir)
	if err != nil {
		return nil, err
	}
	s := &Service{
		source:      source,
		disk:        disk,
		queue:       newPriorityQueue(),
		subscribers: make(map[Key][]chan Outcome),
		wake:        make(chan struct{}, 1),
	}
	s.thumbs = newMemoryLRU(thumbnailCacheCapacity, s.onEvict(SizeThumbnail))
	s.prevs = newMemoryLRU(previewCacheCapacity, s.onEvict(SizePreview))
	return s, nil
}

func (s *Service) onEvict(size Size) func(Key, *image.RGBA) {
	return func(key Key, _ *image.RGBA) {
		metrics.CacheHitTotal.WithLabelValues(string(size), "evicted").Inc()
	}
}

func (s *Service) lruFor(size Size) *memoryLRU {
	if size == SizePreview {
		return s.prevs
	}
	return s.thumbs
}

// Request enqueues a generation for key at the given priority and returns a
// channel that receives exactly one Outcome. If a generation for key is
// already queued or in flight, the caller's channel is attached to it
// instead of starting a second generation (T1), and the existing request's
// priority is raised if the new one is higher.
func (s *Service) Request(key Key, priority Priority) <-chan Outcome {
	ch := make(chan Outcome, 1)

	s.mu.Lock()
	if img, ok := s.lruFor(key.Size).get(key); ok {
		s.mu.Unlock()
		metrics.CacheHitTotal.WithLabelValues(string(key.Size), "memory").Inc()
		ch <- Outcome{Key: key, Image: img}
		close(ch)
		return ch
	}
	s.subscribers[key] = append(s.subscribers[key], ch)
	s.queue.push(key, priority)
	s.mu.Unlock()

	metrics.QueueDepth.Set(float64(s.queueLen()))
	s.nudge()
	return ch
}

func (s *Service) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

func (s *Service) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run is the single-threaded consumer loop. It blocks until ctx is
// cancelled, processing one queued generation at a time — the logical
// single worker thread spec.md §5 describes for the engine's cache tier.
func (s *Service) Run(ctx context.Context) {
	for {
		key, ok := s.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}
		s.generate(ctx, key)
		metrics.QueueDepth.Set(float64(s.queueLen()))
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Service) dequeue() (Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.pop()
}

func (s *Service) generate(ctx context.Context, key Key) {
	lru := s.lruFor(key.Size)

	if img, found, err := s.disk.load(key, decodeWebP); err == nil && found {
		metrics.CacheHitTotal.WithLabelValues(string(key.Size), "disk").Inc()
		lru.put(key, img)
		lru.pin(key)
		s.deliver(key, Outcome{Key: key, Image: img})
		lru.unpin(key)
		return
	}

	if ctx.Err() != nil {
		s.deliver(key, Outcome{Key: key, Err: ctx.Err()})
		return
	}

	img, err := s.source.Load(key.AssetID, key.Size)
	if err != nil {
		metrics.CacheHitTotal.WithLabelValues(string(key.Size), "miss").Inc()
		s.deliver(key, Outcome{Key: key, Err: err})
		return
	}

	lru.put(key, img)
	lru.pin(key)
	if err := s.disk.store(key, img, encodeWebP); err != nil {
		// Persisting is best-effort: the render itself still succeeded and
		// is already in the memory tier, so a disk write failure is not
		// surfaced to subscribers.
		_ = err
	}
	s.deliver(key, Outcome{Key: key, Image: img})
	lru.unpin(key)
}

// deliver fans out one outcome to every subscriber waiting on key, then
// clears the subscriber list so a future Request starts a fresh
// generation.
func (s *Service) deliver(key Key, outcome Outcome) {
	s.mu.Lock()
	chans := s.subscribers[key]
	delete(s.subscribers, key)
	s.mu.Unlock()

	for _, ch := range chans {
		ch <- outcome
		close(ch)
	}
}
