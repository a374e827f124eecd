package cache

import (
	"context"
	"errors"
	"image"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestPriorityQueueOrdersByPriorityThenFIFO(t *testing.T) {
	q := newPriorityQueue()
	q.push(Key{AssetID: "c", Size: SizeThumbnail}, PriorityPreload)
	q.push(Key{AssetID: "a", Size: SizeThumbnail}, PriorityVisible)
	q.push(Key{AssetID: "b", Size: SizeThumbnail}, PriorityVisible)
	q.push(Key{AssetID: "d", Size: SizeThumbnail}, PriorityNearVisible)

	var order []string
	for {
		k, ok := q.pop()
		if !ok {
			break
		}
		order = append(order, k.AssetID)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, order)
}

func TestPriorityQueueRepushRaisesPriorityWithoutDuplicating(t *testing.T) {
	q := newPriorityQueue()
	key := Key{AssetID: "a", Size: SizeThumbnail}
	q.push(key, PriorityPreload)
	q.push(Key{AssetID: "b", Size: SizeThumbnail}, PriorityNearVisible)
	q.push(key, PriorityVisible) // same key, higher priority

	require.Equal(t, 2, q.len())
	k, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, "a", k.AssetID, "repush should have promoted a ahead of b")
}

func TestMemoryLRUEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []Key
	lru := newMemoryLRU(2, func(k Key, _ *image.RGBA) { evicted = append(evicted, k) })

	k1 := Key{AssetID: "1", Size: SizeThumbnail}
	k2 := Key{AssetID: "2", Size: SizeThumbnail}
	k3 := Key{AssetID: "3", Size: SizeThumbnail}

	lru.put(k1, solidImage(1, 1, 1))
	lru.put(k2, solidImage(1, 1, 2))
	lru.get(k1) // k1 now most recently used; k2 is LRU
	lru.put(k3, solidImage(1, 1, 3))

	require.Len(t, evicted, 1)
	assert.Equal(t, k2, evicted[0])
	_, stillThere := lru.get(k1)
	assert.True(t, stillThere)
}

func TestMemoryLRUNeverEvictsPinnedEntry(t *testing.T) {
	var evicted []Key
	lru := newMemoryLRU(1, func(k Key, _ *image.RGBA) { evicted = append(evicted, k) })

	k1 := Key{AssetID: "1", Size: SizeThumbnail}
	k2 := Key{AssetID: "2", Size: SizeThumbnail}

	lru.put(k1, solidImage(1, 1, 1))
	lru.pin(k1)
	lru.put(k2, solidImage(1, 1, 2))

	assert.Equal(t, []Key{k2}, evicted, "pinned k1 must survive; the unpinned k2 is evicted in its place")
	_, ok := lru.get(k1)
	assert.True(t, ok)

	lru.unpin(k1)
	_, stillThere := lru.get(k1)
	assert.True(t, stillThere, "k1 alone is within capacity, so unpinning evicts nothing")
}

func TestDiskCacheRoundTripsAtomically(t *testing.T) {
	dir := t.TempDir()
	dc, err := newDiskCache(dir)
	require.NoError(t, err)

	key := Key{AssetID: "asset-1", Size: SizeThumbnail}
	img := solidImage(4, 4, 77)

	err = dc.store(key, img, func(w *os.File, img *image.RGBA) error {
		_, err := w.Write(img.Pix)
		return err
	})
	require.NoError(t, err)

	// No temp file should remain after a successful store.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file leaked: %s", e.Name())
	}

	loaded, found, err := dc.load(key, func(r *os.File) (*image.RGBA, error) {
		out := image.NewRGBA(image.Rect(0, 0, 4, 4))
		_, err := r.Read(out.Pix)
		return out, err
	})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, img.Pix, loaded.Pix)
}

func TestDiskCacheLoadMissReturnsFalseNotError(t *testing.T) {
	dc, err := newDiskCache(t.TempDir())
	require.NoError(t, err)

	_, found, err := dc.load(Key{AssetID: "missing", Size: SizeThumbnail}, func(r *os.File) (*image.RGBA, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, found)
}

// stubSource counts Load calls per key, simulating a slow decode+resize.
type stubSource struct {
	mu    sync.Mutex
	calls map[Key]int
	delay time.Duration
	err   error
}

func newStubSource() *stubSource {
	return &stubSource{calls: make(map[Key]int)}
}

func (s *stubSource) Load(assetID string, size Size) (*image.RGBA, error) {
	key := Key{AssetID: assetID, Size: size}
	s.mu.Lock()
	s.calls[key]++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return solidImage(8, 8, 9), nil
}

func (s *stubSource) callCount(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func TestServiceGenerateAndMemoryHitOnSecondRequest(t *testing.T) {
	src := newStubSource()
	svc, err := NewService(src, t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	key := Key{AssetID: "a1", Size: SizeThumbnail}
	out1 := <-svc.Request(key, PriorityVisible)
	require.NoError(t, out1.Err)
	require.NotNil(t, out1.Image)

	out2 := <-svc.Request(key, PriorityVisible)
	require.NoError(t, out2.Err)
	assert.Equal(t, 1, src.callCount(key), "second request for the same key should hit the memory cache, not regenerate")
}

func TestServiceCoalescesConcurrentRequestsForSameKey(t *testing.T) {
	src := newStubSource()
	src.delay = 50 * time.Millisecond
	svc, err := NewService(src, t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	key := Key{AssetID: "a2", Size: SizePreview}
	ch1 := svc.Request(key, PriorityVisible)
	ch2 := svc.Request(key, PriorityNearVisible)

	out1 := <-ch1
	out2 := <-ch2
	require.NoError(t, out1.Err)
	require.NoError(t, out2.Err)
	assert.Equal(t, 1, src.callCount(key), "concurrent requests for the same (asset,size) must coalesce into one generation")
}

func TestServicePropagatesSourceError(t *testing.T) {
	src := newStubSource()
	src.err = errors.New("decode failed")
	svc, err := NewService(src, t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	out := <-svc.Request(Key{AssetID: "bad", Size: SizeThumbnail}, PriorityVisible)
	assert.Error(t, out.Err)
}
