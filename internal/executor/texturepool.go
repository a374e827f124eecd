package executor

import (
	"image"
	"sync"
)

// textureKey identifies a pooled texture by the dimensions/format spec.md
// §4.4 says textures are keyed by: (width, height, format). format is a
// label rather than a real pixel encoding since the GPU backend below is a
// software simulation, but the keying shape is kept so a future real
// compute backend can drop in without changing callers.
type textureKey struct {
	width, height int
	format        string
}

// TexturePool hands out ping-pong *image.RGBA buffers for reuse across
// renders, avoiding an allocation per compute pass the way a real compute
// pipeline avoids a texture allocation per pass.
type TexturePool struct {
	mu   sync.Mutex
	free map[textureKey][]*image.RGBA
}

// NewTexturePool constructs an empty pool.
func NewTexturePool() *TexturePool {
	return &TexturePool{free: make(map[textureKey][]*image.RGBA)}
}

// Acquire returns a buffer of exactly (w, h), reusing a freed one of the
// matching key if available, otherwise allocating fresh.
func (p *TexturePool) Acquire(w, h int, format string) *image.RGBA {
	key := textureKey{w, h, format}
	p.mu.Lock()
	bucket := p.free[key]
	if n := len(bucket); n > 0 {
		tex := bucket[n-1]
		p.free[key] = bucket[:n-1]
		p.mu.Unlock()
		return tex
	}
	p.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Release returns tex to the pool for reuse by a future Acquire of the
// same dimensions/format.
func (p *TexturePool) Release(tex *image.RGBA, format string) {
	if tex == nil {
		return
	}
	b := tex.Bounds()
	key := textureKey{b.Dx(), b.Dy(), format}
	p.mu.Lock()
	p.free[key] = append(p.free[key], tex)
	p.mu.Unlock()
}

// stagingBufferPool is a fixed-size pool of byte buffers used for
// asynchronous histogram/clipping readback, per spec.md §4.4: "A staging
// buffer pool (>=3 buffers) is used for asynchronous readback; when the
// pool is empty the executor skips readback for that frame and reuses the
// last histogram (fire-and-forget)."
type stagingBufferPool struct {
	mu   sync.Mutex
	bufs [][]byte
}

const minStagingBuffers = 3

func newStagingBufferPool(bufferSize int) *stagingBufferPool {
	bufs := make([][]byte, 0, minStagingBuffers)
	for i := 0; i < minStagingBuffers; i++ {
		bufs = append(bufs, make([]byte, bufferSize))
	}
	return &stagingBufferPool{bufs: bufs}
}

// tryAcquire returns a staging buffer and true, or (nil, false) if the pool
// is momentarily exhausted — the caller must treat false as "skip readback
// this frame," never as an error.
func (p *stagingBufferPool) tryAcquire() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.bufs)
	if n == 0 {
		return nil, false
	}
	buf := p.bufs[n-1]
	p.bufs = p.bufs[:n-1]
	return buf, true
}

func (p *stagingBufferPool) release(buf []byte) {
	p.mu.Lock()
	p.bufs = append(p.bufs, buf)
	p.mu.Unlock()
}
