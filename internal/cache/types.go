// Package cache implements the thumbnail/preview orchestration described in
// spec.md §4.5: a priority queue of pending generations, a bounded in-memory
// LRU, and an on-disk persistent tier, fed by a single-threaded consumer
// that coalesces duplicate (asset, size) requests.
package cache

import "image"

// Size names a cache tier's target render size.
type Size string

const (
	SizeThumbnail Size = "thumbnail"
	SizePreview   Size = "preview"
)

// thumbnailCacheCapacity and previewCacheCapacity bound the in-memory LRU
// per tier, per spec.md §4.5 ("thumbnails ~150 entries, previews ~20
// entries").
const (
	thumbnailCacheCapacity = 150
	previewCacheCapacity   = 20
)

// formatVersion is folded into persistent cache keys so a change to the
// resize/encode path invalidates old on-disk entries instead of silently
// serving stale bytes.
const formatVersion = 1

// Priority is the request's queue class. Lower values run first.
type Priority int

const (
	PriorityVisible     Priority = 0
	PriorityNearVisible Priority = 1
	PriorityPreload     Priority = 2
)

// Key identifies one cacheable render: a specific asset at a specific size.
type Key struct {
	AssetID string
	Size    Size
}

// Entry is a ready in-memory cache hit: a decoded, resized RGBA buffer.
type Entry struct {
	Key   Key
	Image *image.RGBA
}

// Outcome is delivered to every subscriber of a generation once it settles.
type Outcome struct {
	Key   Key
	Image *image.RGBA
	Err   error
}

// Source supplies the bytes and decode/resize behavior the consumer needs
// to generate a cache entry that isn't already on disk. Production wiring
// passes cmd/literoomd's engineSource, backed by internal/decode and
// internal/resize; tests pass a stub.
type Source interface {
	// Load decodes assetID's source pixels (fast-path preview for RAW,
	// direct decode for JPEG) and resizes to the target size, returning a
	// ready-to-cache RGBA buffer.
	Load(assetID string, size Size) (*image.RGBA, error)
}
