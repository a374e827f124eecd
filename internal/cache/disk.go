package cache

import (
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/literoom/engine/internal/engineerr"
)

// diskCache persists generated renders under a dedicated directory, keyed
// by asset id, size tier, and formatVersion, so a decode never has to be
// repeated across process restarts (spec.md §4.5's persistent cache tier).
type diskCache struct {
	dir string
}

func newDiskCache(dir string) (*diskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "create cache directory", err)
	}
	return &diskCache{dir: dir}, nil
}

// pathFor returns the on-disk path for key. The filename hashes the key
// with blake3 rather than embedding the raw asset id, since ids may contain
// characters unsafe for a filename on some filesystems.
func (d *diskCache) pathFor(key Key) string {
	h := blake3.New()
	fmt.Fprintf(h, "%s|%s|v%d", key.AssetID, key.Size, formatVersion)
	sum := h.Sum(nil)
	return filepath.Join(d.dir, hex.EncodeToString(sum)+".webp")
}

// load reads and decodes a persisted entry, returning (nil, false, nil) on
// a clean miss.
func (d *diskCache) load(key Key, decode func(r *os.File) (*image.RGBA, error)) (*image.RGBA, bool, error) {
	path := d.pathFor(key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, engineerr.Wrap(engineerr.Internal, "open persistent cache entry", err)
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		return nil, false, engineerr.Wrap(engineerr.Corrupted, "decode persistent cache entry", err)
	}
	return img, true, nil
}

// store writes img to the persistent cache atomically: encode to a temp
// file in the same directory, then rename over the final path, satisfying
// invariant T3. A reader can never observe a partially-written file.
func (d *diskCache) store(key Key, img *image.RGBA, encode func(w *os.File, img *image.RGBA) error) error {
	tmpName := filepath.Join(d.dir, fmt.Sprintf(".tmp-%s", uuid.New().String()))
	f, err := os.Create(tmpName)
	if err != nil {
		return engineerr.Wrap(engineerr.Internal, "create temp cache file", err)
	}
	if err := encode(f, img); err != nil {
		f.Close()
		os.Remove(tmpName)
		return engineerr.Wrap(engineerr.Internal, "encode cache entry", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return engineerr.Wrap(engineerr.Internal, "close temp cache file", err)
	}
	if err := os.Rename(tmpName, d.pathFor(key)); err != nil {
		os.Remove(tmpName)
		return engineerr.Wrap(engineerr.Internal, "rename cache file into place", err)
	}
	return nil
}
