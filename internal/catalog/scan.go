package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/literoom/engine/internal/decode"
	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/metrics"
)

// scanBatchSize is spec.md §4.6's "yields batches of 50 newly discovered
// Asset records."
const scanBatchSize = 50

var supportedExtensions = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".arw":  FormatRAW,
}

// Scanner walks a DirectoryHandle recursively, probing each supported file
// concurrently within a batch (mimetype sniff + size + capture time), and
// persists each batch of new Assets through the Repository as soon as it is
// probed. The batches are not handed to the caller: Scan reports only the
// total count. Probing uses the same fan-out-and-wait shape
// `internal/utils/errgroup` uses for per-item independent work, bounded to
// one batch's worth of files at a time, so file contents for at most one
// batch are held in memory.
type Scanner struct {
	handle DirectoryHandle
	repo   Repository
}

// NewScanner builds a Scanner over handle, persisting discovered batches
// through repo.
func NewScanner(handle DirectoryHandle, repo Repository) *Scanner {
	return &Scanner{handle: handle, repo: repo}
}

// Scan walks root recursively through the DirectoryHandle — never the raw
// filesystem — and persists newly discovered assets in batches of
// scanBatchSize, returning the total count of new assets. It aborts
// promptly on ctx cancellation, persisting only fully-probed batches.
func (s *Scanner) Scan(ctx context.Context, root string) (int, error) {
	state, err := s.handle.QueryPermission()
	if err != nil {
		return 0, err
	}
	if state != PermissionGranted {
		if state, err = s.handle.RequestPermission(); err != nil {
			return 0, err
		}
		if state != PermissionGranted {
			return 0, engineerr.New(engineerr.PermissionDenied, "directory access not granted: "+root)
		}
	}

	var paths []string
	if err := s.collectPaths(ctx, root, &paths); err != nil {
		return 0, err
	}

	total := 0
	for start := 0; start < len(paths); start += scanBatchSize {
		if err := ctx.Err(); err != nil {
			return total, engineerr.Wrap(engineerr.Cancelled, "scan cancelled", err)
		}
		end := start + scanBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch, err := s.probeBatch(ctx, paths[start:end])
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			continue
		}
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			return total, err
		}
		total += len(batch)
		metrics.ScanFilesTotal.WithLabelValues("discovered").Add(float64(len(batch)))
	}
	return total, nil
}

// collectPaths recursively lists dir through the DirectoryHandle, appending
// every supported-extension file path it finds to out. The whole walk
// completes before any probing starts; probing (size, mimetype, capture
// time) happens afterwards, per batch, in probeBatch.
func (s *Scanner) collectPaths(ctx context.Context, dir string, out *[]string) error {
	if err := ctx.Err(); err != nil {
		return engineerr.Wrap(engineerr.Cancelled, "scan cancelled", err)
	}
	entries, err := s.handle.List(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := s.collectPaths(ctx, p, out); err != nil {
				return err
			}
			continue
		}
		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(p))]; ok {
			*out = append(*out, p)
		}
	}
	return nil
}

// probeBatch concurrently stats/sniffs every path in one batch, skipping
// files already present in the catalog and files that fail to probe
// (counted as skipped rather than aborting the whole scan — a single
// unreadable file should not stop discovery of the rest of the folder).
func (s *Scanner) probeBatch(ctx context.Context, paths []string) ([]*Asset, error) {
	assets := make([]*Asset, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			exists, err := s.repo.ExistsByPath(gctx, path)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
			asset, err := s.probeOne(path)
			if err != nil {
				metrics.ScanFilesTotal.WithLabelValues("skipped").Inc()
				return nil
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, engineerr.Wrap(engineerr.Cancelled, "scan batch cancelled", err)
	}

	out := assets[:0]
	for _, a := range assets {
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Scanner) probeOne(path string) (*Asset, error) {
	data, err := s.handle.Read(path)
	if err != nil {
		return nil, err
	}

	format, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, engineerr.New(engineerr.InvalidFormat, "unsupported extension: "+path)
	}

	header := data
	if len(header) > 512 {
		header = header[:512]
	}
	if format == FormatJPEG && !mimetype.Detect(header).Is("image/jpeg") {
		return nil, engineerr.New(engineerr.InvalidFormat, "extension/content mismatch: "+path)
	}

	var capturedAt *time.Time
	if format == FormatJPEG {
		capturedAt = decode.CaptureTime(data)
	}

	asset := NewAsset(path, filepath.Base(path), int64(len(data)), format, capturedAt)
	return asset, nil
}
