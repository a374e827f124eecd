package main

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/literoom/engine/internal/cache"
	"github.com/literoom/engine/internal/catalog"
	"github.com/literoom/engine/internal/decode"
	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/resize"
)

// thumbnailLongEdge and previewLongEdge are the fixed target sizes for the
// two cache tiers spec.md §4.5 names. They are not user-configurable: the
// cache key space (asset, size) assumes one resolution per tier.
const (
	thumbnailLongEdge = 256
	previewLongEdge   = 2048
)

// engineSource adapts the catalog repository and decoder into the
// cache.Source the thumbnail/preview service generates against, per
// spec.md's S5 fast-path: an ARW's embedded preview decodes directly
// without running the full RAW pipeline, a JPEG decodes in full. It also
// supplies the full-resolution decode /render and /export need before
// handing pixels to the executor.
type engineSource struct {
	repo   catalog.Repository
	handle catalog.DirectoryHandle
}

func newEngineSource(repo catalog.Repository, handle catalog.DirectoryHandle) *engineSource {
	return &engineSource{repo: repo, handle: handle}
}

// Load implements cache.Source for the thumbnail/preview service: decode
// then resize to the tier's fixed long edge.
func (s *engineSource) Load(assetID string, size cache.Size) (*image.RGBA, error) {
	img, err := s.decode(assetID)
	if err != nil {
		return nil, err
	}
	longEdge := thumbnailLongEdge
	if size == cache.SizePreview {
		longEdge = previewLongEdge
	}
	return resize.ResizeToFit(img, longEdge, resize.FilterLanczos3)
}

// LoadFull decodes assetID without resizing (a JPEG at its own resolution,
// an ARW via its embedded preview), the starting point for a /render or
// /export request before the executor applies EditState.
func (s *engineSource) LoadFull(assetID string) (*image.RGBA, error) {
	return s.decode(assetID)
}

func (s *engineSource) decode(assetID string) (*image.RGBA, error) {
	id, err := uuid.Parse(assetID)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.InvalidFormat, "asset id is not a UUID", err)
	}

	asset, err := s.repo.GetByID(context.Background(), id)
	if err != nil {
		return nil, err
	}

	data, err := s.handle.Read(asset.Path)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.NotFound, "read asset bytes", err)
	}

	switch asset.Format {
	case catalog.FormatRAW:
		return decode.DecodeRAWThumbnail(data)
	case catalog.FormatJPEG:
		return decode.DecodeJPEG(bytes.NewReader(data))
	default:
		return nil, engineerr.New(engineerr.InvalidFormat, fmt.Sprintf("unsupported asset format %q", asset.Format))
	}
}
