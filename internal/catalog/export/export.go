package export

import (
	"bytes"
	"image"
	"image/png"

	"github.com/h2non/bimg"

	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/resize"
)

// DefaultJPEGQuality is spec.md §6's export default.
const DefaultJPEGQuality = 90

// Options controls one export encode.
type Options struct {
	Preset  LongEdgePreset
	Quality int // 1-100; 0 means DefaultJPEGQuality
}

// EncodeJPEG resizes a fully-rendered RGBA buffer to preset's long edge (a
// no-op for PresetOriginal) and encodes it as baseline JPEG at the given
// quality, per spec.md §6's "Output: JPEG (baseline, quality 1-100, default
// 90)". The resize step reuses internal/resize rather than bimg's own
// resampler so draft/full renders and exports share one scaling code path;
// bimg is used only for the final encode, the same division of labor the
// decoder's embedded-preview path already uses it for.
func EncodeJPEG(img *image.RGBA, opts Options) ([]byte, error) {
	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}

	resized := img
	if opts.Preset != PresetOriginal {
		r, err := resize.ResizeToFit(img, int(opts.Preset), resize.FilterLanczos3)
		if err != nil {
			return nil, err
		}
		resized = r
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "stage export image for encode", err)
	}

	out, err := bimg.NewImage(buf.Bytes()).Process(bimg.Options{
		Quality: quality,
		Type:    bimg.JPEG,
	})
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "encode export JPEG", err)
	}
	return out, nil
}
