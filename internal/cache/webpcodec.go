package cache

import (
	"image"
	"os"

	"github.com/deepteams/webp"

	"github.com/literoom/engine/internal/engineerr"
)

// webpEncoderOptions favors fast, good-enough compression: thumbnails and
// previews are regenerated freely, so persistent cache entries are not
// precious enough to justify encoder method 6's extra latency.
var webpEncoderOptions = &webp.EncoderOptions{
	Quality: 85,
	Method:  4,
	Preset:  webp.PresetPhoto,
}

func encodeWebP(w *os.File, img *image.RGBA) error {
	if err := webp.Encode(w, img, webpEncoderOptions); err != nil {
		return engineerr.Wrap(engineerr.Internal, "encode webp cache entry", err)
	}
	return nil
}

func decodeWebP(r *os.File) (*image.RGBA, error) {
	decoded, err := webp.Decode(r)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Corrupted, "decode webp cache entry", err)
	}
	if rgba, ok := decoded.(*image.RGBA); ok {
		return rgba, nil
	}
	b := decoded.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, decoded.At(x, y))
		}
	}
	return out, nil
}
