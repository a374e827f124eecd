package decode

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"

	"github.com/literoom/engine/internal/engineerr"
)

// DecodeJPEG decodes a baseline or progressive JPEG via the standard
// library's pixel-exact decoder (the deterministic pipeline needs true
// decoded samples, not a re-encoded approximation), reads the EXIF
// Orientation tag, and applies the corresponding one of the eight EXIF
// orientation transforms so the returned buffer is display-ready.
func DecodeJPEG(r io.Reader) (*image.RGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Corrupted, "failed to read JPEG stream", err)
	}

	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, engineerr.Wrap(engineerr.InvalidFormat, "failed to decode JPEG", err)
	}

	rgba := toRGBA(src)
	orientation := orientationFromJPEG(data)
	return applyOrientation(rgba, orientation), nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	out := newRGBA(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, src.At(x, y))
		}
	}
	return out
}

// applyOrientation applies one of the eight EXIF orientation transforms.
// Orientation 1 (identity) returns img unchanged.
func applyOrientation(img *image.RGBA, orientation uint16) *image.RGBA {
	switch orientation {
	case 2:
		return flipHorizontal(img)
	case 3:
		return rotate180(img)
	case 4:
		return flipVertical(img)
	case 5:
		return rotate90CCW(flipHorizontal(img))
	case 6:
		return rotate90CW(img)
	case 7:
		return rotate90CW(flipHorizontal(img))
	case 8:
		return rotate90CCW(img)
	default:
		return img
	}
}

func flipHorizontal(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := newRGBA(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcIdx := img.PixOffset(b.Min.X+w-1-x, b.Min.Y+y)
			dstIdx := out.PixOffset(x, y)
			copy(out.Pix[dstIdx:dstIdx+4], img.Pix[srcIdx:srcIdx+4])
		}
	}
	return out
}

func flipVertical(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := newRGBA(w, h)
	for y := 0; y < h; y++ {
		srcIdx := img.PixOffset(b.Min.X, b.Min.Y+h-1-y)
		dstIdx := out.PixOffset(0, y)
		copy(out.Pix[dstIdx:dstIdx+w*4], img.Pix[srcIdx:srcIdx+w*4])
	}
	return out
}

func rotate180(img *image.RGBA) *image.RGBA {
	return flipHorizontal(flipVertical(img))
}

// rotate90CW rotates the image 90 degrees clockwise.
func rotate90CW(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := newRGBA(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcIdx := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			dstIdx := out.PixOffset(h-1-y, x)
			copy(out.Pix[dstIdx:dstIdx+4], img.Pix[srcIdx:srcIdx+4])
		}
	}
	return out
}

// rotate90CCW rotates the image 90 degrees counter-clockwise.
func rotate90CCW(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := newRGBA(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcIdx := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			dstIdx := out.PixOffset(y, w-1-x)
			copy(out.Pix[dstIdx:dstIdx+4], img.Pix[srcIdx:srcIdx+4])
		}
	}
	return out
}
