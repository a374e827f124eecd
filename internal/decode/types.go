// Package decode turns on-disk JPEG and Sony ARW bytes into pixel-true
// image.RGBA buffers, EXIF-oriented and ready for the resize/pipeline
// stages. RAW files are never fully demosaiced here except as a
// last-resort fallback; the fast path extracts and decodes the camera's
// own embedded JPEG preview.
package decode

import "image"

// tiffMagicLE and tiffMagicBE are the two TIFF byte-order markers a Sony
// ARW file starts with; ARW is a TIFF-derivative format, like the other
// camera RAW formats in this family.
var (
	tiffMagicLE = []byte{0x49, 0x49, 0x2A, 0x00} // "II*\x00", little-endian
	tiffMagicBE = []byte{0x4D, 0x4D, 0x00, 0x2A} // "MM\x00*", big-endian
)

const arwExtension = ".arw"

// jpegSOI and jpegEOI are the JPEG Start/End Of Image markers, used by the
// byte-scan fallback when the TIFF IFD walk finds no preview tag.
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

func newRGBA(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
