package decode

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/literoom/engine/internal/engineerr"
)

// IsRAW reports whether header (the first bytes of a file) plus filename
// identify a Sony ARW file: the extension must match, and the header must
// either carry a TIFF byte-order marker (ARW is a TIFF-derivative format,
// same magic-byte family as the rest of the camera RAW formats) or be
// sniffed by mimetype as TIFF or as unrecognized binary data.
func IsRAW(header []byte, filename string) bool {
	if !strings.EqualFold(filepath.Ext(filename), arwExtension) {
		return false
	}
	if len(header) < 4 {
		return false
	}
	if bytes.Equal(header[:4], tiffMagicLE) || bytes.Equal(header[:4], tiffMagicBE) {
		return true
	}
	// Extension-only match with an unrecognized header: confirm via
	// mimetype's content sniffing rather than rejecting outright, since
	// some ARW variants carry vendor-specific header padding.
	mt := mimetype.Detect(header)
	return mt.Is("image/x-tiff") || mt.Is("application/octet-stream")
}

// tiffReader walks a TIFF/EXIF IFD chain looking for specific tags. It only
// understands the handful of tag types this package needs (Orientation,
// JPEGInterchangeFormat/Length, SubIFD pointers) — a full TIFF decoder is
// out of scope; the pipeline only ever needs a few scalar tags out of the
// whole structure.
type tiffReader struct {
	data  []byte
	order binary.ByteOrder
}

func newTiffReader(data []byte) (*tiffReader, int, error) {
	if len(data) < 8 {
		return nil, 0, engineerr.New(engineerr.Corrupted, "TIFF header too short")
	}
	var order binary.ByteOrder
	switch {
	case bytes.Equal(data[:4], tiffMagicLE):
		order = binary.LittleEndian
	case bytes.Equal(data[:4], tiffMagicBE):
		order = binary.BigEndian
	default:
		return nil, 0, engineerr.New(engineerr.InvalidFormat, "not a TIFF byte stream")
	}
	ifd0Offset := int(order.Uint32(data[4:8]))
	return &tiffReader{data: data, order: order}, ifd0Offset, nil
}

type ifdEntry struct {
	tag           uint16
	fieldType     uint16
	count         uint32
	valueOrOffset uint32
}

// readIFD returns the entries of the IFD at offset and the offset of the
// next IFD (0 if none).
func (r *tiffReader) readIFD(offset int) ([]ifdEntry, int, error) {
	if offset <= 0 || offset+2 > len(r.data) {
		return nil, 0, engineerr.New(engineerr.Corrupted, "IFD offset out of range")
	}
	count := int(r.order.Uint16(r.data[offset : offset+2]))
	entries := make([]ifdEntry, 0, count)
	pos := offset + 2
	for i := 0; i < count; i++ {
		if pos+12 > len(r.data) {
			return nil, 0, engineerr.New(engineerr.Corrupted, "IFD entry out of range")
		}
		e := ifdEntry{
			tag:           r.order.Uint16(r.data[pos : pos+2]),
			fieldType:     r.order.Uint16(r.data[pos+2 : pos+4]),
			count:         r.order.Uint32(r.data[pos+4 : pos+8]),
			valueOrOffset: r.order.Uint32(r.data[pos+8 : pos+12]),
		}
		entries = append(entries, e)
		pos += 12
	}
	var next int
	if pos+4 <= len(r.data) {
		next = int(r.order.Uint32(r.data[pos : pos+4]))
	}
	return entries, next, nil
}

// shortValue interprets an entry's inline value as a SHORT (type 3),
// which is how Orientation, JPEGInterchangeFormat's count field, and
// ExifIFD/SubIFD pointers' sibling tags are typically encoded.
func (e ifdEntry) shortValue(order binary.ByteOrder) uint16 {
	// SHORT values are stored left-justified within the 4-byte field; a
	// round trip through the same byte order extracts the leading 2 bytes
	// correctly regardless of endianness.
	buf := make([]byte, 4)
	order.PutUint32(buf, e.valueOrOffset)
	return order.Uint16(buf[:2])
}

// asciiValue interprets an entry of type ASCII (type 2) as a string,
// following valueOrOffset as a pointer into data when the string is longer
// than the 4 inline bytes, per the TIFF spec's "values that fit in 4 bytes
// are stored inline, otherwise valueOrOffset is a byte offset" rule.
func (e ifdEntry) asciiValue(r *tiffReader) (string, bool) {
	if e.fieldType != fieldTypeASCII || e.count == 0 {
		return "", false
	}
	n := int(e.count)
	if n <= 4 {
		buf := make([]byte, 4)
		r.order.PutUint32(buf, e.valueOrOffset)
		return trimNUL(buf[:n]), true
	}
	offset := int(e.valueOrOffset)
	if offset < 0 || offset+n > len(r.data) {
		return "", false
	}
	return trimNUL(r.data[offset : offset+n]), true
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

const (
	tagOrientation              uint16 = 0x0112
	tagDateTimeOriginal         uint16 = 0x9003
	tagExifIFDPointer           uint16 = 0x8769
	tagSubIFDs                  uint16 = 0x014A
	tagJPEGInterchangeFormat    uint16 = 0x0201
	tagJPEGInterchangeFormatLen uint16 = 0x0202

	fieldTypeASCII uint16 = 2
)

// readDateTimeOriginal walks IFD0 and, if present, the ExifIFD it points
// to, looking for the DateTimeOriginal tag (capture time), returning its
// raw "YYYY:MM:DD HH:MM:SS" string form.
func readDateTimeOriginal(data []byte) (string, bool) {
	r, ifd0, err := newTiffReader(data)
	if err != nil {
		return "", false
	}
	entries, _, err := r.readIFD(ifd0)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.tag == tagDateTimeOriginal {
			return e.asciiValue(r)
		}
	}
	for _, e := range entries {
		if e.tag == tagExifIFDPointer {
			exifEntries, _, err := r.readIFD(int(e.valueOrOffset))
			if err != nil {
				continue
			}
			for _, ee := range exifEntries {
				if ee.tag == tagDateTimeOriginal {
					return ee.asciiValue(r)
				}
			}
		}
	}
	return "", false
}

// readOrientation walks IFD0 looking for the Orientation tag, per spec.md
// §4.1's requirement to honor all eight EXIF orientations. Returns 1
// (identity) if absent, matching the EXIF default.
func readOrientation(data []byte) uint16 {
	r, ifd0, err := newTiffReader(data)
	if err != nil {
		return 1
	}
	entries, _, err := r.readIFD(ifd0)
	if err != nil {
		return 1
	}
	for _, e := range entries {
		if e.tag == tagOrientation {
			v := e.shortValue(r.order)
			if v >= 1 && v <= 8 {
				return v
			}
		}
	}
	return 1
}

// embeddedPreviewCandidate finds the largest embedded JPEG preview among
// IFD0, SubIFDs, ExifIFD, and IFD1 (the thumbnail IFD), per spec.md §4.1's
// "return the largest embedded JPEG" requirement.
func embeddedPreviewCandidate(data []byte) ([]byte, bool) {
	r, ifd0Offset, err := newTiffReader(data)
	if err != nil {
		return nil, false
	}

	var best []byte
	tryIFD := func(offset int) int {
		entries, next, err := r.readIFD(offset)
		if err != nil {
			return 0
		}
		var jpegOffset, jpegLen uint32
		var subIFDOffsets []uint32
		for _, e := range entries {
			switch e.tag {
			case tagJPEGInterchangeFormat:
				jpegOffset = e.valueOrOffset
			case tagJPEGInterchangeFormatLen:
				jpegLen = e.valueOrOffset
			case tagExifIFDPointer, tagSubIFDs:
				subIFDOffsets = append(subIFDOffsets, e.valueOrOffset)
			}
		}
		if jpegLen > 0 && int(jpegOffset)+int(jpegLen) <= len(data) {
			candidate := data[jpegOffset : jpegOffset+jpegLen]
			if len(candidate) > len(best) {
				best = candidate
			}
		}
		for _, sub := range subIFDOffsets {
			tryIFD(int(sub))
		}
		return next
	}

	offset := ifd0Offset
	for offset != 0 {
		offset = tryIFD(offset)
	}

	if best != nil {
		return best, true
	}
	return nil, false
}

// scanForJPEGByteRange is the SOI/EOI byte-scan fallback used when the IFD
// walk finds no explicit preview tag — some ARW variants bury a preview
// without a standard JPEGInterchangeFormat tag.
func scanForJPEGByteRange(data []byte) ([]byte, bool) {
	soi := bytes.Index(data, jpegSOI)
	if soi == -1 {
		return nil, false
	}
	eoi := bytes.LastIndex(data[soi:], jpegEOI)
	if eoi == -1 {
		return nil, false
	}
	end := soi + eoi + len(jpegEOI)
	if end > len(data) {
		return nil, false
	}
	return data[soi:end], true
}

// ExtractEmbeddedJPEG returns the largest embedded JPEG preview found in
// an ARW file's full byte content, trying the structured IFD walk first
// and falling back to a byte scan.
func ExtractEmbeddedJPEG(data []byte) ([]byte, error) {
	if best, ok := embeddedPreviewCandidate(data); ok {
		scanBest, scanOK := scanForJPEGByteRange(data)
		if scanOK && len(scanBest) > len(best) {
			return scanBest, nil
		}
		return best, nil
	}
	if best, ok := scanForJPEGByteRange(data); ok {
		return best, nil
	}
	return nil, engineerr.New(engineerr.NoEmbeddedPreview, "no embedded JPEG preview found in RAW file")
}
