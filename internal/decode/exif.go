package decode

import (
	"bytes"
	"time"
)

// dateTimeLayout is the fixed "YYYY:MM:DD HH:MM:SS" format EXIF uses for
// all date/time tags.
const dateTimeLayout = "2006:01:02 15:04:05"

var exifHeader = []byte("Exif\x00\x00")

// findEXIFSegment scans a JPEG byte stream for the APP1 marker carrying an
// "Exif\x00\x00" header and returns the TIFF data that follows it (ready
// for newTiffReader). Returns nil if no EXIF APP1 segment is present.
func findEXIFSegment(jpegData []byte) []byte {
	pos := 2 // skip SOI
	for pos+4 <= len(jpegData) {
		if jpegData[pos] != 0xFF {
			return nil
		}
		marker := jpegData[pos+1]
		if marker == 0xD8 || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}
		if marker == 0xDA {
			return nil // start of scan, no more markers before compressed data
		}
		if pos+4 > len(jpegData) {
			return nil
		}
		segLen := int(jpegData[pos+2])<<8 | int(jpegData[pos+3])
		segStart := pos + 4
		segEnd := pos + 2 + segLen
		if segEnd > len(jpegData) || segStart > len(jpegData) {
			return nil
		}
		if marker == 0xE1 && segEnd-segStart >= len(exifHeader) &&
			bytes.Equal(jpegData[segStart:segStart+len(exifHeader)], exifHeader) {
			return jpegData[segStart+len(exifHeader) : segEnd]
		}
		pos = segEnd
	}
	return nil
}

// orientationFromJPEG reads the EXIF Orientation tag from a JPEG byte
// stream, defaulting to 1 (identity) when absent or unparsable.
func orientationFromJPEG(jpegData []byte) uint16 {
	tiff := findEXIFSegment(jpegData)
	if tiff == nil {
		return 1
	}
	return readOrientation(tiff)
}

// CaptureTime extracts the EXIF DateTimeOriginal tag from a JPEG byte
// stream (or the TIFF-structured body of an ARW file, which shares the
// same IFD layout), returning nil when absent or unparsable. Spec.md §3
// only requires capture time "from EXIF when available" with no mandated
// fallback, so absence is not an error here.
func CaptureTime(data []byte) *time.Time {
	tiff := data
	if bytes.HasPrefix(data, jpegSOI) {
		tiff = findEXIFSegment(data)
		if tiff == nil {
			return nil
		}
	}
	raw, ok := readDateTimeOriginal(tiff)
	if !ok {
		return nil
	}
	t, err := time.Parse(dateTimeLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}
