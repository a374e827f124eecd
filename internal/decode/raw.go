package decode

import (
	"bytes"
	"context"
	"image"
	"os"
	"os/exec"
	"time"

	"github.com/h2non/bimg"

	"github.com/literoom/engine/internal/engineerr"
)

// minPreviewWidth/Height are the acceptability thresholds an embedded
// preview must clear before the fast path trusts it, mirroring the
// teacher's IsPreviewAcceptable quality gate.
const (
	minPreviewWidth  = 800
	minPreviewHeight = 600
)

// fullRenderTimeout bounds each external RAW-processing tool invocation in
// the DecodeRAWFull fallback chain.
const fullRenderTimeout = 30 * time.Second

// DecodeRAWThumbnail is the fast path for ARW files: extract the largest
// embedded JPEG preview and decode it directly, never touching the sensor
// data. Returns engineerr.NoEmbeddedPreview if no usable preview exists.
func DecodeRAWThumbnail(data []byte) (*image.RGBA, error) {
	preview, err := ExtractEmbeddedJPEG(data)
	if err != nil {
		return nil, err
	}
	if !previewAcceptable(preview) {
		return nil, engineerr.New(engineerr.NoEmbeddedPreview, "embedded preview does not meet minimum size")
	}
	return DecodeJPEG(bytes.NewReader(preview))
}

// previewAcceptable validates that preview is a complete, sufficiently
// large JPEG, probing dimensions cheaply via bimg before committing to a
// full stdlib decode.
func previewAcceptable(preview []byte) bool {
	if len(preview) < 10 || preview[0] != 0xFF || preview[1] != 0xD8 {
		return false
	}
	if !bytes.HasSuffix(preview, jpegEOI) {
		return false
	}
	img := bimg.NewImage(preview)
	size, err := img.Size()
	if err != nil {
		return false
	}
	return size.Width >= minPreviewWidth && size.Height >= minPreviewHeight
}

// DecodeRAWFull is the slow-path bilinear-demosaic fallback used when no
// acceptable embedded preview exists: it tries a chain of external RAW
// conversion tools, then decodes whichever succeeds first. Each tool run
// is bounded by fullRenderTimeout via the supplied context.
func DecodeRAWFull(ctx context.Context, data []byte) (*image.RGBA, error) {
	converters := []func(context.Context, []byte) ([]byte, error){
		convertWithDcraw,
		convertWithImageMagick,
	}

	var lastErr error
	for _, convert := range converters {
		toolCtx, cancel := context.WithTimeout(ctx, fullRenderTimeout)
		jpegData, err := convert(toolCtx, data)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return DecodeJPEG(bytes.NewReader(jpegData))
	}
	return nil, engineerr.Wrap(engineerr.Corrupted, "all RAW full-render tools failed", lastErr)
}

func writeTempRAW(pattern string, data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", func() {}, engineerr.Wrap(engineerr.Internal, "failed to create temp RAW file", err)
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, engineerr.Wrap(engineerr.Internal, "failed to write temp RAW file", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, engineerr.Wrap(engineerr.Internal, "failed to close temp RAW file", err)
	}
	return f.Name(), cleanup, nil
}

func convertWithDcraw(ctx context.Context, data []byte) ([]byte, error) {
	if _, err := exec.LookPath("dcraw"); err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "dcraw not found", err)
	}
	path, cleanup, err := writeTempRAW("literoom-dcraw-*.arw", data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, "dcraw", "-c", "-q", "0", "-w", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, engineerr.Wrap(engineerr.Corrupted, "dcraw failed: "+stderr.String(), err)
	}
	if stdout.Len() == 0 {
		return nil, engineerr.New(engineerr.Corrupted, "dcraw produced no output")
	}

	img := bimg.NewImage(stdout.Bytes())
	jpegData, err := img.Process(bimg.Options{Quality: 90, Type: bimg.JPEG})
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "failed to convert dcraw PPM output to JPEG", err)
	}
	return jpegData, nil
}

func convertWithImageMagick(ctx context.Context, data []byte) ([]byte, error) {
	if _, err := exec.LookPath("convert"); err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "ImageMagick convert not found", err)
	}
	path, cleanup, err := writeTempRAW("literoom-magick-*.arw", data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, "convert", path, "-quality", "90", "jpeg:-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, engineerr.Wrap(engineerr.Corrupted, "ImageMagick convert failed: "+stderr.String(), err)
	}
	if stdout.Len() == 0 {
		return nil, engineerr.New(engineerr.Corrupted, "ImageMagick produced no output")
	}
	return stdout.Bytes(), nil
}
