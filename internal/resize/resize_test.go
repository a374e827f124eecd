package resize

import (
	"image"
	"testing"

	"github.com/literoom/engine/internal/engineerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func TestResizeExactDimensions(t *testing.T) {
	src := solid(100, 50, 200)
	out, err := Resize(src, 40, 20, FilterBilinear)
	require.NoError(t, err)
	assert.Equal(t, 40, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())
}

func TestResizeSamePhysicalSizeIsCopy(t *testing.T) {
	src := solid(10, 10, 5)
	out, err := Resize(src, 10, 10, FilterBilinear)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, out.Pix)

	out.Pix[0] = 250
	assert.NotEqual(t, src.Pix[0], out.Pix[0], "must be an independent copy")
}

func TestResizeRejectsUnknownFilter(t *testing.T) {
	_, err := Resize(solid(4, 4, 1), 2, 2, Filter("bogus"))
	require.Error(t, err)
	assert.Equal(t, engineerr.InvalidFormat, engineerr.KindOf(err))
}

func TestResizeToFitNoUpscale(t *testing.T) {
	src := solid(50, 30, 1)
	out, err := ResizeToFit(src, 2000, FilterBilinear)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 30, out.Bounds().Dy())
}

func TestResizeToFitPreservesAspectRatio(t *testing.T) {
	src := solid(4000, 2000, 1)
	out, err := ResizeToFit(src, 2048, FilterBilinear)
	require.NoError(t, err)
	assert.Equal(t, 2048, out.Bounds().Dx())
	assert.Equal(t, 1024, out.Bounds().Dy())
}

func TestResizeToFitTallImage(t *testing.T) {
	src := solid(2000, 4000, 1)
	out, err := ResizeToFit(src, 1000, FilterNearest)
	require.NoError(t, err)
	assert.Equal(t, 500, out.Bounds().Dx())
	assert.Equal(t, 1000, out.Bounds().Dy())
}

func TestResizeToFitRejectsNonPositiveEdge(t *testing.T) {
	_, err := ResizeToFit(solid(4, 4, 1), 0, FilterBilinear)
	require.Error(t, err)
}
