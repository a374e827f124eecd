package export

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/literoom/engine/internal/engineerr"
)

func TestRenderDefaultTemplate(t *testing.T) {
	name, err := Render(DefaultTemplate, Params{OriginalBasename: "DSC01234", Sequence: 7})
	require.NoError(t, err)
	assert.Equal(t, "DSC01234_0007", name)
}

func TestRenderDateTokenPrefersCaptureTime(t *testing.T) {
	capture := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	mtime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	name, err := Render("{date}_{orig}", Params{OriginalBasename: "a", CaptureTime: &capture, FileModTime: mtime})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14_a", name)
}

func TestRenderDateTokenFallsBackToFileModTime(t *testing.T) {
	mtime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	name, err := Render("{date}", Params{FileModTime: mtime})
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", name)
}

func TestRenderSeqTokenWidth(t *testing.T) {
	name, err := Render("{orig}-{seq:2}", Params{OriginalBasename: "x", Sequence: 3})
	require.NoError(t, err)
	assert.Equal(t, "x-03", name)
}

func TestRenderRejectsUnknownToken(t *testing.T) {
	_, err := Render("{bogus}", Params{})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.InvalidFormat))
}

func TestValidateAcceptsDefaultTemplate(t *testing.T) {
	assert.NoError(t, Validate(DefaultTemplate))
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	assert.Error(t, Validate("{orig}_{wat}"))
}

func TestSplitName(t *testing.T) {
	stem, ext := SplitName("photo.jpg")
	assert.Equal(t, "photo", stem)
	assert.Equal(t, ".jpg", ext)

	stem, ext = SplitName("noext")
	assert.Equal(t, "noext", stem)
	assert.Equal(t, "", ext)
}

func TestResolveCollisionReturnsOriginalWhenFree(t *testing.T) {
	name, err := ResolveCollision("photo", ".jpg", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", name)
}

func TestResolveCollisionAutoSuffixes(t *testing.T) {
	taken := map[string]bool{"photo.jpg": true, "photo_1.jpg": true, "photo_2.jpg": true}
	name, err := ResolveCollision("photo", ".jpg", func(n string) (bool, error) { return taken[n], nil })
	require.NoError(t, err)
	assert.Equal(t, "photo_3.jpg", name)
}

func TestResolveCollisionPropagatesExistsError(t *testing.T) {
	boom := errors.New("disk unavailable")
	_, err := ResolveCollision("photo", ".jpg", func(string) (bool, error) { return false, boom })
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
