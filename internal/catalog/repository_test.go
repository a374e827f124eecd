package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/literoom/engine/internal/editstate"
	"github.com/literoom/engine/internal/engineerr"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Asset{}))
	return NewRepository(db)
}

func TestRepositoryCreateBatchAndGetByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := NewAsset("roll/img001.arw", "img001.arw", 2048, FormatRAW, nil)
	require.NoError(t, repo.CreateBatch(ctx, []*Asset{a}))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Path, got.Path)
	assert.Equal(t, FlagNone, got.Flag)
	assert.Equal(t, CacheStatusPending, got.ThumbnailStatus)
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.NotFound))
}

func TestRepositoryListByPathPrefix(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateBatch(ctx, []*Asset{
		NewAsset("2024-01/a.jpg", "a.jpg", 10, FormatJPEG, nil),
		NewAsset("2024-01/b.jpg", "b.jpg", 10, FormatJPEG, nil),
		NewAsset("2024-02/c.jpg", "c.jpg", 10, FormatJPEG, nil),
	}))

	matched, err := repo.ListByPathPrefix(ctx, "2024-01/")
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestRepositoryUpdateFlagAndCacheStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := NewAsset("a.jpg", "a.jpg", 10, FormatJPEG, nil)
	require.NoError(t, repo.CreateBatch(ctx, []*Asset{a}))

	require.NoError(t, repo.UpdateFlag(ctx, a.ID, FlagPick))
	ready := CacheStatusReady
	require.NoError(t, repo.UpdateCacheStatus(ctx, a.ID, &ready, nil))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, FlagPick, got.Flag)
	assert.Equal(t, CacheStatusReady, got.ThumbnailStatus)
	assert.Equal(t, CacheStatusPending, got.PreviewStatus, "preview status was not touched by the update")
}

func TestRepositoryUpdateEditStateRoundTrips(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := NewAsset("a.jpg", "a.jpg", 10, FormatJPEG, nil)
	require.NoError(t, repo.CreateBatch(ctx, []*Asset{a}))

	state := editstate.Default()
	state.Adjustments.Exposure = 1.5
	require.NoError(t, repo.UpdateEditState(ctx, a.ID, state))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, editstate.EditState(got.EditState).Adjustments.Exposure, 1e-9)
}

func TestRepositoryExistsByPath(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	exists, err := repo.ExistsByPath(ctx, "missing.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.CreateBatch(ctx, []*Asset{NewAsset("present.jpg", "present.jpg", 1, FormatJPEG, nil)}))
	exists, err = repo.ExistsByPath(ctx, "present.jpg")
	require.NoError(t, err)
	assert.True(t, exists)
}
