package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/literoom/engine/internal/editstate"
	"github.com/literoom/engine/internal/engineerr"
)

// writeBatchSize matches spec.md §4.6's "writes are batched" and the scan
// batch size, so a full scan's persistence step is one round trip per
// discovered batch rather than one per file.
const writeBatchSize = 50

// Repository persists and restores Assets, grounded on the teacher's
// repository.AssetRepository/gorm_repo split: a narrow interface the rest
// of the package depends on, with a single gorm-backed implementation.
type Repository interface {
	CreateBatch(ctx context.Context, assets []*Asset) error
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)
	ListByPathPrefix(ctx context.Context, prefix string) ([]*Asset, error)
	UpdateFlag(ctx context.Context, id uuid.UUID, flag Flag) error
	UpdateEditState(ctx context.Context, id uuid.UUID, state *editstate.EditState) error
	UpdateCacheStatus(ctx context.Context, id uuid.UUID, thumb, preview *CacheStatus) error
	ExistsByPath(ctx context.Context, path string) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds a Repository over an already-migrated gorm.DB.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateBatch(ctx context.Context, assets []*Asset) error {
	if len(assets) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).CreateInBatches(assets, writeBatchSize).Error
	if err != nil {
		return engineerr.Wrap(engineerr.Internal, "persist asset batch", err)
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	var a Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engineerr.Wrap(engineerr.NotFound, "asset not found", err)
		}
		return nil, engineerr.Wrap(engineerr.Internal, "load asset", err)
	}
	return &a, nil
}

func (r *gormRepository) ListByPathPrefix(ctx context.Context, prefix string) ([]*Asset, error) {
	var assets []*Asset
	err := r.db.WithContext(ctx).Where("path LIKE ?", prefix+"%").Find(&assets).Error
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Internal, "list assets by path prefix", err)
	}
	return assets, nil
}

func (r *gormRepository) UpdateFlag(ctx context.Context, id uuid.UUID, flag Flag) error {
	err := r.db.WithContext(ctx).Model(&Asset{}).Where("id = ?", id).Update("flag", flag).Error
	if err != nil {
		return engineerr.Wrap(engineerr.Internal, "update asset flag", err)
	}
	return nil
}

func (r *gormRepository) UpdateEditState(ctx context.Context, id uuid.UUID, state *editstate.EditState) error {
	err := r.db.WithContext(ctx).Model(&Asset{}).Where("id = ?", id).Update("edit_state", editStateColumn(*state)).Error
	if err != nil {
		return engineerr.Wrap(engineerr.Internal, "update asset edit state", err)
	}
	return nil
}

func (r *gormRepository) UpdateCacheStatus(ctx context.Context, id uuid.UUID, thumb, preview *CacheStatus) error {
	updates := map[string]any{}
	if thumb != nil {
		updates["thumbnail_status"] = *thumb
	}
	if preview != nil {
		updates["preview_status"] = *preview
	}
	if len(updates) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&Asset{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return engineerr.Wrap(engineerr.Internal, "update asset cache status", err)
	}
	return nil
}

func (r *gormRepository) ExistsByPath(ctx context.Context, path string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Asset{}).Where("path = ?", path).Count(&count).Error
	if err != nil {
		return false, engineerr.Wrap(engineerr.Internal, "check asset existence", err)
	}
	return count > 0, nil
}
