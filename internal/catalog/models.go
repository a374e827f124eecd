// Package catalog implements spec.md §4.6's folder-iteration and
// asset/flag/edit-state persistence: a recursive directory scan yielding
// batches of new assets, a permissions-gated DirectoryHandle collaborator,
// and a local embedded gorm/sqlite store that survives process restarts.
package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/literoom/engine/internal/editstate"
)

// Format is the asset's decode family, per spec.md §3.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatRAW  Format = "raw"
)

// CacheStatus tracks one size tier's generation state for an asset.
type CacheStatus string

const (
	CacheStatusPending CacheStatus = "pending"
	CacheStatusLoading CacheStatus = "loading"
	CacheStatusReady   CacheStatus = "ready"
	CacheStatusError   CacheStatus = "error"
)

// Flag is the user's cull decision for an asset.
type Flag string

const (
	FlagNone   Flag = "none"
	FlagPick   Flag = "pick"
	FlagReject Flag = "reject"
)

// editStateColumn adapts editstate.EditState to a JSON database column, the
// same driver.Valuer/sql.Scanner pattern models.SpecificMetadata uses for
// its jsonb column.
type editStateColumn editstate.EditState

func (c editStateColumn) Value() (driver.Value, error) {
	return json.Marshal(editstate.EditState(c))
}

func (c *editStateColumn) Scan(value any) error {
	if value == nil {
		*c = editStateColumn(*editstate.Default())
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("cannot scan non-[]byte value into editStateColumn")
	}
	var s editstate.EditState
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	*c = editStateColumn(s)
	return nil
}

// Asset is the gorm-persisted record backing spec.md §3's immutable
// per-file Asset plus its mutable flag/cache-status/edit-state fields.
type Asset struct {
	ID              uuid.UUID       `gorm:"type:text;primaryKey"`
	Path            string          `gorm:"type:text;not null;uniqueIndex"`
	Filename        string          `gorm:"type:text;not null"`
	ByteSize        int64           `gorm:"not null"`
	CapturedAt      *time.Time
	Format          Format          `gorm:"type:text;not null;index"`
	Flag            Flag            `gorm:"type:text;not null;default:none"`
	ThumbnailStatus CacheStatus     `gorm:"type:text;not null;default:pending"`
	PreviewStatus   CacheStatus     `gorm:"type:text;not null;default:pending"`
	EditState       editStateColumn `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Asset) TableName() string { return "assets" }

// NewAsset builds an Asset record at scan time with a fresh id and the
// default (identity) edit state.
func NewAsset(path, filename string, byteSize int64, format Format, capturedAt *time.Time) *Asset {
	return &Asset{
		ID:              uuid.New(),
		Path:            path,
		Filename:        filename,
		ByteSize:        byteSize,
		CapturedAt:      capturedAt,
		Format:          format,
		Flag:            FlagNone,
		ThumbnailStatus: CacheStatusPending,
		PreviewStatus:   CacheStatusPending,
		EditState:       editStateColumn(*editstate.Default()),
	}
}
