package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Feature is a global catalog entry. The catalog is append-only:
// entries are archived, never removed.
type Feature struct {
	ID  snowflake.ID `gorm:"primaryKey"`
	Key string       `gorm:"type:text;not null;uniqueIndex:ux_features_key"`

	Name           string            `gorm:"type:text;not null"`
	Description    *string           `gorm:"type:text"`
	Category       string            `gorm:"type:text;not null"`
	DefaultEnabled bool              `gorm:"column:default_enabled;not null;default:false"`
	DefaultConfig  datatypes.JSONMap `gorm:"column:default_config;type:jsonb"`
	Active         bool              `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Feature) TableName() string { return "features" }
