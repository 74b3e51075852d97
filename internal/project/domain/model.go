package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "ACTIVE"
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

type Project struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	TenantID    snowflake.ID  `gorm:"column:tenant_id;not null;index"`
	OwnerID     snowflake.ID  `gorm:"column:owner_id;not null;index"`
	Name        string        `gorm:"type:text;not null"`
	Description *string       `gorm:"type:text"`
	Status      ProjectStatus `gorm:"type:text;not null;default:ACTIVE"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Project) TableName() string { return "projects" }
