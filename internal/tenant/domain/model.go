// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusTrial     TenantStatus = "TRIAL"
)

// Tenant is the unit of data isolation. Rows are status-flagged and
// soft-deleted, never removed.
type Tenant struct {
	ID     snowflake.ID  `gorm:"primaryKey"`
	Name   string        `gorm:"type:text;not null"`
	Slug   string        `gorm:"type:text;not null;uniqueIndex:ux_tenants_slug"`
	PlanID *snowflake.ID `gorm:"column:plan_id;index"`
	Status TenantStatus  `gorm:"type:text;not null;default:TRIAL"`

	ComplianceTags datatypes.JSON    `gorm:"column:compliance_tags;type:jsonb"`
	Settings       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`

	UserCount    int `gorm:"column:user_count;not null;default:0"`
	ProjectCount int `gorm:"column:project_count;not null;default:0"`

	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

func (Tenant) TableName() string { return "tenants" }
