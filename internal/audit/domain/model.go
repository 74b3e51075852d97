// Package domain holds the append-only audit trail models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog rows are written once and never updated or deleted.
type AuditLog struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	TenantID     snowflake.ID      `gorm:"column:tenant_id;not null;index"`
	ActorID      snowflake.ID      `gorm:"column:actor_id"`
	ActorEmail   string            `gorm:"column:actor_email;type:text"`
	Action       string            `gorm:"type:text;not null"`
	ResourceType string            `gorm:"column:resource_type;type:text;not null"`
	ResourceID   string            `gorm:"column:resource_id;type:text"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }
