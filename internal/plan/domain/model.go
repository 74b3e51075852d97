package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is a subscription tier. Catalog entries are rarely mutated and
// never removed while tenants reference them.
type Plan struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Tier        string       `gorm:"type:text;not null;uniqueIndex:ux_plans_tier"`
	MaxUsers    int          `gorm:"column:max_users;not null;default:0"`
	MaxProjects int          `gorm:"column:max_projects;not null;default:0"`
	Active      bool         `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "plans" }

// PlanFeature is the grant relation. A feature is available to a
// tenant iff a row with enabled=true exists for the tenant's plan.
type PlanFeature struct {
	PlanID    snowflake.ID `gorm:"primaryKey;column:plan_id"`
	FeatureID snowflake.ID `gorm:"primaryKey;column:feature_id"`
	Enabled   bool         `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PlanFeature) TableName() string { return "plan_features" }

// FeatureGrant is a PlanFeature joined to its catalog row.
type FeatureGrant struct {
	PlanID         snowflake.ID
	FeatureID      snowflake.ID
	Key            string
	Name           string
	Category       string
	DefaultEnabled bool
	Enabled        bool
	Active         bool
}
