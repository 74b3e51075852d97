package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository runs the cross-table counts the dashboard needs. Zero
// tenantID or ownerID widens the predicate to all rows.
type Repository interface {
	CountTenants(ctx context.Context, db *gorm.DB) (int64, error)
	CountUsers(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	CountProjects(ctx context.Context, db *gorm.DB, tenantID, ownerID snowflake.ID) (int64, error)
	CountFeatures(ctx context.Context, db *gorm.DB) (int64, error)
	CountEnabledGrants(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int64, error)
}
