package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Plan, error)
	FindByTier(ctx context.Context, db *gorm.DB, tier string) (*Plan, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Plan, error)
	Update(ctx context.Context, db *gorm.DB, plan *Plan) error

	ListGrants(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]FeatureGrant, error)
	FindGrantByKey(ctx context.Context, db *gorm.DB, planID snowflake.ID, featureKey string) (*FeatureGrant, error)
	ReplaceGrants(ctx context.Context, db *gorm.DB, planID snowflake.ID, featureIDs []snowflake.ID, now time.Time) error
	SetGrantEnabled(ctx context.Context, db *gorm.DB, planID, featureID snowflake.ID, enabled bool, now time.Time) error
}
