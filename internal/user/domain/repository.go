package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	TenantID snowflake.ID
	Role     Role
	Status   UserStatus
	AfterID  snowflake.ID
	PageSize int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, email string) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]User, error)
	CountByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, user *User) error

	ListFeatureAccess(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]UserFeatureAccess, error)
	UpsertFeatureAccess(ctx context.Context, db *gorm.DB, access *UserFeatureAccess) error
	DeleteFeatureAccess(ctx context.Context, db *gorm.DB, userID, featureID snowflake.ID) error
}
