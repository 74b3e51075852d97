package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	TenantID snowflake.ID
	OwnerID  snowflake.ID
	Status   ProjectStatus
	AfterID  snowflake.ID
	PageSize int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Project, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Project, error)
	CountByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	CountByOwner(ctx context.Context, db *gorm.DB, tenantID, ownerID snowflake.ID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, project *Project) error
}
