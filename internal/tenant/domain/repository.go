package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status   TenantStatus
	AfterID  snowflake.ID
	PageSize int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Tenant, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Tenant, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Tenant, error)
	Update(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	UpdateSettings(ctx context.Context, db *gorm.DB, id snowflake.ID, settings datatypes.JSONMap) error
	AdjustUserCount(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) error
	AdjustProjectCount(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) error
}
