package repository

import (
	"context"

	"github.com/blicktrack/platform/internal/dashboard/domain"
	projectdomain "github.com/blicktrack/platform/internal/project/domain"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CountTenants(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&tenantdomain.Tenant{}).
		Where("deleted_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *repo) CountUsers(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).
		Model(&userdomain.User{}).
		Where("deleted_at IS NULL")
	if tenantID != 0 {
		stmt = stmt.Where("tenant_id = ?", tenantID)
	}
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) CountProjects(ctx context.Context, db *gorm.DB, tenantID, ownerID snowflake.ID) (int64, error) {
	var count int64
	stmt := db.WithContext(ctx).
		Model(&projectdomain.Project{}).
		Where("status = ?", projectdomain.ProjectStatusActive)
	if tenantID != 0 {
		stmt = stmt.Where("tenant_id = ?", tenantID)
	}
	if ownerID != 0 {
		stmt = stmt.Where("owner_id = ?", ownerID)
	}
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) CountFeatures(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("features").
		Where("active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *repo) CountEnabledGrants(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("plan_features").
		Where("plan_id = ? AND enabled = ?", planID, true).
		Count(&count).Error
	return count, err
}
