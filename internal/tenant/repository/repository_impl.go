package repository

import (
	"context"
	"strings"
	"time"

	"github.com/blicktrack/platform/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Create(tenant).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Tenant, error) {
	var t domain.Tenant
	err := db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		Take(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := db.WithContext(ctx).
		Where("slug = ? AND deleted_at IS NULL", strings.TrimSpace(slug)).
		Take(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Tenant, error) {
	var items []domain.Tenant
	stmt := db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("deleted_at IS NULL")

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}

	limit := filter.PageSize
	if limit <= 0 {
		limit = 20
	}

	if err := stmt.Order("id asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	if tenant == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", tenant.ID).
		Updates(map[string]any{
			"name":            tenant.Name,
			"plan_id":         tenant.PlanID,
			"status":          tenant.Status,
			"compliance_tags": tenant.ComplianceTags,
			"updated_at":      tenant.UpdatedAt,
		}).Error
}

// UpdateSettings writes the full settings blob; last writer wins.
func (r *repo) UpdateSettings(ctx context.Context, db *gorm.DB, id snowflake.ID, settings datatypes.JSONMap) error {
	return db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"settings":   settings,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) AdjustUserCount(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) error {
	return db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", id).
		UpdateColumn("user_count", gorm.Expr("user_count + ?", delta)).Error
}

func (r *repo) AdjustProjectCount(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int) error {
	return db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", id).
		UpdateColumn("project_count", gorm.Expr("project_count + ?", delta)).Error
}
