package repository

import (
	"context"

	"github.com/blicktrack/platform/internal/project/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Create(project).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Project, error) {
	var items []domain.Project
	stmt := db.WithContext(ctx).Model(&domain.Project{})

	// Zero tenant means platform-wide listing.
	if filter.TenantID != 0 {
		stmt = stmt.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.OwnerID != 0 {
		stmt = stmt.Where("owner_id = ?", filter.OwnerID)
	}
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

func (r *repo) CountByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("tenant_id = ? AND status = ?", tenantID, domain.ProjectStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repo) CountByOwner(ctx context.Context, db *gorm.DB, tenantID, ownerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("tenant_id = ? AND owner_id = ? AND status = ?", tenantID, ownerID, domain.ProjectStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	if project == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", project.ID).
		Updates(map[string]any{
			"name":        project.Name,
			"description": project.Description,
			"status":      project.Status,
			"updated_at":  project.UpdatedAt,
		}).Error
}
