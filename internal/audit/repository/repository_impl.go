package repository

import (
	"context"

	"github.com/blicktrack/platform/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLog, error) {
	var rows []domain.AuditLog
	stmt := db.WithContext(ctx).
		Model(&domain.AuditLog{})

	if filter.TenantID != 0 {
		stmt = stmt.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.ActorID != 0 {
		stmt = stmt.Where("actor_id = ?", filter.ActorID)
	}
	if !filter.Since.IsZero() {
		stmt = stmt.Where("created_at >= ?", filter.Since)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	if err := stmt.Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
