package repository

import (
	"context"
	"strings"

	"github.com/blicktrack/platform/internal/feature/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, feature *domain.Feature) error {
	return db.WithContext(ctx).Create(feature).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Feature, error) {
	var f domain.Feature
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&f).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Feature, error) {
	var f domain.Feature
	err := db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		Take(&f).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Feature, error) {
	var items []domain.Feature
	stmt := db.WithContext(ctx).Model(&domain.Feature{})

	if filter.Key != "" {
		stmt = stmt.Where("key = ?", filter.Key)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.DefaultEnabled != nil {
		stmt = stmt.Where("default_enabled = ?", *filter.DefaultEnabled)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	stmt = stmt.Order(sortClause(filter.SortBy, filter.OrderBy))

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Feature, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Feature
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListDefaultEnabled(ctx context.Context, db *gorm.DB) ([]domain.Feature, error) {
	var items []domain.Feature
	err := db.WithContext(ctx).
		Where("default_enabled = ? AND active = ?", true, true).
		Order("key asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, feature *domain.Feature) error {
	if feature == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Feature{}).
		Where("id = ?", feature.ID).
		Updates(map[string]any{
			"name":            feature.Name,
			"description":     feature.Description,
			"category":        feature.Category,
			"default_enabled": feature.DefaultEnabled,
			"default_config":  feature.DefaultConfig,
			"active":          feature.Active,
			"updated_at":      feature.UpdatedAt,
		}).Error
}

var sortableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"key":        true,
	"name":       true,
	"category":   true,
}

func sortClause(sortBy, orderBy string) string {
	column := strings.ToLower(strings.TrimSpace(sortBy))
	if !sortableColumns[column] {
		column = "created_at"
	}
	direction := "desc"
	if strings.EqualFold(strings.TrimSpace(orderBy), "asc") {
		direction = "asc"
	}
	return column + " " + direction
}
