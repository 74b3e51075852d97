package repository

import (
	"context"
	"strings"
	"time"

	"github.com/blicktrack/platform/internal/plan/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Plan, error) {
	var p domain.Plan
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

func (r *repo) FindByTier(ctx context.Context, db *gorm.DB, tier string) (*domain.Plan, error) {
	var p domain.Plan
	err := db.WithContext(ctx).
		Where("tier = ?", strings.TrimSpace(tier)).
		Take(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Plan, error) {
	var items []domain.Plan
	stmt := db.WithContext(ctx).Model(&domain.Plan{})

	if filter.Tier != "" {
		stmt = stmt.Where("tier = ?", filter.Tier)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if err := stmt.Order("tier asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	if plan == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).
		Model(&domain.Plan{}).
		Where("id = ?", plan.ID).
		Updates(map[string]any{
			"tier":         plan.Tier,
			"max_users":    plan.MaxUsers,
			"max_projects": plan.MaxProjects,
			"active":       plan.Active,
			"updated_at":   plan.UpdatedAt,
		}).Error
}

const grantColumns = `plan_features.plan_id, plan_features.feature_id, plan_features.enabled,
	features.key, features.name, features.category, features.default_enabled, features.active`

func (r *repo) ListGrants(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]domain.FeatureGrant, error) {
	var items []domain.FeatureGrant
	err := db.WithContext(ctx).Raw(
		`SELECT `+grantColumns+`
		 FROM plan_features
		 JOIN features ON features.id = plan_features.feature_id
		 WHERE plan_features.plan_id = ?
		 ORDER BY features.key`,
		planID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindGrantByKey(ctx context.Context, db *gorm.DB, planID snowflake.ID, featureKey string) (*domain.FeatureGrant, error) {
	var item domain.FeatureGrant
	err := db.WithContext(ctx).Raw(
		`SELECT `+grantColumns+`
		 FROM plan_features
		 JOIN features ON features.id = plan_features.feature_id
		 WHERE plan_features.plan_id = ? AND features.key = ?`,
		planID,
		strings.TrimSpace(featureKey),
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.FeatureID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ReplaceGrants(ctx context.Context, db *gorm.DB, planID snowflake.ID, featureIDs []snowflake.ID, now time.Time) error {
	if err := db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Delete(&domain.PlanFeature{}).Error; err != nil {
		return err
	}
	if len(featureIDs) == 0 {
		return nil
	}

	rows := make([]domain.PlanFeature, 0, len(featureIDs))
	for _, featureID := range featureIDs {
		rows = append(rows, domain.PlanFeature{
			PlanID:    planID,
			FeatureID: featureID,
			Enabled:   true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) SetGrantEnabled(ctx context.Context, db *gorm.DB, planID, featureID snowflake.ID, enabled bool, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.PlanFeature{}).
		Where("plan_id = ? AND feature_id = ?", planID, featureID).
		Updates(map[string]any{
			"enabled":    enabled,
			"updated_at": now,
		}).Error
}
