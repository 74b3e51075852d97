// Package seed bootstraps the catalog and a default tenant so a fresh
// install is usable without manual setup.
package seed

import (
	"context"
	"errors"
	"time"

	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultTenantName = "Main"
	defaultTenantSlug = "main"
	defaultAdminEmail = "admin@blicktrack.io"
	defaultAdminName  = "Platform Admin"
)

type planSpec struct {
	tier        string
	maxUsers    int
	maxProjects int
	features    []string
}

var defaultPlans = []planSpec{
	{tier: "starter", maxUsers: 5, maxProjects: 3, features: []string{"projects", "reports"}},
	{tier: "pro", maxUsers: 50, maxProjects: 25, features: []string{"projects", "reports", "integrations", "api-access"}},
	{tier: "enterprise", maxUsers: 0, maxProjects: 0, features: []string{"projects", "reports", "integrations", "api-access", "sso", "audit-export"}},
}

type featureSpec struct {
	key            string
	name           string
	category       string
	defaultEnabled bool
}

var defaultFeatures = []featureSpec{
	{key: "projects", name: "Projects", category: "core", defaultEnabled: true},
	{key: "reports", name: "Reports", category: "analytics", defaultEnabled: true},
	{key: "integrations", name: "Integrations", category: "platform"},
	{key: "api-access", name: "API Access", category: "platform"},
	{key: "sso", name: "Single Sign-On", category: "security"},
	{key: "audit-export", name: "Audit Export", category: "security"},
}

// EnsureCatalog seeds the plan tiers, the feature catalog and the
// grants between them. Existing rows are left untouched.
func EnsureCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		features, err := ensureFeaturesTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensurePlansTx(ctx, tx, node, features)
	})
}

// EnsureMainTenant seeds the default tenant on the starter plan plus a
// super admin account, for OSS single-tenant bootstrap.
func EnsureMainTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := ensureMainTenantTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureAdminUserTx(ctx, tx, node, tenant.ID)
	})
}

func ensureFeaturesTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (map[string]snowflake.ID, error) {
	byKey := make(map[string]snowflake.ID, len(defaultFeatures))
	now := time.Now().UTC()

	for _, spec := range defaultFeatures {
		var feature featuredomain.Feature
		err := tx.WithContext(ctx).Where("key = ?", spec.key).First(&feature).Error
		if err == nil {
			byKey[spec.key] = feature.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		feature = featuredomain.Feature{
			ID:             node.Generate(),
			Key:            spec.key,
			Name:           spec.name,
			Category:       spec.category,
			DefaultEnabled: spec.defaultEnabled,
			Active:         true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.WithContext(ctx).Create(&feature).Error; err != nil {
			return nil, err
		}
		byKey[spec.key] = feature.ID
	}
	return byKey, nil
}

func ensurePlansTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, features map[string]snowflake.ID) error {
	now := time.Now().UTC()

	for _, spec := range defaultPlans {
		var plan plandomain.Plan
		err := tx.WithContext(ctx).Where("tier = ?", spec.tier).First(&plan).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			plan = plandomain.Plan{
				ID:          node.Generate(),
				Tier:        spec.tier,
				MaxUsers:    spec.maxUsers,
				MaxProjects: spec.maxProjects,
				Active:      true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
				return err
			}
		}

		for _, key := range spec.features {
			featureID, ok := features[key]
			if !ok {
				continue
			}
			var count int64
			if err := tx.WithContext(ctx).
				Model(&plandomain.PlanFeature{}).
				Where("plan_id = ? AND feature_id = ?", plan.ID, featureID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			grant := plandomain.PlanFeature{
				PlanID:    plan.ID,
				FeatureID: featureID,
				Enabled:   true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&grant).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureMainTenantTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := tx.WithContext(ctx).Where("slug = ?", defaultTenantSlug).First(&tenant).Error
	if err == nil {
		return &tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var plan plandomain.Plan
	var planID *snowflake.ID
	if err := tx.WithContext(ctx).Where("tier = ?", "starter").First(&plan).Error; err == nil {
		planID = &plan.ID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	tenant = tenantdomain.Tenant{
		ID:        node.Generate(),
		Name:      defaultTenantName,
		Slug:      defaultTenantSlug,
		PlanID:    planID,
		Status:    tenantdomain.TenantStatusActive,
		Settings:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func ensureAdminUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID) error {
	var user userdomain.User
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", tenantID, defaultAdminEmail).
		First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	user = userdomain.User{
		ID:          node.Generate(),
		TenantID:    tenantID,
		Email:       defaultAdminEmail,
		DisplayName: defaultAdminName,
		Role:        userdomain.RoleSuperAdmin,
		Status:      userdomain.UserStatusActive,
		UserType:    userdomain.UserTypeRegular,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Model(&tenantdomain.Tenant{}).
		Where("id = ?", tenantID).
		UpdateColumn("user_count", gorm.Expr("user_count + 1")).Error
}
