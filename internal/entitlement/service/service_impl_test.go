package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/blicktrack/platform/internal/entitlement/domain"
	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	featurerepo "github.com/blicktrack/platform/internal/feature/repository"
	"github.com/blicktrack/platform/internal/migration"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	planrepo "github.com/blicktrack/platform/internal/plan/repository"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	tenantrepo "github.com/blicktrack/platform/internal/tenant/repository"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	userrepo "github.com/blicktrack/platform/internal/user/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	node     *snowflake.Node
	tenantID snowflake.ID
	userID   snowflake.ID

	granted   featuredomain.Feature
	disabled  featuredomain.Feature
	ungranted featuredomain.Feature
	archived  featuredomain.Feature
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	node := mustNode(t)
	now := time.Now().UTC()

	f := &fixture{
		db:     db,
		node:   node,
		userID: node.Generate(),
	}

	f.granted = featuredomain.Feature{
		ID: node.Generate(), Key: "projects", Name: "Projects", Category: "core",
		DefaultEnabled: true, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	// Not default-enabled: granted to the plan but outside the platform set.
	f.disabled = featuredomain.Feature{
		ID: node.Generate(), Key: "reports", Name: "Reports", Category: "analytics",
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	f.ungranted = featuredomain.Feature{
		ID: node.Generate(), Key: "sso", Name: "SSO", Category: "security",
		DefaultEnabled: true, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	f.archived = featuredomain.Feature{
		ID: node.Generate(), Key: "legacy", Name: "Legacy", Category: "core",
		DefaultEnabled: true, Active: false, CreatedAt: now, UpdatedAt: now,
	}
	for _, feature := range []featuredomain.Feature{f.granted, f.disabled, f.ungranted, f.archived} {
		require.NoError(t, db.Create(&feature).Error)
	}

	plan := plandomain.Plan{ID: node.Generate(), Tier: "pro", Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&plan).Error)
	require.NoError(t, db.Create(&plandomain.PlanFeature{
		PlanID: plan.ID, FeatureID: f.granted.ID, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&plandomain.PlanFeature{
		PlanID: plan.ID, FeatureID: f.disabled.ID, Enabled: false, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&plandomain.PlanFeature{
		PlanID: plan.ID, FeatureID: f.archived.ID, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	tenant := tenantdomain.Tenant{
		ID: node.Generate(), Name: "Acme", Slug: "acme", PlanID: &plan.ID,
		Status: tenantdomain.TenantStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&tenant).Error)
	f.tenantID = tenant.ID

	f.svc = New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		FeatureRepo: featurerepo.Provide(),
		PlanRepo:    planrepo.Provide(),
		TenantRepo:  tenantrepo.Provide(),
		UserRepo:    userrepo.Provide(),
	})
	return f
}

func (f *fixture) subject(role string) domain.Subject {
	return domain.Subject{
		UserID:   f.userID.String(),
		TenantID: f.tenantID.String(),
		Role:     role,
	}
}

func (f *fixture) setOverride(t *testing.T, featureID snowflake.ID, active bool) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&userdomain.UserFeatureAccess{
		UserID: f.userID, FeatureID: featureID, IsActive: active, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func TestCanAccessFeaturePlatformBypass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	subject := domain.Subject{Role: "PLATFORM_ADMIN"}

	decision, err := f.svc.CanAccessFeature(ctx, subject, "sso")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, domain.ReasonRoleBypass, decision.Reason)

	decision, err = f.svc.CanAccessFeature(ctx, subject, "legacy")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonFeatureInactive, decision.Reason)

	decision, err = f.svc.CanAccessFeature(ctx, subject, "no-such-feature")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonFeatureNotFound, decision.Reason)
}

func TestCanAccessFeatureTenantAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	subject := f.subject("TENANT_ADMIN")

	decision, err := f.svc.CanAccessFeature(ctx, subject, "projects")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, domain.ReasonPlanGranted, decision.Reason)

	decision, err = f.svc.CanAccessFeature(ctx, subject, "reports")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonGrantDisabled, decision.Reason)

	decision, err = f.svc.CanAccessFeature(ctx, subject, "sso")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonNotGranted, decision.Reason)
}

func TestCanAccessFeatureTenantWithoutPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	bare := tenantdomain.Tenant{
		ID: f.node.Generate(), Name: "Bare", Slug: "bare",
		Status: tenantdomain.TenantStatusTrial, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&bare).Error)

	subject := domain.Subject{
		TenantID: bare.ID.String(),
		Role:     "TENANT_ADMIN",
	}

	decision, err := f.svc.CanAccessFeature(ctx, subject, "projects")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonNoPlan, decision.Reason)

	// No plan means no available features either.
	views, err := f.svc.AvailableFeatures(ctx, subject)
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestCanAccessFeatureEndUserOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	subject := f.subject("END_USER")

	// Plan grant alone is not enough for an end user.
	decision, err := f.svc.CanAccessFeature(ctx, subject, "projects")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonOverrideInactive, decision.Reason)

	f.setOverride(t, f.granted.ID, true)
	decision, err = f.svc.CanAccessFeature(ctx, subject, "projects")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, domain.ReasonOverrideActive, decision.Reason)

	// An override cannot widen past the plan.
	f.setOverride(t, f.ungranted.ID, true)
	decision, err = f.svc.CanAccessFeature(ctx, subject, "sso")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonNotGranted, decision.Reason)
}

func TestCanAccessFeatureUnknownRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CanAccessFeature(context.Background(), f.subject("AUDITOR"), "projects")
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestCanAccessFeatureLegacyRoleNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	decision, err := f.svc.CanAccessFeature(ctx, f.subject("ADMIN"), "projects")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, domain.ReasonPlanGranted, decision.Reason)

	decision, err = f.svc.CanAccessFeature(ctx, f.subject("MEMBER"), "projects")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, domain.ReasonOverrideInactive, decision.Reason)
}

func TestAvailableFeaturesPerRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Platform roles see the default-enabled catalog; "reports" is not
	// default-enabled and "legacy" is archived, so both stay out.
	views, err := f.svc.AvailableFeatures(ctx, domain.Subject{Role: "SUPER_ADMIN"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"projects", "sso"}, viewKeys(views))

	views, err = f.svc.AvailableFeatures(ctx, f.subject("TENANT_ADMIN"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"projects"}, viewKeys(views))

	views, err = f.svc.AvailableFeatures(ctx, f.subject("END_USER"))
	require.NoError(t, err)
	require.Empty(t, views)

	f.setOverride(t, f.granted.ID, true)
	views, err = f.svc.AvailableFeatures(ctx, f.subject("END_USER"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"projects"}, viewKeys(views))
}

func viewKeys(views []domain.FeatureView) []string {
	keys := make([]string, 0, len(views))
	for _, view := range views {
		keys = append(keys, view.Key)
	}
	return keys
}
