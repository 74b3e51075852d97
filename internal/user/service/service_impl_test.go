package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	featurerepo "github.com/blicktrack/platform/internal/feature/repository"
	"github.com/blicktrack/platform/internal/migration"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	planrepo "github.com/blicktrack/platform/internal/plan/repository"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	tenantrepo "github.com/blicktrack/platform/internal/tenant/repository"
	"github.com/blicktrack/platform/internal/user/domain"
	userrepo "github.com/blicktrack/platform/internal/user/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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

func newUserService(t *testing.T, db *gorm.DB, node *snowflake.Node) domain.Service {
	t.Helper()
	return New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        userrepo.Provide(),
		TenantRepo:  tenantrepo.Provide(),
		PlanRepo:    planrepo.Provide(),
		FeatureRepo: featurerepo.Provide(),
	})
}

func seedTenant(t *testing.T, db *gorm.DB, node *snowflake.Node, maxUsers int) tenantdomain.Tenant {
	t.Helper()
	now := time.Now().UTC()

	plan := plandomain.Plan{
		ID: node.Generate(), Tier: fmt.Sprintf("tier-%d", node.Generate()),
		MaxUsers: maxUsers, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&plan).Error)

	tenant := tenantdomain.Tenant{
		ID: node.Generate(), Name: "Acme", Slug: fmt.Sprintf("acme-%d", node.Generate()),
		PlanID: &plan.ID, Status: tenantdomain.TenantStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&tenant).Error)
	return tenant
}

func TestInviteEnforcesPlanQuota(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newUserService(t, db, node)
	tenant := seedTenant(t, db, node, 1)
	ctx := context.Background()

	first, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "one@acme.test",
		Role:     "END_USER",
	})
	require.NoError(t, err)
	require.Equal(t, string(domain.UserStatusInvited), first.Status)

	_, err = svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "two@acme.test",
		Role:     "END_USER",
	})
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	var refreshed tenantdomain.Tenant
	require.NoError(t, db.First(&refreshed, "id = ?", tenant.ID).Error)
	require.Equal(t, 1, refreshed.UserCount)
}

func TestInviteRejectsDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newUserService(t, db, node)
	tenant := seedTenant(t, db, node, 0)
	ctx := context.Background()

	_, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "dup@acme.test",
		Role:     "TENANT_ADMIN",
	})
	require.NoError(t, err)

	_, err = svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "DUP@acme.test",
		Role:     "END_USER",
	})
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestInviteNormalizesLegacyRoles(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newUserService(t, db, node)
	tenant := seedTenant(t, db, node, 0)
	ctx := context.Background()

	resp, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "owner@acme.test",
		Role:     "TENANT_OWNER",
	})
	require.NoError(t, err)
	require.Equal(t, string(domain.RoleTenantAdmin), resp.Role)

	_, err = svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "weird@acme.test",
		Role:     "JANITOR",
	})
	require.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestGetByIDScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newUserService(t, db, node)
	tenantA := seedTenant(t, db, node, 0)
	tenantB := seedTenant(t, db, node, 0)
	ctx := context.Background()

	created, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenantA.ID.String(),
		Email:    "user@acme.test",
		Role:     "END_USER",
	})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, tenantA.ID.String(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	// The same user through another tenant's scope reads as missing.
	_, err = svc.GetByID(ctx, tenantB.ID.String(), created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPermissionMapReflectsOverrides(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newUserService(t, db, node)
	tenant := seedTenant(t, db, node, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	projects := featuredomain.Feature{
		ID: node.Generate(), Key: "projects", Name: "Projects", Category: "core",
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	reports := featuredomain.Feature{
		ID: node.Generate(), Key: "reports", Name: "Reports", Category: "analytics",
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&projects).Error)
	require.NoError(t, db.Create(&reports).Error)
	require.NoError(t, db.Create(&plandomain.PlanFeature{
		PlanID: *tenant.PlanID, FeatureID: projects.ID, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&plandomain.PlanFeature{
		PlanID: *tenant.PlanID, FeatureID: reports.ID, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	admin, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "admin@acme.test",
		Role:     "TENANT_ADMIN",
	})
	require.NoError(t, err)

	endUser, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "user@acme.test",
		Role:     "END_USER",
	})
	require.NoError(t, err)

	perms, err := svc.PermissionMap(ctx, tenant.ID.String(), admin.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"projects": true, "reports": true}, perms)

	// End users default to denied until an override row activates them.
	perms, err = svc.PermissionMap(ctx, tenant.ID.String(), endUser.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"projects": false, "reports": false}, perms)

	require.NoError(t, svc.SetFeatureAccess(ctx, domain.SetFeatureAccessRequest{
		TenantID: tenant.ID.String(),
		UserID:   endUser.ID,
		Features: map[string]bool{"projects": true},
	}))

	perms, err = svc.PermissionMap(ctx, tenant.ID.String(), endUser.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"projects": true, "reports": false}, perms)
}

func TestRemoveFeatureAccessRestoresDefaultDeny(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newUserService(t, db, node)
	tenant := seedTenant(t, db, node, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	projects := featuredomain.Feature{
		ID: node.Generate(), Key: "projects", Name: "Projects", Category: "core",
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&projects).Error)
	require.NoError(t, db.Create(&plandomain.PlanFeature{
		PlanID: *tenant.PlanID, FeatureID: projects.ID, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	user, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "user@acme.test",
		Role:     "END_USER",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetFeatureAccess(ctx, domain.SetFeatureAccessRequest{
		TenantID: tenant.ID.String(),
		UserID:   user.ID,
		Features: map[string]bool{"projects": true},
	}))

	views, err := svc.ListFeatureAccess(ctx, tenant.ID.String(), user.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "projects", views[0].Key)
	require.True(t, views[0].Active)

	require.NoError(t, svc.RemoveFeatureAccess(ctx, tenant.ID.String(), user.ID, "projects"))

	views, err = svc.ListFeatureAccess(ctx, tenant.ID.String(), user.ID)
	require.NoError(t, err)
	require.Empty(t, views)

	perms, err := svc.PermissionMap(ctx, tenant.ID.String(), user.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"projects": false}, perms)

	// Removing again stays a no-op; an unknown key does not.
	require.NoError(t, svc.RemoveFeatureAccess(ctx, tenant.ID.String(), user.ID, "projects"))
	err = svc.RemoveFeatureAccess(ctx, tenant.ID.String(), user.ID, "no-such-feature")
	require.ErrorIs(t, err, domain.ErrUnknownFeature)
}

func TestSetFeatureAccessUnknownFeature(t *testing.T) {
	db := openTestDB(t)
	node := mustNode(t)
	svc := newUserService(t, db, node)
	tenant := seedTenant(t, db, node, 0)
	ctx := context.Background()

	user, err := svc.Invite(ctx, domain.InviteRequest{
		TenantID: tenant.ID.String(),
		Email:    "user@acme.test",
		Role:     "END_USER",
	})
	require.NoError(t, err)

	err = svc.SetFeatureAccess(ctx, domain.SetFeatureAccessRequest{
		TenantID: tenant.ID.String(),
		UserID:   user.ID,
		Features: map[string]bool{"no-such-feature": true},
	})
	require.ErrorIs(t, err, domain.ErrUnknownFeature)
}
