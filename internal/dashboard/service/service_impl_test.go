package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
	auditrepo "github.com/blicktrack/platform/internal/audit/repository"
	auditservice "github.com/blicktrack/platform/internal/audit/service"
	"github.com/blicktrack/platform/internal/config"
	"github.com/blicktrack/platform/internal/dashboard/domain"
	dashboardrepo "github.com/blicktrack/platform/internal/dashboard/repository"
	entitlementservice "github.com/blicktrack/platform/internal/entitlement/service"
	featurerepo "github.com/blicktrack/platform/internal/feature/repository"
	"github.com/blicktrack/platform/internal/migration"
	planrepo "github.com/blicktrack/platform/internal/plan/repository"
	projectdomain "github.com/blicktrack/platform/internal/project/domain"
	projectrepo "github.com/blicktrack/platform/internal/project/repository"
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

type env struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node

	tenantA tenantdomain.Tenant
	tenantB tenantdomain.Tenant
	userA   userdomain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder, err := config.NewPlatformConfigHolder()
	require.NoError(t, err)

	auditSvc := auditservice.New(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: auditrepo.Provide(),
	})
	entitlementSvc := entitlementservice.New(entitlementservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		FeatureRepo: featurerepo.Provide(),
		PlanRepo:    planrepo.Provide(),
		TenantRepo:  tenantrepo.Provide(),
		UserRepo:    userrepo.Provide(),
	})

	e := &env{db: db, node: node}
	e.svc = New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Platform:    holder,
		Repo:        dashboardrepo.Provide(),
		TenantRepo:  tenantrepo.Provide(),
		ProjectRepo: projectrepo.Provide(),
		Audit:       auditSvc,
		Entitlement: entitlementSvc,
	})

	now := time.Now().UTC()
	e.tenantA = tenantdomain.Tenant{
		ID: node.Generate(), Name: "Acme", Slug: "acme",
		Status: tenantdomain.TenantStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	e.tenantB = tenantdomain.Tenant{
		ID: node.Generate(), Name: "Globex", Slug: "globex",
		Status: tenantdomain.TenantStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&e.tenantA).Error)
	require.NoError(t, db.Create(&e.tenantB).Error)

	e.userA = userdomain.User{
		ID: node.Generate(), TenantID: e.tenantA.ID, Email: "a@acme.test",
		DisplayName: "A", Role: userdomain.RoleEndUser,
		Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	userB := userdomain.User{
		ID: node.Generate(), TenantID: e.tenantB.ID, Email: "b@globex.test",
		DisplayName: "B", Role: userdomain.RoleEndUser,
		Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&e.userA).Error)
	require.NoError(t, db.Create(&userB).Error)

	e.seedProject(t, e.tenantA.ID, e.userA.ID, "alpha")
	e.seedProject(t, e.tenantA.ID, e.node.Generate(), "beta")
	e.seedProject(t, e.tenantB.ID, userB.ID, "gamma")

	return e
}

func (e *env) seedProject(t *testing.T, tenantID, ownerID snowflake.ID, name string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&projectdomain.Project{
		ID: e.node.Generate(), TenantID: tenantID, OwnerID: ownerID, Name: name,
		Status: projectdomain.ProjectStatusActive, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func TestStatsScopedPerRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Platform roles count the whole estate.
	stats, err := e.svc.Stats(ctx, domain.Subject{Role: "SUPER_ADMIN"})
	require.NoError(t, err)
	require.NotNil(t, stats.Tenants)
	require.EqualValues(t, 2, *stats.Tenants)
	require.EqualValues(t, 2, *stats.Users)
	require.EqualValues(t, 3, *stats.Projects)

	// A tenant admin only sees their own tenant's rows.
	stats, err = e.svc.Stats(ctx, domain.Subject{
		TenantID: e.tenantA.ID.String(),
		Role:     "TENANT_ADMIN",
	})
	require.NoError(t, err)
	require.Nil(t, stats.Tenants)
	require.EqualValues(t, 1, *stats.Users)
	require.EqualValues(t, 2, *stats.Projects)

	// An end user sees only what they own.
	stats, err = e.svc.Stats(ctx, domain.Subject{
		UserID:   e.userA.ID.String(),
		TenantID: e.tenantA.ID.String(),
		Role:     "END_USER",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, *stats.Projects)
}

func TestStatsRequiresTenantForTenantRoles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Stats(ctx, domain.Subject{Role: "TENANT_ADMIN"})
	require.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = e.svc.Stats(ctx, domain.Subject{
		TenantID: e.tenantA.ID.String(),
		Role:     "END_USER",
	})
	require.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = e.svc.Stats(ctx, domain.Subject{Role: "AUDITOR"})
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestSystemHealthVisibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	health, err := e.svc.SystemHealth(ctx, domain.Subject{Role: "PLATFORM_ADMIN"})
	require.NoError(t, err)
	require.Equal(t, domain.HealthOK, health.Status)
	require.Empty(t, health.Redis)

	_, err = e.svc.SystemHealth(ctx, domain.Subject{
		TenantID: e.tenantA.ID.String(),
		Role:     "TENANT_ADMIN",
	})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestActivityScopedToTenant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, e.db.Create(&auditdomain.AuditLog{
		ID: e.node.Generate(), TenantID: e.tenantA.ID,
		Action: "project.create", ResourceType: "project", CreatedAt: now,
	}).Error)
	require.NoError(t, e.db.Create(&auditdomain.AuditLog{
		ID: e.node.Generate(), TenantID: e.tenantB.ID,
		Action: "user.invite", ResourceType: "user", CreatedAt: now,
	}).Error)

	events, err := e.svc.Activity(ctx, domain.Subject{
		TenantID: e.tenantA.ID.String(),
		Role:     "TENANT_ADMIN",
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "project.create", events[0].Action)

	// Platform roles without a tenant filter see everything.
	events, err = e.svc.Activity(ctx, domain.Subject{Role: "SUPER_ADMIN"})
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestSummaryAssemblesSections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	summary, err := e.svc.Summary(ctx, domain.Subject{Role: "SUPER_ADMIN"})
	require.NoError(t, err)
	require.NotNil(t, summary.Stats)
	require.NotNil(t, summary.Health)
	require.NotEmpty(t, summary.Navigation)
	require.Len(t, summary.Projects, 3)
	require.False(t, summary.GeneratedAt.IsZero())

	summary, err = e.svc.Summary(ctx, domain.Subject{
		TenantID: e.tenantA.ID.String(),
		Role:     "TENANT_ADMIN",
	})
	require.NoError(t, err)
	require.Nil(t, summary.Health)
	require.Len(t, summary.Projects, 2)
}
