package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
	auditrepo "github.com/blicktrack/platform/internal/audit/repository"
	auditservice "github.com/blicktrack/platform/internal/audit/service"
	"github.com/blicktrack/platform/internal/auth"
	"github.com/blicktrack/platform/internal/authorization"
	"github.com/blicktrack/platform/internal/config"
	dashboardrepo "github.com/blicktrack/platform/internal/dashboard/repository"
	dashboardservice "github.com/blicktrack/platform/internal/dashboard/service"
	entitlementservice "github.com/blicktrack/platform/internal/entitlement/service"
	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	featurerepo "github.com/blicktrack/platform/internal/feature/repository"
	featureservice "github.com/blicktrack/platform/internal/feature/service"
	"github.com/blicktrack/platform/internal/migration"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	planrepo "github.com/blicktrack/platform/internal/plan/repository"
	planservice "github.com/blicktrack/platform/internal/plan/service"
	projectrepo "github.com/blicktrack/platform/internal/project/repository"
	projectservice "github.com/blicktrack/platform/internal/project/service"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	tenantrepo "github.com/blicktrack/platform/internal/tenant/repository"
	tenantservice "github.com/blicktrack/platform/internal/tenant/service"
	userrepo "github.com/blicktrack/platform/internal/user/repository"
	userservice "github.com/blicktrack/platform/internal/user/service"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testJWTSecret = "server-test-secret"

type testServer struct {
	srv  *Server
	db   *gorm.DB
	node *snowflake.Node

	tenant  tenantdomain.Tenant
	plan    plandomain.Plan
	granted featuredomain.Feature
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	cfg := config.Config{AuthJWTSecret: testJWTSecret}
	holder, err := config.NewPlatformConfigHolder()
	require.NoError(t, err)

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	auditSvc := auditservice.New(auditservice.Params{
		DB: db, Log: log, GenID: node, Repo: auditrepo.Provide(),
	})
	authzSvc := authorization.NewService(authorization.Params{
		DB: db, Log: log, Enforcer: enforcer, AuditSvc: auditSvc,
	})
	tenantSvc := tenantservice.New(tenantservice.Params{
		DB: db, Log: log, GenID: node, Repo: tenantrepo.Provide(), PlanRepo: planrepo.Provide(),
	})
	userSvc := userservice.New(userservice.Params{
		DB: db, Log: log, GenID: node, Repo: userrepo.Provide(),
		TenantRepo: tenantrepo.Provide(), PlanRepo: planrepo.Provide(), FeatureRepo: featurerepo.Provide(),
	})
	featureSvc := featureservice.New(featureservice.Params{
		DB: db, Log: log, GenID: node, Repo: featurerepo.Provide(),
	})
	planSvc := planservice.New(planservice.Params{
		DB: db, Log: log, GenID: node, Repo: planrepo.Provide(), FeatureRepo: featurerepo.Provide(),
	})
	projectSvc := projectservice.New(projectservice.Params{
		DB: db, Log: log, GenID: node, Repo: projectrepo.Provide(),
		TenantRepo: tenantrepo.Provide(), PlanRepo: planrepo.Provide(),
	})
	entitlementSvc := entitlementservice.New(entitlementservice.Params{
		DB: db, Log: log, FeatureRepo: featurerepo.Provide(), PlanRepo: planrepo.Provide(),
		TenantRepo: tenantrepo.Provide(), UserRepo: userrepo.Provide(),
	})
	dashboardSvc := dashboardservice.New(dashboardservice.Params{
		DB: db, Log: log, Platform: holder, Repo: dashboardrepo.Provide(),
		TenantRepo: tenantrepo.Provide(), ProjectRepo: projectrepo.Provide(),
		Audit: auditSvc, Entitlement: entitlementSvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:            engine,
		Cfg:            cfg,
		DB:             db,
		GenID:          node,
		Verifier:       auth.NewVerifier(cfg),
		AuthzSvc:       authzSvc,
		AuditSvc:       auditSvc,
		TenantSvc:      tenantSvc,
		UserSvc:        userSvc,
		FeatureSvc:     featureSvc,
		PlanSvc:        planSvc,
		ProjectSvc:     projectSvc,
		EntitlementSvc: entitlementSvc,
		DashboardSvc:   dashboardSvc,
	})

	ts := &testServer{srv: srv, db: db, node: node}
	ts.seed(t)
	return ts
}

func (ts *testServer) seed(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()

	ts.plan = plandomain.Plan{
		ID: ts.node.Generate(), Tier: "pro", Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, ts.db.Create(&ts.plan).Error)

	ts.granted = featuredomain.Feature{
		ID: ts.node.Generate(), Key: "projects", Name: "Projects", Category: "core",
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, ts.db.Create(&ts.granted).Error)
	require.NoError(t, ts.db.Create(&plandomain.PlanFeature{
		PlanID: ts.plan.ID, FeatureID: ts.granted.ID, Enabled: true, CreatedAt: now, UpdatedAt: now,
	}).Error)

	ts.tenant = tenantdomain.Tenant{
		ID: ts.node.Generate(), Name: "Acme", Slug: "acme", PlanID: &ts.plan.ID,
		Status: tenantdomain.TenantStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, ts.db.Create(&ts.tenant).Error)
}

func (ts *testServer) token(t *testing.T, role string, tenantID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   ts.node.Generate().String(),
		"email": "caller@acme.test",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if tenantID != "" {
		claims["tenantId"] = tenantID
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/dashboard", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "unauthorized", resp.Error.Type)
}

func TestEntitlementCheckOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	token := ts.token(t, "TENANT_ADMIN", ts.tenant.ID.String())
	rec := ts.do(t, http.MethodGet, "/api/v1/entitlements/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			FeatureKey string `json:"feature_key"`
			Allowed    bool   `json:"allowed"`
			Reason     string `json:"reason"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Data.Allowed)
	require.Equal(t, "plan_granted", resp.Data.Reason)

	// A denial is still a 200 carrying the reason.
	token = ts.token(t, "END_USER", ts.tenant.ID.String())
	rec = ts.do(t, http.MethodGet, "/api/v1/entitlements/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Data.Allowed)
	require.Equal(t, "override_inactive", resp.Data.Reason)
}

func TestTenantListRequiresPlatformRole(t *testing.T) {
	ts := newTestServer(t)

	token := ts.token(t, "END_USER", ts.tenant.ID.String())
	rec := ts.do(t, http.MethodGet, "/api/v1/tenants", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	token = ts.token(t, "PLATFORM_ADMIN", "")
	rec = ts.do(t, http.MethodGet, "/api/v1/tenants", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFeatureLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "SUPER_ADMIN", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/features", admin, map[string]any{
		"key":      "reports",
		"name":     "Reports",
		"category": "analytics",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/features/reports", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/features/reports/archive", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Active bool `json:"active"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Data.Active)

	// Archiving is reserved for super admins.
	platform := ts.token(t, "PLATFORM_ADMIN", "")
	rec = ts.do(t, http.MethodPost, "/api/v1/features/reports/archive", platform, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlatformRoleIgnoresTokenTenantClaim(t *testing.T) {
	ts := newTestServer(t)
	now := time.Now().UTC()

	other := tenantdomain.Tenant{
		ID: ts.node.Generate(), Name: "Globex", Slug: "globex",
		Status: tenantdomain.TenantStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, ts.db.Create(&other).Error)
	require.NoError(t, ts.db.Create(&auditdomain.AuditLog{
		ID: ts.node.Generate(), TenantID: ts.tenant.ID,
		Action: "project.create", ResourceType: "project", CreatedAt: now,
	}).Error)
	require.NoError(t, ts.db.Create(&auditdomain.AuditLog{
		ID: ts.node.Generate(), TenantID: other.ID,
		Action: "user.invite", ResourceType: "user", CreatedAt: now,
	}).Error)

	// The tenant claim in a platform token does not narrow the view.
	token := ts.token(t, "SUPER_ADMIN", ts.tenant.ID.String())
	rec := ts.do(t, http.MethodGet, "/api/v1/dashboard/activity", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			Action string `json:"action"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)

	// Drilling in stays explicit, via the tenant header.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/activity", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderTenant, other.ID.String())
	scoped := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(scoped, req)
	require.Equal(t, http.StatusOK, scoped.Code)

	require.NoError(t, json.Unmarshal(scoped.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "user.invite", resp.Data[0].Action)
}

func TestMissingResourceMapsToNotFound(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "PLATFORM_ADMIN", "")

	rec := ts.do(t, http.MethodGet, "/api/v1/features/nope", admin, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "not_found", resp.Error.Type)
}
