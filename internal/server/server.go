package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blicktrack/platform/internal/audit"
	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
	"github.com/blicktrack/platform/internal/auth"
	"github.com/blicktrack/platform/internal/authorization"
	"github.com/blicktrack/platform/internal/config"
	"github.com/blicktrack/platform/internal/dashboard"
	dashboarddomain "github.com/blicktrack/platform/internal/dashboard/domain"
	"github.com/blicktrack/platform/internal/entitlement"
	entitlementdomain "github.com/blicktrack/platform/internal/entitlement/domain"
	"github.com/blicktrack/platform/internal/feature"
	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	"github.com/blicktrack/platform/internal/observability"
	obsmiddleware "github.com/blicktrack/platform/internal/observability/logger"
	obsmetrics "github.com/blicktrack/platform/internal/observability/metrics"
	obstracing "github.com/blicktrack/platform/internal/observability/tracing"
	"github.com/blicktrack/platform/internal/plan"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	"github.com/blicktrack/platform/internal/project"
	projectdomain "github.com/blicktrack/platform/internal/project/domain"
	"github.com/blicktrack/platform/internal/ratelimit"
	"github.com/blicktrack/platform/internal/tenant"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	"github.com/blicktrack/platform/internal/user"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	auth.Module,
	authorization.Module,
	audit.Module,
	feature.Module,
	plan.Module,
	tenant.Module,
	user.Module,
	project.Module,
	entitlement.Module,
	dashboard.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	verifier       *auth.Verifier
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	tenantSvc      tenantdomain.Service
	userSvc        userdomain.Service
	featureSvc     featuredomain.Service
	planSvc        plandomain.Service
	projectSvc     projectdomain.Service
	entitlementSvc entitlementdomain.Service
	dashboardSvc   dashboarddomain.Service
	obsMetrics     *obsmetrics.Metrics
	limiter        *ratelimit.EntitlementLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	Verifier       *auth.Verifier
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	TenantSvc      tenantdomain.Service
	UserSvc        userdomain.Service
	FeatureSvc     featuredomain.Service
	PlanSvc        plandomain.Service
	ProjectSvc     projectdomain.Service
	EntitlementSvc entitlementdomain.Service
	DashboardSvc   dashboarddomain.Service
	ObsMetrics     *obsmetrics.Metrics           `optional:"true"`
	Limiter        *ratelimit.EntitlementLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		verifier:       p.Verifier,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		tenantSvc:      p.TenantSvc,
		userSvc:        p.UserSvc,
		featureSvc:     p.FeatureSvc,
		planSvc:        p.PlanSvc,
		projectSvc:     p.ProjectSvc,
		entitlementSvc: p.EntitlementSvc,
		dashboardSvc:   p.DashboardSvc,
		obsMetrics:     p.ObsMetrics,
		limiter:        p.Limiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.AuthRequired())

	// -------- Dashboard --------
	dash := api.Group("/dashboard")
	dash.GET("", s.authorizeTenantAction(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetDashboardSummary)
	dash.GET("/stats", s.authorizeTenantAction(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetDashboardStats)
	dash.GET("/activity", s.authorizeTenantAction(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetDashboardActivity)
	dash.GET("/projects", s.authorizeTenantAction(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetDashboardProjects)
	dash.GET("/system-health", s.RequireRoles(userdomain.RoleSuperAdmin, userdomain.RolePlatformAdmin), s.GetSystemHealth)
	dash.GET("/navigation", s.authorizeTenantAction(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetNavigation)
	dash.GET("/features", s.authorizeTenantAction(authorization.ObjectEntitlement, authorization.ActionEntitlementAsk), s.EntitlementRateLimit(), s.ListEntitlements)
	dash.GET("/features/:key/access", s.authorizeTenantAction(authorization.ObjectEntitlement, authorization.ActionEntitlementAsk), s.EntitlementRateLimit(), s.CheckEntitlement)
	dash.GET("/tenant-features", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantFeatures), s.ListCallerTenantFeatures)

	// -------- Entitlements --------
	api.GET("/entitlements", s.authorizeTenantAction(authorization.ObjectEntitlement, authorization.ActionEntitlementAsk), s.EntitlementRateLimit(), s.ListEntitlements)
	api.GET("/entitlements/:key", s.authorizeTenantAction(authorization.ObjectEntitlement, authorization.ActionEntitlementAsk), s.EntitlementRateLimit(), s.CheckEntitlement)

	// -------- Tenants --------
	api.GET("/tenants", s.RequireRoles(userdomain.RoleSuperAdmin, userdomain.RolePlatformAdmin), s.ListTenants)
	api.POST("/tenants", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantCreate), s.CreateTenant)
	api.GET("/tenants/:id", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantView), s.GetTenantByID)
	api.PATCH("/tenants/:id", s.RequireRoles(userdomain.RoleSuperAdmin, userdomain.RolePlatformAdmin), s.UpdateTenant)
	api.POST("/tenants/:id/suspend", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantSuspend), s.SuspendTenant)
	api.POST("/tenants/:id/activate", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantActivate), s.ActivateTenant)
	api.GET("/tenants/:id/settings", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantSettings), s.GetTenantSettings)
	api.PATCH("/tenants/:id/settings", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantSettings), s.UpdateTenantSettings)
	api.GET("/tenants/:id/features", s.authorizeTenantAction(authorization.ObjectTenant, authorization.ActionTenantFeatures), s.ListTenantFeatures)
	api.PATCH("/tenants/:id/features", s.RequireRoles(userdomain.RoleSuperAdmin, userdomain.RolePlatformAdmin), s.PatchTenantFeatures)

	// -------- Plans --------
	api.GET("/plans", s.authorizeTenantAction(authorization.ObjectPlan, authorization.ActionPlanView), s.ListPlans)
	api.POST("/plans", s.authorizeTenantAction(authorization.ObjectPlan, authorization.ActionPlanCreate), s.CreatePlan)
	api.GET("/plans/:id", s.authorizeTenantAction(authorization.ObjectPlan, authorization.ActionPlanView), s.GetPlanByID)
	api.GET("/plans/:id/features", s.authorizeTenantAction(authorization.ObjectPlan, authorization.ActionPlanView), s.ListPlanFeatures)
	api.PUT("/plans/:id/features", s.authorizeTenantAction(authorization.ObjectPlan, authorization.ActionPlanGrant), s.ReplacePlanFeatures)
	api.PATCH("/plans/:id/features/:key", s.authorizeTenantAction(authorization.ObjectPlan, authorization.ActionPlanGrant), s.SetPlanFeatureEnabled)

	// -------- Feature catalog --------
	api.GET("/features", s.authorizeTenantAction(authorization.ObjectFeature, authorization.ActionFeatureView), s.ListFeatures)
	api.POST("/features", s.authorizeTenantAction(authorization.ObjectFeature, authorization.ActionFeatureCreate), s.CreateFeature)
	api.GET("/features/:key", s.authorizeTenantAction(authorization.ObjectFeature, authorization.ActionFeatureView), s.GetFeatureByKey)
	api.PATCH("/features/:key", s.authorizeTenantAction(authorization.ObjectFeature, authorization.ActionFeatureUpdate), s.UpdateFeature)
	api.POST("/features/:key/archive", s.RequireRoles(userdomain.RoleSuperAdmin), s.ArchiveFeature)

	// -------- Users --------
	api.GET("/users", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserView), s.ListUsers)
	api.POST("/users", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserInvite), s.InviteUser)
	api.GET("/users/:id", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserView), s.GetUserByID)
	api.PATCH("/users/:id", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserUpdate), s.UpdateUser)
	api.POST("/users/:id/disable", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserDisable), s.DisableUser)
	api.POST("/users/:id/activate", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserDisable), s.ActivateUser)
	api.GET("/users/:id/features", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserView), s.ListUserFeatureAccess)
	api.PUT("/users/:id/features", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserAccess), s.SetUserFeatureAccess)
	api.PUT("/users/:id/features/:key", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserAccess), s.SetUserFeatureOverride)
	api.DELETE("/users/:id/features/:key", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserAccess), s.RemoveUserFeatureOverride)
	api.GET("/users/:id/permissions", s.authorizeTenantAction(authorization.ObjectUser, authorization.ActionUserView), s.GetUserPermissions)

	// -------- Projects --------
	api.GET("/projects", s.authorizeTenantAction(authorization.ObjectProject, authorization.ActionProjectView), s.ListProjects)
	api.POST("/projects", s.authorizeTenantAction(authorization.ObjectProject, authorization.ActionProjectCreate), s.CreateProject)
	api.GET("/projects/:id", s.authorizeTenantAction(authorization.ObjectProject, authorization.ActionProjectView), s.GetProjectByID)
	api.PATCH("/projects/:id", s.authorizeTenantAction(authorization.ObjectProject, authorization.ActionProjectUpdate), s.UpdateProject)
	api.POST("/projects/:id/archive", s.authorizeTenantAction(authorization.ObjectProject, authorization.ActionProjectArchive), s.ArchiveProject)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorizeTenantAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
