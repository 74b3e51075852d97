package service

import (
	"context"
	"strings"
	"sync"
	"time"

	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
	"github.com/blicktrack/platform/internal/config"
	"github.com/blicktrack/platform/internal/dashboard/domain"
	entitlementdomain "github.com/blicktrack/platform/internal/entitlement/domain"
	"github.com/blicktrack/platform/internal/observability/metrics"
	projectdomain "github.com/blicktrack/platform/internal/project/domain"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Metrics     *metrics.Metrics `optional:"true"`
	Redis       *redis.Client    `optional:"true"`
	Platform    *config.PlatformConfigHolder
	Repo        domain.Repository
	TenantRepo  tenantdomain.Repository
	ProjectRepo projectdomain.Repository
	Audit       auditdomain.Service
	Entitlement entitlementdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	metrics     *metrics.Metrics
	redis       *redis.Client
	platform    *config.PlatformConfigHolder
	repo        domain.Repository
	tenantRepo  tenantdomain.Repository
	projectRepo projectdomain.Repository
	audit       auditdomain.Service
	entitlement entitlementdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("dashboard.service"),
		metrics:     p.Metrics,
		redis:       p.Redis,
		platform:    p.Platform,
		repo:        p.Repo,
		tenantRepo:  p.TenantRepo,
		projectRepo: p.ProjectRepo,
		audit:       p.Audit,
		entitlement: p.Entitlement,
	}
}

// viewScope is the per-role shape of the dashboard. Each role maps to
// exactly one scope; adding a role means adding a scope, not touching
// every section handler.
type viewScope interface {
	stats(ctx context.Context, s *Service, sub resolvedSubject) (*domain.Stats, error)
	activity(sub resolvedSubject, policy config.PlatformConfig) auditdomain.ListRequest
	projects(sub resolvedSubject) projectdomain.ListFilter
	navItems() []domain.NavItem
	seesHealth() bool
}

type resolvedSubject struct {
	subject  domain.Subject
	role     userdomain.Role
	tenantID snowflake.ID
	userID   snowflake.ID
}

func scopeFor(role userdomain.Role) (viewScope, error) {
	switch role {
	case userdomain.RoleSuperAdmin, userdomain.RolePlatformAdmin:
		return platformScope{}, nil
	case userdomain.RoleTenantAdmin:
		return tenantScope{}, nil
	case userdomain.RoleEndUser:
		return selfScope{}, nil
	default:
		return nil, domain.ErrUnknownRole
	}
}

// platformScope aggregates across every tenant.
type platformScope struct{}

func (platformScope) stats(ctx context.Context, s *Service, _ resolvedSubject) (*domain.Stats, error) {
	tenants, err := s.repo.CountTenants(ctx, s.db)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.CountUsers(ctx, s.db, 0)
	if err != nil {
		return nil, err
	}
	projects, err := s.repo.CountProjects(ctx, s.db, 0, 0)
	if err != nil {
		return nil, err
	}
	features, err := s.repo.CountFeatures(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return &domain.Stats{
		Tenants:  &tenants,
		Users:    &users,
		Projects: &projects,
		Features: &features,
	}, nil
}

func (platformScope) activity(sub resolvedSubject, policy config.PlatformConfig) auditdomain.ListRequest {
	req := auditdomain.ListRequest{
		Since: time.Now().UTC().Add(-policy.ActivityWindow),
		Limit: policy.ActivityLimit,
	}
	if sub.tenantID != 0 {
		req.TenantID = sub.tenantID.String()
	}
	return req
}

func (platformScope) projects(sub resolvedSubject) projectdomain.ListFilter {
	return projectdomain.ListFilter{TenantID: sub.tenantID, PageSize: recentProjectLimit}
}

func (platformScope) navItems() []domain.NavItem {
	return []domain.NavItem{
		{Key: "overview", Label: "Overview", Path: "/dashboard"},
		{Key: "tenants", Label: "Tenants", Path: "/tenants"},
		{Key: "plans", Label: "Plans", Path: "/plans"},
		{Key: "features", Label: "Feature Catalog", Path: "/features"},
		{Key: "system-health", Label: "System Health", Path: "/dashboard/system-health"},
	}
}

func (platformScope) seesHealth() bool { return true }

// tenantScope aggregates one tenant.
type tenantScope struct{}

func (tenantScope) stats(ctx context.Context, s *Service, sub resolvedSubject) (*domain.Stats, error) {
	users, err := s.repo.CountUsers(ctx, s.db, sub.tenantID)
	if err != nil {
		return nil, err
	}
	projects, err := s.repo.CountProjects(ctx, s.db, sub.tenantID, 0)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{Users: &users, Projects: &projects}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, sub.tenantID.Int64())
	if err != nil {
		return nil, err
	}
	if tenant != nil && tenant.PlanID != nil {
		features, err := s.repo.CountEnabledGrants(ctx, s.db, *tenant.PlanID)
		if err != nil {
			return nil, err
		}
		stats.Features = &features
	}
	return stats, nil
}

func (tenantScope) activity(sub resolvedSubject, policy config.PlatformConfig) auditdomain.ListRequest {
	return auditdomain.ListRequest{
		TenantID: sub.tenantID.String(),
		Since:    time.Now().UTC().Add(-policy.ActivityWindow),
		Limit:    policy.ActivityLimit,
	}
}

func (tenantScope) projects(sub resolvedSubject) projectdomain.ListFilter {
	return projectdomain.ListFilter{TenantID: sub.tenantID, PageSize: recentProjectLimit}
}

func (tenantScope) navItems() []domain.NavItem {
	return []domain.NavItem{
		{Key: "overview", Label: "Overview", Path: "/dashboard"},
		{Key: "users", Label: "Users", Path: "/users"},
		{Key: "projects", Label: "Projects", Path: "/projects"},
		{Key: "settings", Label: "Settings", Path: "/settings"},
	}
}

func (tenantScope) seesHealth() bool { return false }

// selfScope aggregates the caller's own rows only.
type selfScope struct{}

func (selfScope) stats(ctx context.Context, s *Service, sub resolvedSubject) (*domain.Stats, error) {
	projects, err := s.repo.CountProjects(ctx, s.db, sub.tenantID, sub.userID)
	if err != nil {
		return nil, err
	}
	views, err := s.entitlement.AvailableFeatures(ctx, entitlementdomain.Subject{
		UserID:   sub.subject.UserID,
		TenantID: sub.subject.TenantID,
		Role:     sub.subject.Role,
	})
	if err != nil {
		return nil, err
	}
	features := int64(len(views))
	return &domain.Stats{Projects: &projects, Features: &features}, nil
}

func (selfScope) activity(sub resolvedSubject, policy config.PlatformConfig) auditdomain.ListRequest {
	return auditdomain.ListRequest{
		TenantID: sub.tenantID.String(),
		ActorID:  sub.userID.String(),
		Since:    time.Now().UTC().Add(-policy.ActivityWindow),
		Limit:    policy.ActivityLimit,
	}
}

func (selfScope) projects(sub resolvedSubject) projectdomain.ListFilter {
	return projectdomain.ListFilter{TenantID: sub.tenantID, OwnerID: sub.userID, PageSize: recentProjectLimit}
}

func (selfScope) navItems() []domain.NavItem {
	return []domain.NavItem{
		{Key: "overview", Label: "Overview", Path: "/dashboard"},
		{Key: "projects", Label: "My Projects", Path: "/projects"},
	}
}

func (selfScope) seesHealth() bool { return false }

const recentProjectLimit = 10

// Summary fans the sections out concurrently and assembles the full
// dashboard payload. The first section error wins.
func (s *Service) Summary(ctx context.Context, subject domain.Subject) (*domain.Summary, error) {
	sub, scope, err := s.resolve(subject)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDashboardRequest(ctx, string(sub.role), "summary")

	summary := &domain.Summary{GeneratedAt: time.Now().UTC()}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		stats, err := scope.stats(ctx, s, sub)
		if err != nil {
			fail(err)
			return
		}
		summary.Stats = stats
	}()
	go func() {
		defer wg.Done()
		events, err := s.audit.List(ctx, scope.activity(sub, s.platform.Current()))
		if err != nil {
			fail(err)
			return
		}
		summary.Activity = events
	}()
	go func() {
		defer wg.Done()
		projects, err := s.recentProjects(ctx, scope.projects(sub))
		if err != nil {
			fail(err)
			return
		}
		summary.Projects = projects
	}()
	go func() {
		defer wg.Done()
		nav, err := s.navigation(ctx, sub, scope)
		if err != nil {
			fail(err)
			return
		}
		summary.Navigation = nav
	}()

	if scope.seesHealth() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			health := s.health(ctx)
			summary.Health = health
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return summary, nil
}

func (s *Service) Stats(ctx context.Context, subject domain.Subject) (*domain.Stats, error) {
	sub, scope, err := s.resolve(subject)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDashboardRequest(ctx, string(sub.role), "stats")
	return scope.stats(ctx, s, sub)
}

func (s *Service) Activity(ctx context.Context, subject domain.Subject) ([]auditdomain.Event, error) {
	sub, scope, err := s.resolve(subject)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDashboardRequest(ctx, string(sub.role), "activity")
	return s.audit.List(ctx, scope.activity(sub, s.platform.Current()))
}

func (s *Service) Projects(ctx context.Context, subject domain.Subject) ([]domain.ProjectSummary, error) {
	sub, scope, err := s.resolve(subject)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDashboardRequest(ctx, string(sub.role), "projects")
	return s.recentProjects(ctx, scope.projects(sub))
}

func (s *Service) SystemHealth(ctx context.Context, subject domain.Subject) (*domain.SystemHealth, error) {
	sub, scope, err := s.resolve(subject)
	if err != nil {
		return nil, err
	}
	if !scope.seesHealth() {
		return nil, domain.ErrForbidden
	}
	s.metrics.RecordDashboardRequest(ctx, string(sub.role), "system_health")
	return s.health(ctx), nil
}

func (s *Service) Navigation(ctx context.Context, subject domain.Subject) ([]domain.NavItem, error) {
	sub, scope, err := s.resolve(subject)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDashboardRequest(ctx, string(sub.role), "navigation")
	return s.navigation(ctx, sub, scope)
}

func (s *Service) resolve(subject domain.Subject) (resolvedSubject, viewScope, error) {
	role := userdomain.NormalizeRole(subject.Role)
	scope, err := scopeFor(role)
	if err != nil {
		return resolvedSubject{}, nil, err
	}

	sub := resolvedSubject{subject: subject, role: role}
	if tenant := strings.TrimSpace(subject.TenantID); tenant != "" {
		tenantID, err := snowflake.ParseString(tenant)
		if err != nil {
			return resolvedSubject{}, nil, domain.ErrInvalidTenant
		}
		sub.tenantID = tenantID
	} else if !role.IsPlatformRole() {
		return resolvedSubject{}, nil, domain.ErrInvalidTenant
	}

	if user := strings.TrimSpace(subject.UserID); user != "" {
		userID, err := snowflake.ParseString(user)
		if err != nil {
			return resolvedSubject{}, nil, domain.ErrInvalidUser
		}
		sub.userID = userID
	} else if role == userdomain.RoleEndUser {
		return resolvedSubject{}, nil, domain.ErrInvalidUser
	}

	return sub, scope, nil
}

func (s *Service) recentProjects(ctx context.Context, filter projectdomain.ListFilter) ([]domain.ProjectSummary, error) {
	items, err := s.projectRepo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.ProjectSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, domain.ProjectSummary{
			ID:        item.ID.String(),
			Name:      item.Name,
			OwnerID:   item.OwnerID.String(),
			Status:    string(item.Status),
			CreatedAt: item.CreatedAt,
		})
	}
	return summaries, nil
}

// navigation merges the scope's static items with one entry per
// feature the caller can actually use, grouped by catalog category.
func (s *Service) navigation(ctx context.Context, sub resolvedSubject, scope viewScope) ([]domain.NavItem, error) {
	items := scope.navItems()

	views, err := s.entitlement.AvailableFeatures(ctx, entitlementdomain.Subject{
		UserID:   sub.subject.UserID,
		TenantID: sub.subject.TenantID,
		Role:     sub.subject.Role,
	})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return items, nil
	}

	byCategory := map[string][]domain.NavItem{}
	order := []string{}
	for _, view := range views {
		if _, seen := byCategory[view.Category]; !seen {
			order = append(order, view.Category)
		}
		byCategory[view.Category] = append(byCategory[view.Category], domain.NavItem{
			Key:   view.Key,
			Label: view.Name,
			Path:  "/features/" + view.Key,
		})
	}
	for _, category := range order {
		items = append(items, domain.NavItem{
			Key:      "category:" + category,
			Label:    category,
			Path:     "/features",
			Children: byCategory[category],
		})
	}
	return items, nil
}

func (s *Service) health(ctx context.Context) *domain.SystemHealth {
	health := &domain.SystemHealth{Status: domain.HealthOK}

	sqlDB, err := s.db.DB()
	if err != nil {
		health.Status = domain.HealthDown
		return health
	}

	start := time.Now()
	if err := sqlDB.PingContext(ctx); err != nil {
		health.Status = domain.HealthDown
		return health
	}
	health.DBLatencyMs = time.Since(start).Milliseconds()
	if health.DBLatencyMs >= s.platform.Current().HealthSlowPingMs {
		health.Status = domain.HealthDegraded
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			health.Redis = domain.HealthDown
			health.Status = domain.HealthDegraded
		} else {
			health.Redis = domain.HealthOK
		}
	}
	return health
}
