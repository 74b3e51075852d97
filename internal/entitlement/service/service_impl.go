package service

import (
	"context"
	"strings"

	"github.com/blicktrack/platform/internal/entitlement/domain"
	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	"github.com/blicktrack/platform/internal/observability/metrics"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Metrics     *metrics.Metrics `optional:"true"`
	FeatureRepo featuredomain.Repository
	PlanRepo    plandomain.Repository
	TenantRepo  tenantdomain.Repository
	UserRepo    userdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	metrics     *metrics.Metrics
	featureRepo featuredomain.Repository
	planRepo    plandomain.Repository
	tenantRepo  tenantdomain.Repository
	userRepo    userdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("entitlement.service"),
		metrics:     p.Metrics,
		featureRepo: p.FeatureRepo,
		planRepo:    p.PlanRepo,
		tenantRepo:  p.TenantRepo,
		userRepo:    p.UserRepo,
	}
}

// scope is everything a resolver needs to decide, loaded once per call.
type scope struct {
	grants    map[string]plandomain.FeatureGrant
	overrides map[snowflake.ID]bool
	hasPlan   bool
}

// resolver encodes the per-role decision rule. One implementation per
// role keeps the rules in one place instead of switch blocks scattered
// through the callers.
type resolver interface {
	decide(feature *featuredomain.Feature, sc *scope) (bool, string)
	needsScope() bool
}

func resolverFor(role userdomain.Role) (resolver, error) {
	switch role {
	case userdomain.RoleSuperAdmin, userdomain.RolePlatformAdmin:
		return platformResolver{}, nil
	case userdomain.RoleTenantAdmin:
		return tenantAdminResolver{}, nil
	case userdomain.RoleEndUser:
		return endUserResolver{}, nil
	default:
		return nil, domain.ErrUnknownRole
	}
}

// platformResolver bypasses plan and override checks entirely. The
// feature still has to exist and be live in the catalog.
type platformResolver struct{}

func (platformResolver) needsScope() bool { return false }

func (platformResolver) decide(feature *featuredomain.Feature, _ *scope) (bool, string) {
	if feature == nil {
		return false, domain.ReasonFeatureNotFound
	}
	if !feature.Active {
		return false, domain.ReasonFeatureInactive
	}
	return true, domain.ReasonRoleBypass
}

// tenantAdminResolver grants whatever the tenant's plan grants.
type tenantAdminResolver struct{}

func (tenantAdminResolver) needsScope() bool { return true }

func (tenantAdminResolver) decide(feature *featuredomain.Feature, sc *scope) (bool, string) {
	if feature == nil {
		return false, domain.ReasonFeatureNotFound
	}
	if !feature.Active {
		return false, domain.ReasonFeatureInactive
	}
	if !sc.hasPlan {
		return false, domain.ReasonNoPlan
	}
	grant, ok := sc.grants[feature.Key]
	if !ok {
		return false, domain.ReasonNotGranted
	}
	if !grant.Enabled {
		return false, domain.ReasonGrantDisabled
	}
	return true, domain.ReasonPlanGranted
}

// endUserResolver narrows the plan grant by the per-user override row.
// No row, or an inactive row, reads as denied.
type endUserResolver struct{}

func (endUserResolver) needsScope() bool { return true }

func (endUserResolver) decide(feature *featuredomain.Feature, sc *scope) (bool, string) {
	allowed, reason := tenantAdminResolver{}.decide(feature, sc)
	if !allowed {
		return false, reason
	}
	if !sc.overrides[sc.grants[feature.Key].FeatureID] {
		return false, domain.ReasonOverrideInactive
	}
	return true, domain.ReasonOverrideActive
}

func (s *Service) CanAccessFeature(ctx context.Context, subject domain.Subject, featureKey string) (*domain.Decision, error) {
	role := userdomain.NormalizeRole(subject.Role)
	res, err := resolverFor(role)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(featureKey)
	feature, err := s.featureRepo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}

	var sc *scope
	if res.needsScope() {
		sc, err = s.loadScope(ctx, subject, role)
		if err != nil {
			return nil, err
		}
	}

	allowed, reason := res.decide(feature, sc)
	s.metrics.RecordEntitlementCheck(ctx, string(role), key, allowed)

	return &domain.Decision{FeatureKey: key, Allowed: allowed, Reason: reason}, nil
}

func (s *Service) AvailableFeatures(ctx context.Context, subject domain.Subject) ([]domain.FeatureView, error) {
	role := userdomain.NormalizeRole(subject.Role)
	res, err := resolverFor(role)
	if err != nil {
		return nil, err
	}

	// Platform roles are not bound to a plan; their set is the catalog's
	// default-enabled features.
	if !res.needsScope() {
		features, err := s.featureRepo.ListDefaultEnabled(ctx, s.db)
		if err != nil {
			return nil, err
		}
		views := make([]domain.FeatureView, 0, len(features))
		for _, feature := range features {
			views = append(views, toView(&feature))
		}
		return views, nil
	}

	sc, err := s.loadScope(ctx, subject, role)
	if err != nil {
		return nil, err
	}

	views := make([]domain.FeatureView, 0, len(sc.grants))
	for key, grant := range sc.grants {
		if !grant.Enabled || !grant.Active {
			continue
		}
		if role == userdomain.RoleEndUser && !sc.overrides[grant.FeatureID] {
			continue
		}
		feature, err := s.featureRepo.FindByKey(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		if feature == nil || !feature.Active {
			continue
		}
		views = append(views, toView(feature))
	}
	return views, nil
}

func (s *Service) loadScope(ctx context.Context, subject domain.Subject, role userdomain.Role) (*scope, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(subject.TenantID))
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID.Int64())
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrInvalidTenant
	}

	sc := &scope{
		grants:    map[string]plandomain.FeatureGrant{},
		overrides: map[snowflake.ID]bool{},
	}
	if tenant.PlanID == nil {
		return sc, nil
	}
	sc.hasPlan = true

	grants, err := s.planRepo.ListGrants(ctx, s.db, *tenant.PlanID)
	if err != nil {
		return nil, err
	}
	for _, grant := range grants {
		sc.grants[grant.Key] = grant
	}

	if role == userdomain.RoleEndUser {
		userID, err := snowflake.ParseString(strings.TrimSpace(subject.UserID))
		if err != nil {
			return nil, domain.ErrInvalidUser
		}
		rows, err := s.userRepo.ListFeatureAccess(ctx, s.db, userID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			sc.overrides[row.FeatureID] = row.IsActive
		}
	}

	return sc, nil
}

func toView(f *featuredomain.Feature) domain.FeatureView {
	view := domain.FeatureView{
		Key:      f.Key,
		Name:     f.Name,
		Category: f.Category,
	}
	if len(f.DefaultConfig) > 0 {
		view.Config = map[string]any(f.DefaultConfig)
	}
	return view
}
