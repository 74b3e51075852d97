package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectTenant      = "tenant"
	ObjectPlan        = "plan"
	ObjectFeature     = "feature"
	ObjectUser        = "user"
	ObjectProject     = "project"
	ObjectDashboard   = "dashboard"
	ObjectAuditLog    = "audit_log"
	ObjectEntitlement = "entitlement"
)

const (
	ActionTenantView     = "tenant.view"
	ActionTenantCreate   = "tenant.create"
	ActionTenantUpdate   = "tenant.update"
	ActionTenantSuspend  = "tenant.suspend"
	ActionTenantActivate = "tenant.activate"
	ActionTenantSettings = "tenant.settings"
	ActionTenantFeatures = "tenant.features"

	ActionPlanView   = "plan.view"
	ActionPlanCreate = "plan.create"
	ActionPlanUpdate = "plan.update"
	ActionPlanGrant  = "plan.grant"

	ActionFeatureView    = "feature.view"
	ActionFeatureCreate  = "feature.create"
	ActionFeatureUpdate  = "feature.update"
	ActionFeatureArchive = "feature.archive"

	ActionUserView    = "user.view"
	ActionUserInvite  = "user.invite"
	ActionUserUpdate  = "user.update"
	ActionUserDisable = "user.disable"
	ActionUserAccess  = "user.access"

	ActionProjectView    = "project.view"
	ActionProjectCreate  = "project.create"
	ActionProjectUpdate  = "project.update"
	ActionProjectArchive = "project.archive"

	ActionDashboardView  = "dashboard.view"
	ActionAuditLogView   = "audit_log.view"
	ActionEntitlementAsk = "entitlement.check"
)

const platformDomain = "platform"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

// Authorize checks actor ("user:<id>:<role>" or "system") against the
// policy for the tenant domain. Platform roles enforce against the
// shared platform domain instead of a per-tenant one.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := resolveActor(actor)
	if err != nil {
		return err
	}

	enforceDomain := platformDomain
	if !isPlatformRole(roleName) {
		tenantID = strings.TrimSpace(tenantID)
		if tenantID == "" {
			return ErrInvalidTenant
		}
		enforceDomain = fmt.Sprintf("tenant:%s", tenantID)
	}

	if err := s.ensureGrouping(subject, roleName, enforceDomain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, enforceDomain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, subject, tenantID, object, action)
		return ErrForbidden
	}
	return nil
}

func resolveActor(actor string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		parts := strings.SplitN(actor, ":", 3)
		if len(parts) != 3 || strings.TrimSpace(parts[1]) == "" {
			return "", "", ErrInvalidActor
		}
		role := userdomain.NormalizeRole(parts[2])
		if !role.Valid() {
			return "", "", ErrInvalidActor
		}
		subject := fmt.Sprintf("user:%s", strings.TrimSpace(parts[1]))
		return subject, fmt.Sprintf("role:%s", strings.ToLower(string(role))), nil
	}
	return "", "", ErrInvalidActor
}

func isPlatformRole(roleName string) bool {
	switch roleName {
	case "role:super_admin", "role:platform_admin", "role:system":
		return true
	default:
		return false
	}
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, subject string, tenantID string, object string, action string) {
	if s.auditSvc == nil || strings.TrimSpace(tenantID) == "" {
		return
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		TenantID:     tenantID,
		Action:       "authorization.denied",
		ResourceType: "authorization",
		ResourceID:   object,
		Metadata: map[string]any{
			"subject": subject,
			"object":  object,
			"action":  action,
		},
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Super admin: everything, including destructive tenant ops.
		{"role:super_admin", ObjectTenant, ActionTenantView},
		{"role:super_admin", ObjectTenant, ActionTenantCreate},
		{"role:super_admin", ObjectTenant, ActionTenantUpdate},
		{"role:super_admin", ObjectTenant, ActionTenantSuspend},
		{"role:super_admin", ObjectTenant, ActionTenantActivate},
		{"role:super_admin", ObjectTenant, ActionTenantSettings},
		{"role:super_admin", ObjectTenant, ActionTenantFeatures},
		{"role:super_admin", ObjectPlan, ActionPlanView},
		{"role:super_admin", ObjectPlan, ActionPlanCreate},
		{"role:super_admin", ObjectPlan, ActionPlanUpdate},
		{"role:super_admin", ObjectPlan, ActionPlanGrant},
		{"role:super_admin", ObjectFeature, ActionFeatureView},
		{"role:super_admin", ObjectFeature, ActionFeatureCreate},
		{"role:super_admin", ObjectFeature, ActionFeatureUpdate},
		{"role:super_admin", ObjectFeature, ActionFeatureArchive},
		{"role:super_admin", ObjectUser, ActionUserView},
		{"role:super_admin", ObjectUser, ActionUserInvite},
		{"role:super_admin", ObjectUser, ActionUserUpdate},
		{"role:super_admin", ObjectUser, ActionUserDisable},
		{"role:super_admin", ObjectUser, ActionUserAccess},
		{"role:super_admin", ObjectProject, ActionProjectView},
		{"role:super_admin", ObjectDashboard, ActionDashboardView},
		{"role:super_admin", ObjectAuditLog, ActionAuditLogView},
		{"role:super_admin", ObjectEntitlement, ActionEntitlementAsk},

		// Platform admin: full read plus non-destructive writes.
		{"role:platform_admin", ObjectTenant, ActionTenantView},
		{"role:platform_admin", ObjectTenant, ActionTenantCreate},
		{"role:platform_admin", ObjectTenant, ActionTenantUpdate},
		{"role:platform_admin", ObjectTenant, ActionTenantSettings},
		{"role:platform_admin", ObjectTenant, ActionTenantFeatures},
		{"role:platform_admin", ObjectPlan, ActionPlanView},
		{"role:platform_admin", ObjectPlan, ActionPlanCreate},
		{"role:platform_admin", ObjectPlan, ActionPlanUpdate},
		{"role:platform_admin", ObjectPlan, ActionPlanGrant},
		{"role:platform_admin", ObjectFeature, ActionFeatureView},
		{"role:platform_admin", ObjectFeature, ActionFeatureCreate},
		{"role:platform_admin", ObjectFeature, ActionFeatureUpdate},
		{"role:platform_admin", ObjectUser, ActionUserView},
		{"role:platform_admin", ObjectUser, ActionUserInvite},
		{"role:platform_admin", ObjectUser, ActionUserUpdate},
		{"role:platform_admin", ObjectProject, ActionProjectView},
		{"role:platform_admin", ObjectDashboard, ActionDashboardView},
		{"role:platform_admin", ObjectAuditLog, ActionAuditLogView},
		{"role:platform_admin", ObjectEntitlement, ActionEntitlementAsk},

		// Tenant admin: manage their own tenant.
		{"role:tenant_admin", ObjectTenant, ActionTenantView},
		{"role:tenant_admin", ObjectTenant, ActionTenantSettings},
		{"role:tenant_admin", ObjectTenant, ActionTenantFeatures},
		{"role:tenant_admin", ObjectFeature, ActionFeatureView},
		{"role:tenant_admin", ObjectUser, ActionUserView},
		{"role:tenant_admin", ObjectUser, ActionUserInvite},
		{"role:tenant_admin", ObjectUser, ActionUserUpdate},
		{"role:tenant_admin", ObjectUser, ActionUserDisable},
		{"role:tenant_admin", ObjectUser, ActionUserAccess},
		{"role:tenant_admin", ObjectProject, ActionProjectView},
		{"role:tenant_admin", ObjectProject, ActionProjectCreate},
		{"role:tenant_admin", ObjectProject, ActionProjectUpdate},
		{"role:tenant_admin", ObjectProject, ActionProjectArchive},
		{"role:tenant_admin", ObjectDashboard, ActionDashboardView},
		{"role:tenant_admin", ObjectAuditLog, ActionAuditLogView},
		{"role:tenant_admin", ObjectEntitlement, ActionEntitlementAsk},

		// End user: their own dashboard, projects and entitlements.
		{"role:end_user", ObjectProject, ActionProjectView},
		{"role:end_user", ObjectProject, ActionProjectCreate},
		{"role:end_user", ObjectProject, ActionProjectUpdate},
		{"role:end_user", ObjectDashboard, ActionDashboardView},
		{"role:end_user", ObjectEntitlement, ActionEntitlementAsk},

		// System: provisioning hooks.
		{"role:system", ObjectTenant, ActionTenantCreate},
		{"role:system", ObjectTenant, ActionTenantSuspend},
		{"role:system", ObjectUser, ActionUserInvite},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
