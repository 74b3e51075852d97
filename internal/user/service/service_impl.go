package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	"github.com/blicktrack/platform/internal/user/domain"
	"github.com/blicktrack/platform/pkg/db"
	"github.com/blicktrack/platform/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	TenantRepo  tenantdomain.Repository
	PlanRepo    plandomain.Repository
	FeatureRepo featuredomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	tenantRepo  tenantdomain.Repository
	planRepo    plandomain.Repository
	featureRepo featuredomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("user.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		tenantRepo:  p.TenantRepo,
		planRepo:    p.PlanRepo,
		featureRepo: p.FeatureRepo,
	}
}

func (s *Service) Invite(ctx context.Context, req domain.InviteRequest) (*domain.Response, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = email
	}

	role := domain.NormalizeRole(req.Role)
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID.Int64())
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrInvalidTenant
	}

	if tenant.PlanID != nil {
		plan, err := s.planRepo.FindByID(ctx, s.db, tenant.PlanID.Int64())
		if err != nil {
			return nil, err
		}
		if plan != nil && plan.MaxUsers > 0 {
			count, err := s.repo.CountByTenant(ctx, s.db, tenant.ID)
			if err != nil {
				return nil, err
			}
			if count >= int64(plan.MaxUsers) {
				return nil, domain.ErrQuotaExceeded
			}
		}
	}

	userType := domain.UserTypeRegular
	if strings.EqualFold(strings.TrimSpace(req.UserType), string(domain.UserTypeExternal)) {
		userType = domain.UserTypeExternal
	}

	now := time.Now().UTC()
	record := &domain.User{
		ID:          s.genID.Generate(),
		TenantID:    tenant.ID,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		Status:      domain.UserStatusInvited,
		UserType:    userType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, record); err != nil {
			return err
		}
		return s.tenantRepo.AdjustUserCount(ctx, tx, tenant.ID, 1)
	}); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}

	s.log.Info("user invited",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("user_id", record.ID.String()),
		zap.String("role", string(role)),
	)

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	filter := domain.ListFilter{TenantID: tenantID, PageSize: req.PageSize}
	if role := strings.TrimSpace(req.Role); role != "" {
		normalized := domain.NormalizeRole(role)
		if !normalized.Valid() {
			return nil, domain.ErrInvalidRole
		}
		filter.Role = normalized
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		filter.Status = domain.UserStatus(status)
	}

	cursor := pagination.Decode(req.PageToken)
	if cursor.ID != "" {
		if afterID, err := snowflake.ParseString(cursor.ID); err == nil {
			filter.AfterID = afterID
		}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := &domain.ListResponse{Users: make([]domain.Response, 0, len(items))}
	for _, item := range items {
		resp.Users = append(resp.Users, toResponse(&item))
	}
	if limit := filter.PageSize; limit > 0 && len(items) == limit {
		resp.NextPageToken = pagination.Encode(pagination.Cursor{ID: items[len(items)-1].ID.String()})
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (*domain.Response, error) {
	user, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	user, err := s.find(ctx, req.TenantID, req.ID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		user.DisplayName = name
	}
	if req.Role != nil {
		role := domain.NormalizeRole(*req.Role)
		if !role.Valid() {
			return nil, domain.ErrInvalidRole
		}
		user.Role = role
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, user); err != nil {
		return nil, err
	}

	resp := toResponse(user)
	return &resp, nil
}

func (s *Service) Disable(ctx context.Context, tenantID, id string) (*domain.Response, error) {
	return s.setStatus(ctx, tenantID, id, domain.UserStatusDisabled)
}

func (s *Service) Activate(ctx context.Context, tenantID, id string) (*domain.Response, error) {
	return s.setStatus(ctx, tenantID, id, domain.UserStatusActive)
}

func (s *Service) SetFeatureAccess(ctx context.Context, req domain.SetFeatureAccessRequest) error {
	user, err := s.find(ctx, req.TenantID, req.UserID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, active := range req.Features {
			feature, err := s.featureRepo.FindByKey(ctx, tx, strings.TrimSpace(key))
			if err != nil {
				return err
			}
			if feature == nil {
				return domain.ErrUnknownFeature
			}
			row := &domain.UserFeatureAccess{
				UserID:    user.ID,
				FeatureID: feature.ID,
				IsActive:  active,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.UpsertFeatureAccess(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) ListFeatureAccess(ctx context.Context, tenantID, id string) ([]domain.FeatureAccessView, error) {
	user, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListFeatureAccess(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []domain.FeatureAccessView{}, nil
	}

	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.FeatureID)
	}
	features, err := s.featureRepo.ListByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]featuredomain.Feature, len(features))
	for _, feature := range features {
		byID[feature.ID] = feature
	}

	views := make([]domain.FeatureAccessView, 0, len(rows))
	for _, row := range rows {
		feature, ok := byID[row.FeatureID]
		if !ok {
			// Feature was hard-deleted; the orphan row says nothing useful.
			continue
		}
		views = append(views, domain.FeatureAccessView{
			FeatureID: row.FeatureID.String(),
			Key:       feature.Key,
			Name:      feature.Name,
			Active:    row.IsActive,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return views, nil
}

// RemoveFeatureAccess drops the override row, returning the user to the
// role's default (deny for END_USER). Removing an absent row is a no-op.
func (s *Service) RemoveFeatureAccess(ctx context.Context, tenantID, id, featureKey string) error {
	user, err := s.find(ctx, tenantID, id)
	if err != nil {
		return err
	}

	feature, err := s.featureRepo.FindByKey(ctx, s.db, strings.TrimSpace(featureKey))
	if err != nil {
		return err
	}
	if feature == nil {
		return domain.ErrUnknownFeature
	}

	return s.repo.DeleteFeatureAccess(ctx, s.db, user.ID, feature.ID)
}

// PermissionMap projects the user's effective feature switches keyed by
// feature key. For END_USER the map reflects the override rows; other
// roles are not narrowed, so every granted feature reads true.
func (s *Service) PermissionMap(ctx context.Context, tenantID, id string) (map[string]bool, error) {
	user, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, user.TenantID.Int64())
	if err != nil {
		return nil, err
	}
	if tenant == nil || tenant.PlanID == nil {
		return map[string]bool{}, nil
	}

	grants, err := s.planRepo.ListGrants(ctx, s.db, *tenant.PlanID)
	if err != nil {
		return nil, err
	}

	overrides := map[snowflake.ID]bool{}
	if user.Role == domain.RoleEndUser {
		rows, err := s.repo.ListFeatureAccess(ctx, s.db, user.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			overrides[row.FeatureID] = row.IsActive
		}
	}

	perms := make(map[string]bool, len(grants))
	for _, grant := range grants {
		if !grant.Enabled || !grant.Active {
			perms[grant.Key] = false
			continue
		}
		if user.Role == domain.RoleEndUser {
			perms[grant.Key] = overrides[grant.FeatureID]
			continue
		}
		perms[grant.Key] = true
	}
	return perms, nil
}

func (s *Service) setStatus(ctx context.Context, tenantID, id string, status domain.UserStatus) (*domain.Response, error) {
	user, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	user.Status = status
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, user); err != nil {
		return nil, err
	}

	s.log.Info("user status changed",
		zap.String("user_id", user.ID.String()),
		zap.String("status", string(status)),
	)

	resp := toResponse(user)
	return &resp, nil
}

// find loads the user and enforces the tenant predicate. A user that
// exists under another tenant reads as not found.
func (s *Service) find(ctx context.Context, tenantID, id string) (*domain.User, error) {
	scopeID, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	user, err := s.repo.FindByID(ctx, s.db, userID.Int64())
	if err != nil {
		return nil, err
	}
	if user == nil || user.TenantID != scopeID {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func toResponse(u *domain.User) domain.Response {
	return domain.Response{
		ID:          u.ID.String(),
		TenantID:    u.TenantID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		UserType:    string(u.UserType),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
