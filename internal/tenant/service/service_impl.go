package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	"github.com/blicktrack/platform/internal/tenant/domain"
	"github.com/blicktrack/platform/pkg/db"
	"github.com/blicktrack/platform/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	PlanRepo plandomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	planRepo plandomain.Repository
	genID    *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tenant.service"),
		repo:     p.Repo,
		planRepo: p.PlanRepo,
		genID:    p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	slugValue := slug.Make(strings.TrimSpace(req.Slug))
	if slugValue == "" {
		slugValue = slug.Make(name)
	}
	if slugValue == "" {
		return nil, domain.ErrInvalidSlug
	}

	var planID *snowflake.ID
	if tier := strings.TrimSpace(req.PlanTier); tier != "" {
		plan, err := s.planRepo.FindByTier(ctx, s.db, tier)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, domain.ErrInvalidPlan
		}
		planID = &plan.ID
	}

	now := time.Now().UTC()
	record := &domain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slugValue,
		PlanID:    planID,
		Status:    domain.TenantStatusTrial,
		Settings:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(req.ComplianceTags) > 0 {
		raw, err := json.Marshal(req.ComplianceTags)
		if err != nil {
			return nil, err
		}
		record.ComplianceTags = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, err
	}

	s.log.Info("tenant provisioned",
		zap.String("tenant_id", record.ID.String()),
		zap.String("slug", record.Slug),
	)

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{PageSize: req.PageSize}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		switch domain.TenantStatus(status) {
		case domain.TenantStatusActive, domain.TenantStatusSuspended, domain.TenantStatusTrial:
			filter.Status = domain.TenantStatus(status)
		default:
			return nil, domain.ErrInvalidStatus
		}
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

	resp := &domain.ListResponse{Tenants: make([]domain.Response, 0, len(items))}
	for _, item := range items {
		resp.Tenants = append(resp.Tenants, toResponse(&item))
	}
	if limit := filter.PageSize; limit > 0 && len(items) == limit {
		resp.NextPageToken = pagination.Encode(pagination.Cursor{ID: items[len(items)-1].ID.String()})
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	tenant, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(tenant)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	tenant, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		tenant.Name = name
	}
	if req.PlanID != nil {
		if strings.TrimSpace(*req.PlanID) == "" {
			tenant.PlanID = nil
		} else {
			planID, err := snowflake.ParseString(strings.TrimSpace(*req.PlanID))
			if err != nil {
				return nil, domain.ErrInvalidPlan
			}
			plan, err := s.planRepo.FindByID(ctx, s.db, planID.Int64())
			if err != nil {
				return nil, err
			}
			if plan == nil {
				return nil, domain.ErrInvalidPlan
			}
			tenant.PlanID = &plan.ID
		}
	}
	if req.Status != nil {
		status := domain.TenantStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		switch status {
		case domain.TenantStatusActive, domain.TenantStatusSuspended, domain.TenantStatusTrial:
			tenant.Status = status
		default:
			return nil, domain.ErrInvalidStatus
		}
	}
	if req.ComplianceTags != nil {
		raw, err := json.Marshal(*req.ComplianceTags)
		if err != nil {
			return nil, err
		}
		tenant.ComplianceTags = datatypes.JSON(raw)
	}

	tenant.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, tenant); err != nil {
		return nil, err
	}

	resp := toResponse(tenant)
	return &resp, nil
}

func (s *Service) Suspend(ctx context.Context, id string) (*domain.Response, error) {
	return s.setStatus(ctx, id, domain.TenantStatusSuspended)
}

func (s *Service) Activate(ctx context.Context, id string) (*domain.Response, error) {
	return s.setStatus(ctx, id, domain.TenantStatusActive)
}

func (s *Service) GetSettings(ctx context.Context, id string) (map[string]any, error) {
	tenant, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Settings == nil {
		return map[string]any{}, nil
	}
	return map[string]any(tenant.Settings), nil
}

// UpdateSettings merges the patch over the stored blob and writes it
// back whole. Last writer wins; there is no version check.
func (s *Service) UpdateSettings(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	tenant, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := datatypes.JSONMap{}
	for k, v := range tenant.Settings {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	if err := s.repo.UpdateSettings(ctx, s.db, tenant.ID, merged); err != nil {
		return nil, err
	}
	return map[string]any(merged), nil
}

func (s *Service) ListFeatures(ctx context.Context, id string) ([]domain.TenantFeature, error) {
	tenant, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.PlanID == nil {
		return []domain.TenantFeature{}, nil
	}

	grants, err := s.planRepo.ListGrants(ctx, s.db, *tenant.PlanID)
	if err != nil {
		return nil, err
	}
	return toTenantFeatures(grants), nil
}

func (s *Service) PatchFeatures(ctx context.Context, req domain.PatchFeaturesRequest) ([]domain.TenantFeature, error) {
	tenant, err := s.find(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.PlanID == nil {
		return nil, domain.ErrNoPlanAssigned
	}

	grants, err := s.planRepo.ListGrants(ctx, s.db, *tenant.PlanID)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]snowflake.ID, len(grants))
	for _, grant := range grants {
		byKey[grant.Key] = grant.FeatureID
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, enabled := range req.Features {
			featureID, ok := byKey[strings.TrimSpace(key)]
			if !ok {
				return domain.ErrUnknownFeature
			}
			if err := s.planRepo.SetGrantEnabled(ctx, tx, *tenant.PlanID, featureID, enabled, now); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	grants, err = s.planRepo.ListGrants(ctx, s.db, *tenant.PlanID)
	if err != nil {
		return nil, err
	}
	return toTenantFeatures(grants), nil
}

func (s *Service) setStatus(ctx context.Context, id string, status domain.TenantStatus) (*domain.Response, error) {
	tenant, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	tenant.Status = status
	tenant.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, tenant); err != nil {
		return nil, err
	}

	s.log.Info("tenant status changed",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("status", string(status)),
	)

	resp := toResponse(tenant)
	return &resp, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Tenant, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	tenant, err := s.repo.FindByID(ctx, s.db, tenantID.Int64())
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}
	return tenant, nil
}

func toResponse(t *domain.Tenant) domain.Response {
	resp := domain.Response{
		ID:           t.ID.String(),
		Name:         t.Name,
		Slug:         t.Slug,
		Status:       string(t.Status),
		UserCount:    t.UserCount,
		ProjectCount: t.ProjectCount,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.PlanID != nil {
		planID := t.PlanID.String()
		resp.PlanID = &planID
	}
	if len(t.ComplianceTags) > 0 {
		var tags []string
		if err := json.Unmarshal(t.ComplianceTags, &tags); err == nil {
			resp.ComplianceTags = tags
		}
	}
	return resp
}

func toTenantFeatures(grants []plandomain.FeatureGrant) []domain.TenantFeature {
	features := make([]domain.TenantFeature, 0, len(grants))
	for _, grant := range grants {
		features = append(features, domain.TenantFeature{
			FeatureID: grant.FeatureID.String(),
			Key:       grant.Key,
			Name:      grant.Name,
			Category:  grant.Category,
			Enabled:   grant.Enabled,
		})
	}
	return features
}
