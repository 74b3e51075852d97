package service

import (
	"context"
	"strings"
	"time"

	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	"github.com/blicktrack/platform/internal/plan/domain"
	"github.com/blicktrack/platform/pkg/db"
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
	FeatureRepo featuredomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	featureRepo featuredomain.Repository
	genID       *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("plan.service"),
		repo:        p.Repo,
		featureRepo: p.FeatureRepo,
		genID:       p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	tier := strings.ToLower(strings.TrimSpace(req.Tier))
	if tier == "" {
		return nil, domain.ErrInvalidTier
	}
	if req.MaxUsers < 0 || req.MaxProjects < 0 {
		return nil, domain.ErrInvalidLimit
	}

	now := time.Now().UTC()
	record := &domain.Plan{
		ID:          s.genID.Generate(),
		Tier:        tier,
		MaxUsers:    req.MaxUsers,
		MaxProjects: req.MaxProjects,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateTier
		}
		return nil, err
	}

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListRequest{
		Tier:   strings.ToLower(strings.TrimSpace(req.Tier)),
		Active: req.Active,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(&item))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	planID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, planID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) ListFeatures(ctx context.Context, planID string) ([]domain.FeatureGrantResponse, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(planID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	plan, err := s.repo.FindByID(ctx, s.db, parsed.Int64())
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}

	grants, err := s.repo.ListGrants(ctx, s.db, plan.ID)
	if err != nil {
		return nil, err
	}
	return toGrantResponses(grants), nil
}

func (s *Service) ReplaceFeatures(ctx context.Context, req domain.ReplaceFeaturesRequest) ([]domain.FeatureGrantResponse, error) {
	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	plan, err := s.repo.FindByID(ctx, s.db, planID.Int64())
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}

	featureIDs, err := parseFeatureIDs(req.FeatureIDs)
	if err != nil {
		return nil, err
	}

	if err := s.validateFeatures(ctx, featureIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceGrants(ctx, tx, plan.ID, featureIDs, now)
	}); err != nil {
		return nil, err
	}

	grants, err := s.repo.ListGrants(ctx, s.db, plan.ID)
	if err != nil {
		return nil, err
	}
	return toGrantResponses(grants), nil
}

func (s *Service) SetFeatureEnabled(ctx context.Context, req domain.SetFeatureEnabledRequest) error {
	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil {
		return domain.ErrInvalidID
	}

	plan, err := s.repo.FindByID(ctx, s.db, planID.Int64())
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.ErrNotFound
	}

	grant, err := s.repo.FindGrantByKey(ctx, s.db, plan.ID, req.FeatureKey)
	if err != nil {
		return err
	}
	if grant == nil {
		return domain.ErrFeatureNotFound
	}

	return s.repo.SetGrantEnabled(ctx, s.db, plan.ID, grant.FeatureID, req.Enabled, time.Now().UTC())
}

func (s *Service) validateFeatures(ctx context.Context, featureIDs []snowflake.ID) error {
	if len(featureIDs) == 0 {
		return nil
	}

	features, err := s.featureRepo.ListByIDs(ctx, s.db, featureIDs)
	if err != nil {
		return err
	}

	known := make(map[snowflake.ID]bool, len(features))
	for _, f := range features {
		known[f.ID] = f.Active
	}
	for _, id := range featureIDs {
		active, ok := known[id]
		if !ok {
			return domain.ErrFeatureNotFound
		}
		if !active {
			return domain.ErrFeatureInactive
		}
	}
	return nil
}

func parseFeatureIDs(values []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(values))
	seen := make(map[int64]struct{})
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil {
			return nil, domain.ErrInvalidFeatureID
		}
		if _, ok := seen[parsed.Int64()]; ok {
			continue
		}
		seen[parsed.Int64()] = struct{}{}
		ids = append(ids, parsed)
	}
	return ids, nil
}

func toResponse(p *domain.Plan) domain.Response {
	return domain.Response{
		ID:          p.ID.String(),
		Tier:        p.Tier,
		MaxUsers:    p.MaxUsers,
		MaxProjects: p.MaxProjects,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toGrantResponses(grants []domain.FeatureGrant) []domain.FeatureGrantResponse {
	resp := make([]domain.FeatureGrantResponse, 0, len(grants))
	for _, grant := range grants {
		resp = append(resp, domain.FeatureGrantResponse{
			FeatureID: grant.FeatureID.String(),
			Key:       grant.Key,
			Name:      grant.Name,
			Category:  grant.Category,
			Enabled:   grant.Enabled,
		})
	}
	return resp
}
