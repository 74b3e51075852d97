package service

import (
	"context"
	"strings"
	"time"

	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	"github.com/blicktrack/platform/internal/project/domain"
	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	"github.com/blicktrack/platform/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	TenantRepo tenantdomain.Repository
	PlanRepo   plandomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	tenantRepo tenantdomain.Repository
	planRepo   plandomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("project.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
		planRepo:   p.PlanRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}
	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil {
		return nil, domain.ErrInvalidOwner
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
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
		if plan != nil && plan.MaxProjects > 0 {
			count, err := s.repo.CountByTenant(ctx, s.db, tenant.ID)
			if err != nil {
				return nil, err
			}
			if count >= int64(plan.MaxProjects) {
				return nil, domain.ErrQuotaExceeded
			}
		}
	}

	now := time.Now().UTC()
	record := &domain.Project{
		ID:          s.genID.Generate(),
		TenantID:    tenant.ID,
		OwnerID:     ownerID,
		Name:        name,
		Description: req.Description,
		Status:      domain.ProjectStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, record); err != nil {
			return err
		}
		return s.tenantRepo.AdjustProjectCount(ctx, tx, tenant.ID, 1)
	}); err != nil {
		return nil, err
	}

	s.log.Info("project created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("project_id", record.ID.String()),
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
	if owner := strings.TrimSpace(req.OwnerID); owner != "" {
		ownerID, err := snowflake.ParseString(owner)
		if err != nil {
			return nil, domain.ErrInvalidOwner
		}
		filter.OwnerID = ownerID
	}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		filter.Status = domain.ProjectStatus(status)
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

	resp := &domain.ListResponse{Projects: make([]domain.Response, 0, len(items))}
	for _, item := range items {
		resp.Projects = append(resp.Projects, toResponse(&item))
	}
	if limit := filter.PageSize; limit > 0 && len(items) == limit {
		resp.NextPageToken = pagination.Encode(pagination.Cursor{ID: items[len(items)-1].ID.String()})
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (*domain.Response, error) {
	project, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(project)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	project, err := s.find(ctx, req.TenantID, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = req.Description
	}

	project.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, project); err != nil {
		return nil, err
	}

	resp := toResponse(project)
	return &resp, nil
}

func (s *Service) Archive(ctx context.Context, tenantID, id string) (*domain.Response, error) {
	project, err := s.find(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	alreadyArchived := project.Status == domain.ProjectStatusArchived
	project.Status = domain.ProjectStatusArchived
	project.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, project); err != nil {
			return err
		}
		if alreadyArchived {
			return nil
		}
		return s.tenantRepo.AdjustProjectCount(ctx, tx, project.TenantID, -1)
	}); err != nil {
		return nil, err
	}

	resp := toResponse(project)
	return &resp, nil
}

func (s *Service) find(ctx context.Context, tenantID, id string) (*domain.Project, error) {
	scopeID, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}
	projectID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	project, err := s.repo.FindByID(ctx, s.db, projectID.Int64())
	if err != nil {
		return nil, err
	}
	if project == nil || project.TenantID != scopeID {
		return nil, domain.ErrNotFound
	}
	return project, nil
}

func toResponse(p *domain.Project) domain.Response {
	return domain.Response{
		ID:          p.ID.String(),
		TenantID:    p.TenantID.String(),
		OwnerID:     p.OwnerID.String(),
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
