package service

import (
	"context"
	"strings"
	"time"

	"github.com/blicktrack/platform/internal/feature/domain"
	"github.com/blicktrack/platform/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("feature.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	key := slug.Make(strings.TrimSpace(req.Key))
	if key == "" {
		key = slug.Make(name)
	}
	if key == "" {
		return nil, domain.ErrInvalidKey
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, domain.ErrInvalidCategory
	}

	description := strings.TrimSpace(ptrToString(req.Description))
	var descriptionPtr *string
	if description != "" {
		descriptionPtr = &description
	}

	defaultEnabled := false
	if req.DefaultEnabled != nil {
		defaultEnabled = *req.DefaultEnabled
	}

	now := time.Now().UTC()
	record := &domain.Feature{
		ID:             s.genID.Generate(),
		Key:            key,
		Name:           name,
		Description:    descriptionPtr,
		Category:       category,
		DefaultEnabled: defaultEnabled,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.DefaultConfig != nil {
		record.DefaultConfig = datatypes.JSONMap(req.DefaultConfig)
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateKey
		}
		return nil, err
	}

	resp := s.toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListRequest{
		Key:            strings.TrimSpace(req.Key),
		Category:       strings.TrimSpace(req.Category),
		DefaultEnabled: req.DefaultEnabled,
		Active:         req.Active,
		SortBy:         strings.TrimSpace(req.SortBy),
		OrderBy:        strings.TrimSpace(req.OrderBy),
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) GetByKey(ctx context.Context, key string) (*domain.Response, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, domain.ErrInvalidKey
	}

	item, err := s.repo.FindByKey(ctx, s.db, trimmed)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	featureID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, featureID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			item.Description = nil
		} else {
			item.Description = &description
		}
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, domain.ErrInvalidCategory
		}
		item.Category = category
	}
	if req.DefaultEnabled != nil {
		item.DefaultEnabled = *req.DefaultEnabled
	}
	if req.DefaultConfig != nil {
		item.DefaultConfig = datatypes.JSONMap(req.DefaultConfig)
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Archive(ctx context.Context, id string) (*domain.Response, error) {
	featureID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, featureID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	item.Active = false
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) toResponse(f *domain.Feature) domain.Response {
	resp := domain.Response{
		ID:             f.ID.String(),
		Key:            f.Key,
		Name:           f.Name,
		Description:    f.Description,
		Category:       f.Category,
		DefaultEnabled: f.DefaultEnabled,
		Active:         f.Active,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	if len(f.DefaultConfig) > 0 {
		resp.DefaultConfig = map[string]any(f.DefaultConfig)
	}
	return resp
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
