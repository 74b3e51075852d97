package service

import (
	"context"
	"strings"
	"time"

	"github.com/blicktrack/platform/internal/audit/domain"
	"github.com/bwmarrin/snowflake"
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
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Record appends an entry best effort. Failures are logged and
// swallowed so a broken audit sink never blocks the write path.
func (s *Service) Record(ctx context.Context, entry domain.Entry) {
	// Platform-scope actions carry no tenant; they land in the global
	// feed with a zero tenant ID.
	var tenantID snowflake.ID
	if raw := strings.TrimSpace(entry.TenantID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			s.log.Warn("audit entry dropped", zap.String("tenant_id", entry.TenantID), zap.Error(err))
			return
		}
		tenantID = id
	}

	row := &domain.AuditLog{
		ID:           s.genID.Generate(),
		TenantID:     tenantID,
		ActorEmail:   entry.ActorEmail,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		CreatedAt:    time.Now().UTC(),
	}
	if actorID, err := snowflake.ParseString(strings.TrimSpace(entry.ActorID)); err == nil {
		row.ActorID = actorID
	}
	if len(entry.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(entry.Metadata)
	}

	if err := s.repo.Append(ctx, s.db, row); err != nil {
		s.log.Error("audit append failed",
			zap.String("tenant_id", row.TenantID.String()),
			zap.String("action", row.Action),
			zap.Error(err),
		)
	}
}

// List returns events newest first. An empty TenantID widens the feed
// to the whole platform; callers gate that on role before asking.
func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Event, error) {
	filter := domain.ListFilter{
		Since: req.Since,
		Limit: req.Limit,
	}
	if scope := strings.TrimSpace(req.TenantID); scope != "" {
		tenantID, err := snowflake.ParseString(scope)
		if err != nil {
			return nil, domain.ErrInvalidTenant
		}
		filter.TenantID = tenantID
	}
	if actor := strings.TrimSpace(req.ActorID); actor != "" {
		if actorID, err := snowflake.ParseString(actor); err == nil {
			filter.ActorID = actorID
		}
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		event := domain.Event{
			ID:           row.ID.String(),
			TenantID:     row.TenantID.String(),
			ActorEmail:   row.ActorEmail,
			Action:       row.Action,
			ResourceType: row.ResourceType,
			ResourceID:   row.ResourceID,
			CreatedAt:    row.CreatedAt,
		}
		if row.ActorID != 0 {
			event.ActorID = row.ActorID.String()
		}
		if len(row.Metadata) > 0 {
			event.Metadata = map[string]any(row.Metadata)
		}
		events = append(events, event)
	}
	return events, nil
}
