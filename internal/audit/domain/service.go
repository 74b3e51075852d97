package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, req ListRequest) ([]Event, error)
}

// Entry is what callers hand to Record. Persistence failures are
// logged, not surfaced; an audit miss must not fail the mutation.
type Entry struct {
	TenantID     string
	ActorID      string
	ActorEmail   string
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]any
}

type ListRequest struct {
	TenantID string
	ActorID  string
	Since    time.Time
	Limit    int
}

type Event struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	ActorID      string         `json:"actor_id,omitempty"`
	ActorEmail   string         `json:"actor_email,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

var ErrInvalidTenant = errors.New("invalid_tenant")
