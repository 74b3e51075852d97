// Package domain defines the dashboard aggregation contract. Every
// section is shaped by the caller's role: platform roles see the whole
// estate, tenant admins see their tenant, end users see themselves.
package domain

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
)

type Service interface {
	Summary(ctx context.Context, subject Subject) (*Summary, error)
	Stats(ctx context.Context, subject Subject) (*Stats, error)
	Activity(ctx context.Context, subject Subject) ([]auditdomain.Event, error)
	Projects(ctx context.Context, subject Subject) ([]ProjectSummary, error)
	SystemHealth(ctx context.Context, subject Subject) (*SystemHealth, error)
	Navigation(ctx context.Context, subject Subject) ([]NavItem, error)
}

type Subject struct {
	UserID   string
	TenantID string
	Email    string
	Role     string
}

// Stats carries the counters for the caller's scope. Fields that do
// not apply to the scope stay nil.
type Stats struct {
	Tenants  *int64 `json:"tenants,omitempty"`
	Users    *int64 `json:"users,omitempty"`
	Projects *int64 `json:"projects,omitempty"`
	Features *int64 `json:"features,omitempty"`
}

type ProjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type SystemHealth struct {
	Status      string `json:"status"`
	DBLatencyMs int64  `json:"db_latency_ms"`
	Redis       string `json:"redis,omitempty"`
}

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

type NavItem struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Path     string    `json:"path"`
	Children []NavItem `json:"children,omitempty"`
}

type Summary struct {
	Stats       *Stats              `json:"stats"`
	Activity    []auditdomain.Event `json:"activity"`
	Projects    []ProjectSummary    `json:"projects"`
	Navigation  []NavItem           `json:"navigation"`
	Health      *SystemHealth       `json:"health,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

var (
	ErrUnknownRole   = errors.New("unknown_role")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidUser   = errors.New("invalid_user")
)
