package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Suspend(ctx context.Context, id string) (*Response, error)
	Activate(ctx context.Context, id string) (*Response, error)
	GetSettings(ctx context.Context, id string) (map[string]any, error)
	UpdateSettings(ctx context.Context, id string, patch map[string]any) (map[string]any, error)
	ListFeatures(ctx context.Context, id string) ([]TenantFeature, error)
	PatchFeatures(ctx context.Context, req PatchFeaturesRequest) ([]TenantFeature, error)
}

type CreateRequest struct {
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	PlanTier       string   `json:"plan_tier"`
	ComplianceTags []string `json:"compliance_tags"`
}

type ListRequest struct {
	Status    string
	PageToken string
	PageSize  int
}

type UpdateRequest struct {
	ID             string    `json:"id"`
	Name           *string   `json:"name,omitempty"`
	PlanID         *string   `json:"plan_id,omitempty"`
	Status         *string   `json:"status,omitempty"`
	ComplianceTags *[]string `json:"compliance_tags,omitempty"`
}

// PatchFeaturesRequest toggles grants on the tenant's plan, scoped so
// only features the plan already references can be flipped.
type PatchFeaturesRequest struct {
	TenantID string
	Features map[string]bool
}

type Response struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	PlanID         *string   `json:"plan_id,omitempty"`
	Status         string    `json:"status"`
	ComplianceTags []string  `json:"compliance_tags,omitempty"`
	UserCount      int       `json:"user_count"`
	ProjectCount   int       `json:"project_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ListResponse struct {
	Tenants       []Response `json:"tenants"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

type TenantFeature struct {
	FeatureID string `json:"feature_id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Enabled   bool   `json:"enabled"`
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidSlug    = errors.New("invalid_slug")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidPlan    = errors.New("invalid_plan")
	ErrDuplicateSlug  = errors.New("duplicate_slug")
	ErrNoPlanAssigned = errors.New("no_plan_assigned")
	ErrUnknownFeature = errors.New("unknown_feature")
	ErrNotFound       = errors.New("not_found")
)
