package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Invite(ctx context.Context, req InviteRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	GetByID(ctx context.Context, tenantID, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Disable(ctx context.Context, tenantID, id string) (*Response, error)
	Activate(ctx context.Context, tenantID, id string) (*Response, error)

	SetFeatureAccess(ctx context.Context, req SetFeatureAccessRequest) error
	ListFeatureAccess(ctx context.Context, tenantID, id string) ([]FeatureAccessView, error)
	RemoveFeatureAccess(ctx context.Context, tenantID, id, featureKey string) error
	PermissionMap(ctx context.Context, tenantID, id string) (map[string]bool, error)
}

type InviteRequest struct {
	TenantID    string `json:"tenant_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	UserType    string `json:"user_type"`
}

type ListRequest struct {
	TenantID  string
	Role      string
	Status    string
	PageToken string
	PageSize  int
}

type UpdateRequest struct {
	TenantID    string  `json:"-"`
	ID          string  `json:"-"`
	DisplayName *string `json:"display_name,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// SetFeatureAccessRequest flips per-user override rows. Only meaningful
// for END_USER accounts; the resolver ignores the rows for admin roles.
type SetFeatureAccessRequest struct {
	TenantID string          `json:"-"`
	UserID   string          `json:"-"`
	Features map[string]bool `json:"features"`
}

type Response struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	UserType    string    `json:"user_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListResponse struct {
	Users         []Response `json:"users"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

// FeatureAccessView is one override row joined with its feature.
type FeatureAccessView struct {
	FeatureID string    `json:"feature_id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidTenant  = errors.New("invalid_tenant")
	ErrDuplicateEmail = errors.New("duplicate_email")
	ErrUnknownFeature = errors.New("unknown_feature")
	ErrQuotaExceeded  = errors.New("quota_exceeded")
	ErrNotFound       = errors.New("not_found")
)
