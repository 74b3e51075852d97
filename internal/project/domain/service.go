package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	GetByID(ctx context.Context, tenantID, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Archive(ctx context.Context, tenantID, id string) (*Response, error)
}

type CreateRequest struct {
	TenantID    string  `json:"-"`
	OwnerID     string  `json:"-"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type ListRequest struct {
	TenantID  string
	OwnerID   string
	Status    string
	PageToken string
	PageSize  int
}

type UpdateRequest struct {
	TenantID    string  `json:"-"`
	ID          string  `json:"-"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type Response struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListResponse struct {
	Projects      []Response `json:"projects"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidOwner  = errors.New("invalid_owner")
	ErrQuotaExceeded = errors.New("quota_exceeded")
	ErrNotFound      = errors.New("not_found")
)
