package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	GetByKey(ctx context.Context, key string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Archive(ctx context.Context, id string) (*Response, error)
}

type ListRequest struct {
	Key            string
	Category       string
	DefaultEnabled *bool
	Active         *bool
	SortBy         string
	OrderBy        string
}

type CreateRequest struct {
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	Description    *string        `json:"description"`
	Category       string         `json:"category"`
	DefaultEnabled *bool          `json:"default_enabled"`
	DefaultConfig  map[string]any `json:"default_config"`
}

type UpdateRequest struct {
	ID             string         `json:"id"`
	Name           *string        `json:"name,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Category       *string        `json:"category,omitempty"`
	DefaultEnabled *bool          `json:"default_enabled,omitempty"`
	DefaultConfig  map[string]any `json:"default_config,omitempty"`
}

type Response struct {
	ID             string         `json:"id"`
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	Description    *string        `json:"description,omitempty"`
	Category       string         `json:"category"`
	DefaultEnabled bool           `json:"default_enabled"`
	DefaultConfig  map[string]any `json:"default_config,omitempty"`
	Active         bool           `json:"active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

var (
	ErrInvalidKey      = errors.New("invalid_key")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidID       = errors.New("invalid_id")
	ErrDuplicateKey    = errors.New("duplicate_key")
	ErrNotFound        = errors.New("not_found")
)
