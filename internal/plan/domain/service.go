package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	ListFeatures(ctx context.Context, planID string) ([]FeatureGrantResponse, error)
	ReplaceFeatures(ctx context.Context, req ReplaceFeaturesRequest) ([]FeatureGrantResponse, error)
	SetFeatureEnabled(ctx context.Context, req SetFeatureEnabledRequest) error
}

type ListRequest struct {
	Tier   string
	Active *bool
}

type CreateRequest struct {
	Tier        string `json:"tier"`
	MaxUsers    int    `json:"max_users"`
	MaxProjects int    `json:"max_projects"`
}

type ReplaceFeaturesRequest struct {
	PlanID     string
	FeatureIDs []string
}

type SetFeatureEnabledRequest struct {
	PlanID     string
	FeatureKey string
	Enabled    bool
}

type Response struct {
	ID          string    `json:"id"`
	Tier        string    `json:"tier"`
	MaxUsers    int       `json:"max_users"`
	MaxProjects int       `json:"max_projects"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type FeatureGrantResponse struct {
	FeatureID string `json:"feature_id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Enabled   bool   `json:"enabled"`
}

var (
	ErrInvalidTier      = errors.New("invalid_tier")
	ErrInvalidLimit     = errors.New("invalid_limit")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidFeatureID = errors.New("invalid_feature_id")
	ErrDuplicateTier    = errors.New("duplicate_tier")
	ErrFeatureNotFound  = errors.New("feature_not_found")
	ErrFeatureInactive  = errors.New("feature_inactive")
	ErrNotFound         = errors.New("not_found")
)
