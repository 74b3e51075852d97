// Package domain defines the entitlement resolver contract. The
// resolver answers one question: can this subject use this feature
// right now. A negative answer is a valid result, not an error.
package domain

import (
	"context"
	"errors"
)

type Service interface {
	CanAccessFeature(ctx context.Context, subject Subject, featureKey string) (*Decision, error)
	AvailableFeatures(ctx context.Context, subject Subject) ([]FeatureView, error)
}

// Subject identifies who is asking. Role comes from the verified token
// claims; the override rows are keyed off UserID.
type Subject struct {
	UserID   string
	TenantID string
	Role     string
}

type Decision struct {
	FeatureKey string `json:"feature_key"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason"`
}

// Decision reasons. Denials carry the first failed check so callers
// can distinguish "plan never granted it" from "override turned off".
const (
	ReasonRoleBypass       = "role_bypass"
	ReasonPlanGranted      = "plan_granted"
	ReasonOverrideActive   = "override_active"
	ReasonFeatureNotFound  = "feature_not_found"
	ReasonFeatureInactive  = "feature_inactive"
	ReasonNoPlan           = "no_plan"
	ReasonNotGranted       = "not_granted"
	ReasonGrantDisabled    = "grant_disabled"
	ReasonOverrideInactive = "override_inactive"
)

type FeatureView struct {
	Key      string         `json:"key"`
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Config   map[string]any `json:"config,omitempty"`
}

var (
	ErrUnknownRole   = errors.New("unknown_role")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidUser   = errors.New("invalid_user")
)
