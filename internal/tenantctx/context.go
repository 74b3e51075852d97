// Package tenantctx carries the authenticated principal through request
// contexts. Services resolve the caller's tenant and role from here
// instead of re-reading transport headers.
package tenantctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Principal identifies the authenticated caller.
type Principal struct {
	UserID   snowflake.ID
	Email    string
	Role     string
	TenantID snowflake.ID
}

type principalKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal, if set.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// TenantIDFromContext returns the caller's tenant ID, if set.
func TenantIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.TenantID == 0 {
		return 0, false
	}
	return p.TenantID, true
}

// WithTenantID overrides only the tenant scope of the context, keeping
// the rest of the principal intact. Used by platform roles acting on a
// specific tenant.
func WithTenantID(ctx context.Context, tenantID snowflake.ID) context.Context {
	p, _ := PrincipalFromContext(ctx)
	p.TenantID = tenantID
	return WithPrincipal(ctx, p)
}

// ParseTenantID parses a tenant ID string, tolerating surrounding space.
func ParseTenantID(value string) (snowflake.ID, bool) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		return 0, false
	}
	return parsed, true
}
