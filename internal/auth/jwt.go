// Package auth verifies bearer tokens issued by the identity provider
// and turns their claims into a request principal.
package auth

import (
	"errors"
	"strings"

	"github.com/blicktrack/platform/internal/config"
	"github.com/blicktrack/platform/internal/tenantctx"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrExpiredToken = errors.New("expired_token")
	ErrMissingRole  = errors.New("missing_role")
)

// Claims mirrors the token payload. Older tokens carry the tenant in
// "tenant", newer ones in "tenantId"; both are accepted.
type Claims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Tenant   string `json:"tenant,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(cfg config.Config) *Verifier {
	return &Verifier{secret: []byte(cfg.AuthJWTSecret)}
}

// Verify parses and validates the token and builds the principal. The
// role claim is normalized but deliberately not rejected here; the
// entitlement and authorization layers decide what an unknown role may
// do (nothing).
func (v *Verifier) Verify(tokenString string) (*tenantctx.Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	role := strings.TrimSpace(claims.Role)
	if role == "" {
		return nil, ErrMissingRole
	}

	principal := &tenantctx.Principal{
		Email: strings.TrimSpace(claims.Email),
		Role:  string(userdomain.NormalizeRole(role)),
	}
	if sub := strings.TrimSpace(claims.Subject); sub != "" {
		userID, err := snowflake.ParseString(sub)
		if err != nil {
			return nil, ErrInvalidToken
		}
		principal.UserID = userID
	}

	tenant := strings.TrimSpace(claims.TenantID)
	if tenant == "" {
		tenant = strings.TrimSpace(claims.Tenant)
	}
	if tenant != "" {
		tenantID, err := snowflake.ParseString(tenant)
		if err != nil {
			return nil, ErrInvalidToken
		}
		principal.TenantID = tenantID
	}

	return principal, nil
}

var Module = fx.Module("auth",
	fx.Provide(NewVerifier),
)
