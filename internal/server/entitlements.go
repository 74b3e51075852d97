package server

import (
	"net/http"
	"strings"

	entitlementdomain "github.com/blicktrack/platform/internal/entitlement/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) entitlementSubject(c *gin.Context) (entitlementdomain.Subject, bool) {
	principal, ok := principalFrom(c)
	if !ok {
		return entitlementdomain.Subject{}, false
	}
	subject := entitlementdomain.Subject{
		TenantID: s.effectiveTenantID(c),
		Role:     principal.Role,
	}
	if principal.UserID != 0 {
		subject.UserID = principal.UserID.String()
	}
	return subject, true
}

// ListEntitlements returns every feature the caller can use right now.
func (s *Server) ListEntitlements(c *gin.Context) {
	subject, ok := s.entitlementSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	features, err := s.entitlementSvc.AvailableFeatures(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": features})
}

// CheckEntitlement answers a single feature question. A denial is a
// 200 with allowed=false and the reason, never an error status.
func (s *Server) CheckEntitlement(c *gin.Context) {
	subject, ok := s.entitlementSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	key := strings.TrimSpace(c.Param("key"))
	decision, err := s.entitlementSvc.CanAccessFeature(c.Request.Context(), subject, key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": decision})
}
