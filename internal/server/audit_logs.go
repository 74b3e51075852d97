package server

import (
	"net/http"
	"strconv"
	"strings"

	auditdomain "github.com/blicktrack/platform/internal/audit/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query struct {
		ActorID string `form:"actor_id"`
		Since   string `form:"since"`
		Limit   string `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	since, err := parseOptionalTime(query.Since)
	if err != nil {
		AbortWithError(c, newValidationError("since", "invalid_since", "invalid since"))
		return
	}

	limit := 0
	if trimmed := strings.TrimSpace(query.Limit); trimmed != "" {
		limit, err = strconv.Atoi(trimmed)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
	}

	req := auditdomain.ListRequest{
		TenantID: s.effectiveTenantID(c),
		ActorID:  strings.TrimSpace(query.ActorID),
		Limit:    limit,
	}
	if since != nil {
		req.Since = *since
	}

	events, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

// recordAudit writes a best-effort audit entry for a mutation. The
// audit service swallows persistence failures, so handlers never block
// on it.
func (s *Server) recordAudit(c *gin.Context, action, resourceType, resourceID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}

	entry := auditdomain.Entry{
		TenantID:     s.effectiveTenantID(c),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
	}
	if principal, ok := principalFrom(c); ok {
		if principal.UserID != 0 {
			entry.ActorID = principal.UserID.String()
		}
		entry.ActorEmail = principal.Email
	}

	s.auditSvc.Record(c.Request.Context(), entry)
}
