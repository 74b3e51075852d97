package server

import (
	"net/http"
	"strings"

	tenantdomain "github.com/blicktrack/platform/internal/tenant/domain"
	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/gin-gonic/gin"
)

type createTenantRequest struct {
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	PlanTier       string   `json:"plan_tier"`
	ComplianceTags []string `json:"compliance_tags"`
}

type updateTenantRequest struct {
	Name           *string   `json:"name,omitempty"`
	PlanID         *string   `json:"plan_id,omitempty"`
	Status         *string   `json:"status,omitempty"`
	ComplianceTags *[]string `json:"compliance_tags,omitempty"`
}

type patchTenantFeaturesRequest struct {
	Features map[string]bool `json:"features"`
}

// tenantScopedID resolves the :id path segment. Platform roles may
// address any tenant; everyone else is pinned to their own.
func (s *Server) tenantScopedID(c *gin.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	principal, ok := principalFrom(c)
	if !ok {
		return "", ErrUnauthorized
	}
	role := userdomain.NormalizeRole(principal.Role)
	if !role.IsPlatformRole() {
		if principal.TenantID == 0 || principal.TenantID.String() != id {
			return "", ErrForbidden
		}
	}
	return id, nil
}

func (s *Server) ListTenants(c *gin.Context) {
	var query struct {
		Status    string `form:"status"`
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pageSize, err := parsePageSize(query.PageSize)
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}

	resp, err := s.tenantSvc.List(c.Request.Context(), tenantdomain.ListRequest{
		Status:    strings.TrimSpace(query.Status),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.Create(c.Request.Context(), tenantdomain.CreateRequest{
		Name:           strings.TrimSpace(req.Name),
		Slug:           strings.TrimSpace(req.Slug),
		PlanTier:       strings.TrimSpace(req.PlanTier),
		ComplianceTags: req.ComplianceTags,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "tenant.create", "tenant", resp.ID, map[string]any{
		"slug":   resp.Slug,
		"status": resp.Status,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetTenantByID(c *gin.Context) {
	id, err := s.tenantScopedID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.tenantSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTenant(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.Update(c.Request.Context(), tenantdomain.UpdateRequest{
		ID:             id,
		Name:           req.Name,
		PlanID:         req.PlanID,
		Status:         req.Status,
		ComplianceTags: req.ComplianceTags,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "tenant.update", "tenant", resp.ID, map[string]any{
		"status": resp.Status,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SuspendTenant(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.tenantSvc.Suspend(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "tenant.suspend", "tenant", resp.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateTenant(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.tenantSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "tenant.activate", "tenant", resp.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTenantSettings(c *gin.Context) {
	id, err := s.tenantScopedID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	settings, err := s.tenantSvc.GetSettings(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (s *Server) UpdateTenantSettings(c *gin.Context) {
	id, err := s.tenantScopedID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.tenantSvc.UpdateSettings(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	s.recordAudit(c, "tenant.settings.update", "tenant", id, map[string]any{
		"keys": keys,
	})

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// ListCallerTenantFeatures answers for whichever tenant the caller is
// acting on, without a path ID. Dashboards use it to render plan state.
func (s *Server) ListCallerTenantFeatures(c *gin.Context) {
	id := s.effectiveTenantID(c)
	if id == "" {
		AbortWithError(c, tenantdomain.ErrInvalidID)
		return
	}

	features, err := s.tenantSvc.ListFeatures(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": features})
}

func (s *Server) ListTenantFeatures(c *gin.Context) {
	id, err := s.tenantScopedID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	features, err := s.tenantSvc.ListFeatures(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": features})
}

func (s *Server) PatchTenantFeatures(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req patchTenantFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Features) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	features, err := s.tenantSvc.PatchFeatures(c.Request.Context(), tenantdomain.PatchFeaturesRequest{
		TenantID: id,
		Features: req.Features,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "tenant.features.patch", "tenant", id, map[string]any{
		"features": req.Features,
	})

	c.JSON(http.StatusOK, gin.H{"data": features})
}
