package server

import (
	"net/http"
	"strings"

	userdomain "github.com/blicktrack/platform/internal/user/domain"
	"github.com/gin-gonic/gin"
)

type inviteUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	UserType    string `json:"user_type"`
}

type updateUserRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Role        *string `json:"role,omitempty"`
}

type setUserFeatureAccessRequest struct {
	Features map[string]bool `json:"features"`
}

func (s *Server) ListUsers(c *gin.Context) {
	var query struct {
		Role      string `form:"role"`
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

	resp, err := s.userSvc.List(c.Request.Context(), userdomain.ListRequest{
		TenantID:  s.effectiveTenantID(c),
		Role:      strings.TrimSpace(query.Role),
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

func (s *Server) InviteUser(c *gin.Context) {
	var req inviteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Invite(c.Request.Context(), userdomain.InviteRequest{
		TenantID:    s.effectiveTenantID(c),
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        strings.TrimSpace(req.Role),
		UserType:    strings.TrimSpace(req.UserType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "user.invite", "user", resp.ID, map[string]any{
		"email": resp.Email,
		"role":  resp.Role,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetUserByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.userSvc.GetByID(c.Request.Context(), s.effectiveTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.userSvc.Update(c.Request.Context(), userdomain.UpdateRequest{
		TenantID:    s.effectiveTenantID(c),
		ID:          id,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "user.update", "user", resp.ID, map[string]any{
		"role": resp.Role,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DisableUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.userSvc.Disable(c.Request.Context(), s.effectiveTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "user.disable", "user", resp.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.userSvc.Activate(c.Request.Context(), s.effectiveTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "user.activate", "user", resp.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetUserFeatureAccess(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req setUserFeatureAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Features) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.userSvc.SetFeatureAccess(c.Request.Context(), userdomain.SetFeatureAccessRequest{
		TenantID: s.effectiveTenantID(c),
		UserID:   id,
		Features: req.Features,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "user.feature_access.set", "user", id, map[string]any{
		"features": req.Features,
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": id, "features": req.Features}})
}

func (s *Server) ListUserFeatureAccess(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	views, err := s.userSvc.ListFeatureAccess(c.Request.Context(), s.effectiveTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) SetUserFeatureOverride(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	key := strings.TrimSpace(c.Param("key"))

	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.userSvc.SetFeatureAccess(c.Request.Context(), userdomain.SetFeatureAccessRequest{
		TenantID: s.effectiveTenantID(c),
		UserID:   id,
		Features: map[string]bool{key: *req.Active},
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "user.feature_access.set", "user", id, map[string]any{
		"feature": key,
		"active":  *req.Active,
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": id, "feature": key, "active": *req.Active}})
}

func (s *Server) RemoveUserFeatureOverride(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	key := strings.TrimSpace(c.Param("key"))

	if err := s.userSvc.RemoveFeatureAccess(c.Request.Context(), s.effectiveTenantID(c), id, key); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "user.feature_access.remove", "user", id, map[string]any{
		"feature": key,
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": id, "feature": key}})
}

func (s *Server) GetUserPermissions(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	permissions, err := s.userSvc.PermissionMap(c.Request.Context(), s.effectiveTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": id, "permissions": permissions}})
}
