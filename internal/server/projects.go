package server

import (
	"net/http"
	"strings"

	projectdomain "github.com/blicktrack/platform/internal/project/domain"
	"github.com/gin-gonic/gin"
)

type createProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type updateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (s *Server) ListProjects(c *gin.Context) {
	var query struct {
		OwnerID   string `form:"owner_id"`
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

	resp, err := s.projectSvc.List(c.Request.Context(), projectdomain.ListRequest{
		TenantID:  s.effectiveTenantID(c),
		OwnerID:   strings.TrimSpace(query.OwnerID),
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

func (s *Server) CreateProject(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := ""
	if principal.UserID != 0 {
		ownerID = principal.UserID.String()
	}

	resp, err := s.projectSvc.Create(c.Request.Context(), projectdomain.CreateRequest{
		TenantID:    s.effectiveTenantID(c),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(req.Name),
		Description: trimOptionalString(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "project.create", "project", resp.ID, map[string]any{
		"name": resp.Name,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetProjectByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.projectSvc.GetByID(c.Request.Context(), s.effectiveTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProject(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Update(c.Request.Context(), projectdomain.UpdateRequest{
		TenantID:    s.effectiveTenantID(c),
		ID:          id,
		Name:        trimOptionalString(req.Name),
		Description: trimOptionalString(req.Description),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "project.update", "project", resp.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ArchiveProject(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.projectSvc.Archive(c.Request.Context(), s.effectiveTenantID(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "project.archive", "project", resp.ID, nil)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
