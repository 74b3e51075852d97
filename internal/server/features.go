package server

import (
	"net/http"
	"strings"

	featuredomain "github.com/blicktrack/platform/internal/feature/domain"
	"github.com/gin-gonic/gin"
)

type createFeatureRequest struct {
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	Description    *string        `json:"description"`
	Category       string         `json:"category"`
	DefaultEnabled *bool          `json:"default_enabled"`
	DefaultConfig  map[string]any `json:"default_config"`
}

type updateFeatureRequest struct {
	Name           *string        `json:"name,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Category       *string        `json:"category,omitempty"`
	DefaultEnabled *bool          `json:"default_enabled,omitempty"`
	DefaultConfig  map[string]any `json:"default_config,omitempty"`
}

func (s *Server) CreateFeature(c *gin.Context) {
	var req createFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.featureSvc.Create(c.Request.Context(), featuredomain.CreateRequest{
		Key:            strings.TrimSpace(req.Key),
		Name:           strings.TrimSpace(req.Name),
		Description:    trimOptionalString(req.Description),
		Category:       strings.TrimSpace(req.Category),
		DefaultEnabled: req.DefaultEnabled,
		DefaultConfig:  req.DefaultConfig,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "feature.create", "feature", resp.ID, map[string]any{
		"key":      resp.Key,
		"category": resp.Category,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListFeatures(c *gin.Context) {
	var query struct {
		Key            string `form:"key"`
		Category       string `form:"category"`
		DefaultEnabled string `form:"default_enabled"`
		Active         string `form:"active"`
		SortBy         string `form:"sort_by"`
		OrderBy        string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	defaultEnabled, err := parseOptionalBool(query.DefaultEnabled)
	if err != nil {
		AbortWithError(c, newValidationError("default_enabled", "invalid_default_enabled", "invalid default enabled"))
		return
	}
	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.featureSvc.List(c.Request.Context(), featuredomain.ListRequest{
		Key:            strings.TrimSpace(query.Key),
		Category:       strings.TrimSpace(query.Category),
		DefaultEnabled: defaultEnabled,
		Active:         active,
		SortBy:         strings.TrimSpace(query.SortBy),
		OrderBy:        strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFeatureByKey(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))

	resp, err := s.featureSvc.GetByKey(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFeature(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))

	var req updateFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	current, err := s.featureSvc.GetByKey(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.featureSvc.Update(c.Request.Context(), featuredomain.UpdateRequest{
		ID:             current.ID,
		Name:           trimOptionalString(req.Name),
		Description:    trimOptionalString(req.Description),
		Category:       trimOptionalString(req.Category),
		DefaultEnabled: req.DefaultEnabled,
		DefaultConfig:  req.DefaultConfig,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "feature.update", "feature", resp.ID, map[string]any{
		"key": resp.Key,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ArchiveFeature(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))

	current, err := s.featureSvc.GetByKey(c.Request.Context(), key)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.featureSvc.Archive(c.Request.Context(), current.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "feature.archive", "feature", resp.ID, map[string]any{
		"key": resp.Key,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func trimOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
