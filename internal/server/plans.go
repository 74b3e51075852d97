package server

import (
	"net/http"
	"strings"

	plandomain "github.com/blicktrack/platform/internal/plan/domain"
	"github.com/gin-gonic/gin"
)

type createPlanRequest struct {
	Tier        string `json:"tier"`
	MaxUsers    int    `json:"max_users"`
	MaxProjects int    `json:"max_projects"`
}

type replacePlanFeaturesRequest struct {
	FeatureIDs []string `json:"feature_ids"`
}

type setPlanFeatureEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) ListPlans(c *gin.Context) {
	var query struct {
		Tier   string `form:"tier"`
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.planSvc.List(c.Request.Context(), plandomain.ListRequest{
		Tier:   strings.TrimSpace(query.Tier),
		Active: active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Create(c.Request.Context(), plandomain.CreateRequest{
		Tier:        strings.TrimSpace(req.Tier),
		MaxUsers:    req.MaxUsers,
		MaxProjects: req.MaxProjects,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "plan.create", "plan", resp.ID, map[string]any{
		"tier": resp.Tier,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPlanByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.planSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlanFeatures(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	grants, err := s.planSvc.ListFeatures(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": grants})
}

func (s *Server) ReplacePlanFeatures(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req replacePlanFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	grants, err := s.planSvc.ReplaceFeatures(c.Request.Context(), plandomain.ReplaceFeaturesRequest{
		PlanID:     id,
		FeatureIDs: req.FeatureIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "plan.features.replace", "plan", id, map[string]any{
		"feature_ids": req.FeatureIDs,
	})

	c.JSON(http.StatusOK, gin.H{"data": grants})
}

func (s *Server) SetPlanFeatureEnabled(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	key := strings.TrimSpace(c.Param("key"))

	var req setPlanFeatureEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.planSvc.SetFeatureEnabled(c.Request.Context(), plandomain.SetFeatureEnabledRequest{
		PlanID:     id,
		FeatureKey: key,
		Enabled:    *req.Enabled,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "plan.feature.toggle", "plan", id, map[string]any{
		"feature_key": key,
		"enabled":     *req.Enabled,
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"plan_id": id, "feature_key": key, "enabled": *req.Enabled}})
}
