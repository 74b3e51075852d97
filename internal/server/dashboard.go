package server

import (
	"net/http"

	dashboarddomain "github.com/blicktrack/platform/internal/dashboard/domain"
	"github.com/gin-gonic/gin"
)

// dashboardSubject builds the caller's view scope from the principal.
// The tenant is the effective one, so platform roles can drill into a
// specific tenant via header or query.
func (s *Server) dashboardSubject(c *gin.Context) (dashboarddomain.Subject, bool) {
	principal, ok := principalFrom(c)
	if !ok {
		return dashboarddomain.Subject{}, false
	}
	subject := dashboarddomain.Subject{
		TenantID: s.effectiveTenantID(c),
		Email:    principal.Email,
		Role:     principal.Role,
	}
	if principal.UserID != 0 {
		subject.UserID = principal.UserID.String()
	}
	return subject, true
}

func (s *Server) GetDashboardSummary(c *gin.Context) {
	subject, ok := s.dashboardSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summary, err := s.dashboardSvc.Summary(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetDashboardStats(c *gin.Context) {
	subject, ok := s.dashboardSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	stats, err := s.dashboardSvc.Stats(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) GetDashboardActivity(c *gin.Context) {
	subject, ok := s.dashboardSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	activity, err := s.dashboardSvc.Activity(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": activity})
}

func (s *Server) GetDashboardProjects(c *gin.Context) {
	subject, ok := s.dashboardSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projects, err := s.dashboardSvc.Projects(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": projects})
}

func (s *Server) GetSystemHealth(c *gin.Context) {
	subject, ok := s.dashboardSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	health, err := s.dashboardSvc.SystemHealth(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": health})
}

func (s *Server) GetNavigation(c *gin.Context) {
	subject, ok := s.dashboardSubject(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	navigation, err := s.dashboardSvc.Navigation(c.Request.Context(), subject)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": navigation})
}
