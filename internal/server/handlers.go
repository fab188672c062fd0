package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifuryst/pagemill/internal/models"
	"github.com/ifuryst/pagemill/internal/service"
)

// writeError maps service errors onto HTTP responses.
func (s *Server) writeError(c *gin.Context, msg string, err error) {
	var resolution *service.ResolutionError
	var validation *service.ValidationError
	switch {
	case errors.As(err, &resolution):
		c.JSON(http.StatusBadRequest, gin.H{"error": resolution.Error(), "unresolved": resolution})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.Is(err, service.ErrInvalidScope), errors.Is(err, service.ErrInvalidSelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrPageNotFound),
		errors.Is(err, service.ErrErrorLogNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.Logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.AuthService == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Authentication disabled"})
		return
	}

	var req struct {
		Email string `json:"email"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	token, expires, err := s.AuthService.Login(req.Email, req.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	maxAge := int(time.Until(expires).Seconds())
	c.SetCookie(service.SessionCookie, token, maxAge, "/", "", s.Config.Server.CertFile != "", true)
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires})
}

func (s *Server) handleLogout(c *gin.Context) {
	if s.AuthService != nil {
		if token, err := c.Cookie(service.SessionCookie); err == nil {
			s.AuthService.Logout(token)
		}
	}
	c.SetCookie(service.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) handleListLocations(c *gin.Context) {
	locations, err := s.Services.Catalog.ListLocations(c.Request.Context(), queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		s.writeError(c, "Failed to list locations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

func (s *Server) handleUpsertLocations(c *gin.Context) {
	var req struct {
		Locations []models.Location `json:"locations" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locations is required"})
		return
	}

	locations, err := s.Services.Catalog.UpsertLocations(c.Request.Context(), req.Locations)
	if err != nil {
		s.writeError(c, "Failed to save locations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

func (s *Server) handleListServices(c *gin.Context) {
	services, err := s.Services.Catalog.ListServices(c.Request.Context())
	if err != nil {
		s.writeError(c, "Failed to list services", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (s *Server) handleUpsertServices(c *gin.Context) {
	var req struct {
		Services []models.Service `json:"services" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "services is required"})
		return
	}

	services, err := s.Services.Catalog.UpsertServices(c.Request.Context(), req.Services)
	if err != nil {
		s.writeError(c, "Failed to save services", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (s *Server) handlePreview(c *gin.Context) {
	var req struct {
		Location models.Location `json:"location"`
		Service  models.Service  `json:"service"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preview request"})
		return
	}

	result, err := s.Services.Pages.Preview(req.Location, req.Service)
	if err != nil {
		s.writeError(c, "Failed to preview page", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"content":       result.Content,
		"seo":           result.SEO,
		"canonicalPath": result.CanonicalPath,
		"seed":          result.Seed,
	})
}

func (s *Server) handleSubmitGeneration(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	sel, err := service.ParseSelection(body, s.Config.Generation.MaxPagesLimit)
	if err != nil {
		s.writeError(c, "Invalid selection", err)
		return
	}

	job, err := s.Services.Generation.Submit(c.Request.Context(), sel)
	if err != nil {
		s.writeError(c, "Failed to submit generation job", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "total": job.Total})
}

func (s *Server) handleListGenerations(c *gin.Context) {
	jobs, err := s.Services.Generation.List(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		s.writeError(c, "Failed to list generation jobs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetGeneration(c *gin.Context) {
	job, err := s.Services.Generation.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Failed to get generation job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleCancelGeneration(c *gin.Context) {
	job, err := s.Services.Generation.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Failed to cancel generation job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleSubmitScan(c *gin.Context) {
	var in models.ScanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scan request"})
		return
	}

	job, err := s.Services.Scan.Submit(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, "Failed to submit health scan", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "input": job.Input})
}

func (s *Server) handleListScans(c *gin.Context) {
	jobs, err := s.Services.Scan.List(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		s.writeError(c, "Failed to list scan jobs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleGetScan(c *gin.Context) {
	job, err := s.Services.Scan.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Failed to get scan job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleListPages(c *gin.Context) {
	pages, next, err := s.Services.Pages.List(c.Request.Context(), service.PageFilter{
		Status:       c.Query("status"),
		HealthStatus: c.Query("healthStatus"),
		ServiceKey:   c.Query("serviceKey"),
		Zip:          c.Query("zip"),
		Cursor:       c.Query("cursor"),
		Limit:        queryInt(c, "limit", 50),
	})
	if err != nil {
		s.writeError(c, "Failed to list pages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages, "nextCursor": next})
}

func (s *Server) handleGetPage(c *gin.Context) {
	page, err := s.Services.Pages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Failed to get page", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleRegeneratePage(c *gin.Context) {
	page, err := s.Services.Pages.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, "Failed to regenerate page", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleDashboard(c *gin.Context) {
	summary, err := s.Services.Monitoring.GetDashboardSummary(c.Request.Context())
	if err != nil {
		s.writeError(c, "Failed to get dashboard summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleListErrors(c *gin.Context) {
	logs, err := s.Services.Monitoring.GetRecentErrors(c.Request.Context(), queryInt(c, "limit", 50), c.Query("unresolved") == "true")
	if err != nil {
		s.writeError(c, "Failed to list errors", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": logs})
}

func (s *Server) handleResolveError(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid error log id"})
		return
	}
	if err := s.Services.Monitoring.ResolveError(c.Request.Context(), uint(id)); err != nil {
		s.writeError(c, "Failed to resolve error", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "resolved": true})
}
