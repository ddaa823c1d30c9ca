package http

import (
	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes sets up all routes for the server.
// All routes are defined in this single file for easy navigation.
func (s *Server) registerRoutes() {
	// Health check routes (public)
	s.echo.GET("/health", s.handleHealthCheck)
	s.echo.GET("/health/live", s.handleLivenessCheck)
	s.echo.GET("/health/ready", s.handleReadinessCheck)
	s.echo.GET(middleware.MetricsPath, echo.WrapHandler(promhttp.Handler()))

	// Public auth routes, rate limited per client address
	auth := s.echo.Group("/api/auth")
	authLimit := s.authLimiter.Middleware(middleware.KeyByIP)
	auth.POST("/signup", s.handleSignup, authLimit)
	auth.POST("/login", s.handleLogin, authLimit)

	// Protected routes (require an approved profile)
	protected := s.echo.Group("/api")
	protected.Use(s.RequireAuth())
	protected.Use(s.apiLimiter.Middleware(middleware.KeyByProfile))

	protected.POST("/auth/logout", s.handleLogout)
	protected.GET("/auth/me", s.handleMe)

	// Signup approval
	managers := s.RequireRole(railinspect.RoleManager, railinspect.RoleAdmin)
	protected.GET("/profiles", s.handleListProfiles, managers)
	protected.POST("/profiles/:id/approve", s.handleApproveProfile, managers)
	protected.POST("/profiles/:id/reject", s.handleRejectProfile, managers)

	// Checklist
	protected.GET("/checklist", s.handleGetChecklist)

	// Trip reports
	protected.POST("/reports", s.handleCreateReport)
	protected.GET("/reports", s.handleListReports)
	protected.GET("/reports/:id", s.handleGetReport)
	protected.PATCH("/reports/:id", s.handleUpdateReport)
	protected.DELETE("/reports/:id", s.handleDeleteReport)

	// Inspection editing
	protected.GET("/reports/:id/checklist", s.handleGetReportChecklist)
	protected.POST("/reports/:id/reconcile", s.handleReconcileReport)
	protected.PUT("/reports/:id/activities/:activityId/status", s.handleSetCheckStatus)
	protected.PUT("/reports/:id/activities/:activityId/remarks", s.handleSetRemarks)

	// Submission and review
	protected.POST("/reports/:id/submit", s.handleSubmitReport)
	protected.POST("/reports/:id/submit-form", s.handleSubmitForm)
	protected.POST("/reports/:id/review", s.handleReviewReport, managers)
	protected.GET("/reports/:id/audit", s.handleReportAudit, managers)

	// Export
	protected.GET("/reports/:id/html", s.handleRenderReport)
	protected.POST("/reports/:id/pdf", s.handleGeneratePDF)
	protected.GET("/reports/:id/document", s.handleGetDocument)
	protected.GET("/jobs/:jobId", s.handleGetJob)
	protected.DELETE("/jobs/:jobId", s.handleCancelJob)
}
