package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the body of the readiness check.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "ok"})
}

func (s *Server) handleLivenessCheck(c echo.Context) error {
	return RespondOK(c, map[string]string{"status": "alive"})
}

// handleReadinessCheck reports 503 when the database is unreachable. A
// checklist served from the fallback marks the service degraded but ready,
// since inspectors can keep working locally.
func (s *Server) handleReadinessCheck(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	resp := HealthResponse{Status: "ready", Checks: map[string]string{}}
	code := http.StatusOK

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			s.log(c).Error("database health check failed", slog.String("error", err.Error()))
			resp.Checks["database"] = "unreachable"
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	if s.loader != nil {
		checklist, err := s.loader.Load(ctx)
		switch {
		case err != nil:
			resp.Checks["checklist"] = "unknown"
		case checklist.Degraded:
			resp.Checks["checklist"] = "fallback"
			if code == http.StatusOK {
				resp.Status = "degraded"
			}
		default:
			resp.Checks["checklist"] = "ok"
		}
	}

	if s.queue != nil {
		resp.Checks["queue"] = "ok"
	} else {
		resp.Checks["queue"] = "disabled"
	}

	return c.JSON(code, resp)
}
