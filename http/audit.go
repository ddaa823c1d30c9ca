package http

import (
	"io"
	"strconv"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/audit"
	"github.com/labstack/echo/v4"
)

const maxAuditEntries = 500

// handleReportAudit returns the audit trail of a report, including one that
// has since been deleted. ?format=csv downloads it as CSV.
func (s *Server) handleReportAudit(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if s.audit == nil {
		return railinspect.Unavailable("Audit log is not configured", nil)
	}
	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	limit := maxAuditEntries
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAuditEntries {
			return railinspect.Invalid("limit must be between 1 and %d", maxAuditEntries)
		}
		limit = n
	}

	entries, err := s.audit.Entries(ctx, railinspect.AuditResourceReport, id, limit)
	if err != nil {
		return err
	}

	if c.QueryParam("format") == "csv" {
		return RespondDownload(c, "text/csv; charset=utf-8", "report-"+id.String()+"-audit.csv", func(w io.Writer) error {
			return audit.WriteCSV(w, entries)
		})
	}

	if entries == nil {
		entries = []*railinspect.AuditEntry{}
	}
	return RespondOK(c, entries)
}
