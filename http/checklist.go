package http

import (
	"github.com/dukerupert/railinspect"
	"github.com/labstack/echo/v4"
)

// ChecklistResponse is the master checklist. Message is set when the tree
// is the built-in fallback.
type ChecklistResponse struct {
	Sections []*railinspect.Section `json:"sections"`
	Degraded bool                   `json:"degraded"`
	Message  string                 `json:"message,omitempty"`
}

const degradedChecklistMessage = "Checklist store is unavailable. Showing the offline checklist; results will not be saved."

func (s *Server) handleGetChecklist(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	checklist, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}

	resp := ChecklistResponse{Sections: checklist.Sections, Degraded: checklist.Degraded}
	if checklist.Degraded {
		resp.Message = degradedChecklistMessage
	}
	return RespondOK(c, resp)
}
