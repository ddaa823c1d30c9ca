package http

import (
	"log/slog"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/email"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// profileSessionInvalidator is implemented by session services that cache
// profiles, so a decision takes effect on the next request.
type profileSessionInvalidator interface {
	InvalidateProfile(profileID uuid.UUID)
}

func (s *Server) handleListProfiles(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	offset, limit, err := pagination(c)
	if err != nil {
		return err
	}

	filter := railinspect.ProfileFilter{Offset: offset, Limit: limit}
	if v := c.QueryParam("status"); v != "" {
		status := railinspect.ProfileStatus(v)
		if !status.IsValid() {
			return railinspect.Invalid("Unknown profile status %q", v)
		}
		filter.Status = &status
	}
	if v := c.QueryParam("role"); v != "" {
		role := railinspect.Role(v)
		if !role.IsValid() {
			return railinspect.Invalid("Unknown role %q", v)
		}
		filter.Role = &role
	}

	profiles, total, err := s.profileService.FindProfiles(ctx, filter)
	if err != nil {
		return err
	}
	return RespondList(c, profiles, total, offset, limit)
}

// ReviewProfileRequest carries the reason shown to the applicant.
type ReviewProfileRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (s *Server) handleApproveProfile(c echo.Context) error {
	return s.reviewProfile(c, railinspect.ProfileStatusApproved)
}

func (s *Server) handleRejectProfile(c echo.Context) error {
	return s.reviewProfile(c, railinspect.ProfileStatusRejected)
}

// reviewProfile records a signup decision and queues the notification
// email. A queueing failure is logged; the decision stands.
func (s *Server) reviewProfile(c echo.Context, status railinspect.ProfileStatus) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := requireUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ReviewProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if status == railinspect.ProfileStatusRejected && req.Reason == "" {
		return railinspect.ErrorWithFields(map[string]string{"reason": "A reason is required when rejecting"})
	}

	profile, err := s.profileService.ReviewProfile(ctx, id, status, req.Reason)
	if err != nil {
		return err
	}

	s.audit.Record(c, railinspect.AuditProfileReviewed, railinspect.AuditResourceProfile, profile.ID, map[string]any{
		"status": string(status),
		"reason": req.Reason,
	})

	if inv, ok := s.sessionService.(profileSessionInvalidator); ok {
		inv.InvalidateProfile(profile.ID)
	}

	if s.queue != nil {
		if _, err := email.EnqueueSignupDecision(ctx, s.queue, profile.ID); err != nil {
			s.log(c).Error("failed to queue signup decision email",
				slog.String("profile_id", profile.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	s.log(c).Info("signup reviewed",
		slog.String("profile_id", profile.ID.String()),
		slog.String("status", string(status)),
		slog.String("reviewer_id", railinspect.ProfileIDFromContext(ctx).String()))

	return RespondOK(c, profile)
}
