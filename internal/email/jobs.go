package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// SignupDecisionPayload is the payload of a signup decision email job.
type SignupDecisionPayload struct {
	ProfileID uuid.UUID `json:"profileId"`
}

// EnqueueSignupDecision schedules the decision email for a reviewed profile.
func EnqueueSignupDecision(ctx context.Context, queue railinspect.Queue, profileID uuid.UUID) (*railinspect.Job, error) {
	payload, err := json.Marshal(SignupDecisionPayload{ProfileID: profileID})
	if err != nil {
		return nil, railinspect.Internal("Failed to encode job payload", err)
	}
	job := &railinspect.Job{
		QueueName: railinspect.QueueCritical,
		JobType:   railinspect.JobTypeSignupDecision,
		Payload:   payload,
	}
	if err := queue.Enqueue(ctx, job, railinspect.WithMaxAttempts(5), railinspect.WithPriority(10)); err != nil {
		return nil, err
	}
	return job, nil
}

// SignupDecisionHandler sends the approval or rejection email of a profile.
// The decision is read from the profile when the job runs, so a retried job
// always reports the stored outcome.
type SignupDecisionHandler struct {
	profiles railinspect.ProfileService
	email    railinspect.EmailService
	logger   *slog.Logger
}

// NewSignupDecisionHandler creates the handler.
func NewSignupDecisionHandler(profiles railinspect.ProfileService, email railinspect.EmailService, logger *slog.Logger) *SignupDecisionHandler {
	return &SignupDecisionHandler{profiles: profiles, email: email, logger: logger}
}

// Handle implements railinspect.JobHandler.
func (h *SignupDecisionHandler) Handle(ctx context.Context, job *railinspect.Job) error {
	var payload SignupDecisionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode signup decision payload: %w", err)
	}

	profile, err := h.profiles.FindProfileByID(ctx, payload.ProfileID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile.Status == railinspect.ProfileStatusPending {
		h.logger.WarnContext(ctx, "signup decision job for undecided profile, skipping",
			slog.String("profile_id", profile.ID.String()))
		return nil
	}

	approved := profile.Status == railinspect.ProfileStatusApproved
	if err := h.email.SendSignupDecision(ctx, profile.Email, profile.FullName, approved, profile.StatusReason); err != nil {
		return fmt.Errorf("send signup decision: %w", err)
	}
	return nil
}
