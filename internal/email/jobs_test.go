package email

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/mock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupDecisionHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	profile := &railinspect.Profile{
		ID:           uuid.New(),
		Email:        "asha@example.com",
		FullName:     "Asha",
		Status:       railinspect.ProfileStatusRejected,
		StatusReason: "Unknown employee id",
	}
	profiles := &mock.ProfileService{
		FindProfileByIDFn: func(ctx context.Context, id uuid.UUID) (*railinspect.Profile, error) {
			if id == profile.ID {
				return profile, nil
			}
			return nil, railinspect.NotFound("Profile not found")
		},
	}
	sender := &mock.EmailService{}
	h := NewSignupDecisionHandler(profiles, sender, logger)

	payload, err := json.Marshal(SignupDecisionPayload{ProfileID: profile.ID})
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), &railinspect.Job{Payload: payload}))
	require.Equal(t, 1, sender.SentCount())
	assert.False(t, sender.Sent[0].Approved)
	assert.Equal(t, "Unknown employee id", sender.Sent[0].Reason)

	t.Run("pending profile is skipped", func(t *testing.T) {
		profile.Status = railinspect.ProfileStatusPending
		require.NoError(t, h.Handle(context.Background(), &railinspect.Job{Payload: payload}))
		assert.Equal(t, 1, sender.SentCount())
	})

	t.Run("unknown profile fails", func(t *testing.T) {
		other, _ := json.Marshal(SignupDecisionPayload{ProfileID: uuid.New()})
		assert.Error(t, h.Handle(context.Background(), &railinspect.Job{Payload: other}))
	})
}
