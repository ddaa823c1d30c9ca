package mock

import (
	"context"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time interface check
var _ railinspect.ProfileService = (*ProfileService)(nil)

// ProfileService is a mock implementation of railinspect.ProfileService.
type ProfileService struct {
	FindProfileByIDFn    func(ctx context.Context, id uuid.UUID) (*railinspect.Profile, error)
	FindProfileByEmailFn func(ctx context.Context, email string) (*railinspect.Profile, error)
	FindProfilesFn       func(ctx context.Context, filter railinspect.ProfileFilter) ([]*railinspect.Profile, int, error)
	CreateProfileFn      func(ctx context.Context, profile *railinspect.Profile, password string) error
	VerifyPasswordFn     func(ctx context.Context, email, password string) (*railinspect.Profile, error)
	ReviewProfileFn      func(ctx context.Context, id uuid.UUID, status railinspect.ProfileStatus, reason string) (*railinspect.Profile, error)
	UpdateLastLoginFn    func(ctx context.Context, id uuid.UUID) error
}

func (s *ProfileService) FindProfileByID(ctx context.Context, id uuid.UUID) (*railinspect.Profile, error) {
	if s.FindProfileByIDFn != nil {
		return s.FindProfileByIDFn(ctx, id)
	}
	return nil, railinspect.NotFound("Profile not found")
}

func (s *ProfileService) FindProfileByEmail(ctx context.Context, email string) (*railinspect.Profile, error) {
	if s.FindProfileByEmailFn != nil {
		return s.FindProfileByEmailFn(ctx, email)
	}
	return nil, railinspect.NotFound("Profile not found")
}

func (s *ProfileService) FindProfiles(ctx context.Context, filter railinspect.ProfileFilter) ([]*railinspect.Profile, int, error) {
	if s.FindProfilesFn != nil {
		return s.FindProfilesFn(ctx, filter)
	}
	return nil, 0, nil
}

func (s *ProfileService) CreateProfile(ctx context.Context, profile *railinspect.Profile, password string) error {
	if s.CreateProfileFn != nil {
		return s.CreateProfileFn(ctx, profile, password)
	}
	profile.ID = uuid.New()
	profile.Status = railinspect.ProfileStatusPending
	if profile.Role == "" {
		profile.Role = railinspect.RoleInspector
	}
	return nil
}

func (s *ProfileService) VerifyPassword(ctx context.Context, email, password string) (*railinspect.Profile, error) {
	if s.VerifyPasswordFn != nil {
		return s.VerifyPasswordFn(ctx, email, password)
	}
	return nil, railinspect.Unauthorized("Invalid email or password")
}

func (s *ProfileService) ReviewProfile(ctx context.Context, id uuid.UUID, status railinspect.ProfileStatus, reason string) (*railinspect.Profile, error) {
	if s.ReviewProfileFn != nil {
		return s.ReviewProfileFn(ctx, id, status, reason)
	}
	return nil, railinspect.NotFound("Profile not found")
}

func (s *ProfileService) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	if s.UpdateLastLoginFn != nil {
		return s.UpdateLastLoginFn(ctx, id)
	}
	return nil
}
