package railinspect

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Profile represents a registered inspector, manager or administrator.
type Profile struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	FullName     string        `json:"fullName"`
	EmployeeID   string        `json:"employeeId,omitempty"`
	Role         Role          `json:"role"`
	Status       ProfileStatus `json:"status"`
	StatusReason string        `json:"statusReason,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	ApprovedAt   *time.Time    `json:"approvedAt,omitempty"`
	LastLoginAt  *time.Time    `json:"lastLoginAt,omitempty"`
}

// Role is the access role of a profile.
type Role string

const (
	RoleInspector Role = "inspector"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
)

// IsValid returns true if the role is recognized.
func (r Role) IsValid() bool {
	switch r {
	case RoleInspector, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanReview returns true if the role may approve reports and signups.
func (r Role) CanReview() bool {
	return r == RoleManager || r == RoleAdmin
}

// ProfileStatus is the signup approval state of a profile.
type ProfileStatus string

const (
	ProfileStatusPending  ProfileStatus = "pending"
	ProfileStatusApproved ProfileStatus = "approved"
	ProfileStatusRejected ProfileStatus = "rejected"
)

// IsValid returns true if the status is recognized.
func (s ProfileStatus) IsValid() bool {
	switch s {
	case ProfileStatusPending, ProfileStatusApproved, ProfileStatusRejected:
		return true
	}
	return false
}

// IsApproved returns true if the profile may sign in.
func (p *Profile) IsApproved() bool {
	return p.Status == ProfileStatusApproved
}

// CanEditReport reports whether p may change report: its own inspector or
// an admin.
func (p *Profile) CanEditReport(report *TripReport) bool {
	return p.ID == report.InspectorID || p.Role == RoleAdmin
}

// DisplayName returns the name shown on reports.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// ProfileService defines operations for managing profiles and signups.
type ProfileService interface {
	// FindProfileByID retrieves a profile by its ID.
	// Returns ENOTFOUND if the profile does not exist.
	FindProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error)

	// FindProfileByEmail retrieves a profile by email address.
	// Returns ENOTFOUND if the profile does not exist.
	FindProfileByEmail(ctx context.Context, email string) (*Profile, error)

	// FindProfiles retrieves profiles matching the filter and the total count.
	FindProfiles(ctx context.Context, filter ProfileFilter) ([]*Profile, int, error)

	// CreateProfile registers a new profile in pending status.
	// Returns ECONFLICT if the email is already registered.
	CreateProfile(ctx context.Context, profile *Profile, password string) error

	// VerifyPassword checks credentials and returns the profile.
	// Returns EUNAUTHORIZED for bad credentials and EFORBIDDEN when the
	// profile has not been approved.
	VerifyPassword(ctx context.Context, email, password string) (*Profile, error)

	// ReviewProfile moves a pending profile to approved or rejected.
	// Returns EINVALID if the profile is not pending or status is not a decision.
	ReviewProfile(ctx context.Context, id uuid.UUID, status ProfileStatus, reason string) (*Profile, error)

	// UpdateLastLogin records a successful sign-in.
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// ProfileFilter defines criteria for filtering profiles.
type ProfileFilter struct {
	Status *ProfileStatus
	Role   *Role

	// Pagination
	Offset int
	Limit  int
}
