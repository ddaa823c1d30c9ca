package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/internal/auth"
	"github.com/labstack/echo/v4"
)

// SignupRequest is the request payload for an account request.
type SignupRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	FullName   string `json:"fullName" validate:"required,max=100"`
	EmployeeID string `json:"employeeId" validate:"omitempty,max=50"`
	Password   string `json:"password" validate:"required,max=128"`
}

// handleSignup registers a pending profile. The account cannot sign in
// until a manager approves it.
func (s *Server) handleSignup(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		return railinspect.ErrorWithFields(map[string]string{"password": err.Error()})
	}

	profile := &railinspect.Profile{
		Email:      strings.TrimSpace(req.Email),
		FullName:   strings.TrimSpace(req.FullName),
		EmployeeID: strings.TrimSpace(req.EmployeeID),
		Role:       railinspect.RoleInspector,
	}
	if err := s.profileService.CreateProfile(ctx, profile, req.Password); err != nil {
		return err
	}

	s.log(c).Info("signup requested",
		slog.String("profile_id", profile.ID.String()),
		slog.String("email", profile.Email))

	return RespondCreated(c, profile)
}

// LoginRequest is the request payload for sign-in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse is returned on successful sign-in. The token is also set
// as the session cookie; API clients may send it as a bearer token.
type LoginResponse struct {
	Profile   *railinspect.Profile `json:"profile"`
	Token     string               `json:"token"`
	ExpiresAt string               `json:"expiresAt"`
}

func (s *Server) handleLogin(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := s.profileService.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	session, err := s.sessionService.CreateSession(ctx, profile.ID, s.SessionDuration)
	if err != nil {
		s.log(c).Error("failed to create session", slog.String("error", err.Error()))
		return railinspect.Internal("Login failed", err)
	}

	if err := s.profileService.UpdateLastLogin(ctx, profile.ID); err != nil {
		s.log(c).Warn("failed to record last login", slog.String("error", err.Error()))
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SessionSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
	})

	s.log(c).Info("profile logged in", slog.String("profile_id", profile.ID.String()))

	return RespondOK(c, LoginResponse{
		Profile:   profile,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleLogout(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	token := sessionToken(c)
	if token == "" {
		return railinspect.Invalid("Not logged in")
	}

	if err := s.sessionService.DeleteSession(ctx, token); err != nil {
		s.log(c).Error("failed to delete session", slog.String("error", err.Error()))
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SessionSecure,
		MaxAge:   -1,
	})

	s.log(c).Info("profile logged out")

	return RespondMessage(c, "Logged out")
}

func (s *Server) handleMe(c echo.Context) error {
	profile, err := requireProfile(c)
	if err != nil {
		return err
	}
	return RespondOK(c, profile)
}
