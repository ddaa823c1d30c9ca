// Package email implements railinspect.EmailService with Postmark and a
// logging provider for development.
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/dukerupert/railinspect"
	"github.com/keighl/postmark"
)

// NewEmailService creates an email service based on the provider configuration
func NewEmailService(logger *slog.Logger, cfg railinspect.EmailConfig) railinspect.EmailService {
	switch cfg.Provider {
	case "postmark":
		return newPostmarkEmailService(logger, cfg)
	default:
		return newLogEmailService(logger, cfg)
	}
}

// signupDecisionEmail builds the message sent when a manager reviews a signup.
func signupDecisionEmail(cfg railinspect.EmailConfig, to, name string, approved bool, reason string) railinspect.Email {
	if name == "" {
		name = to
	}
	msg := railinspect.Email{To: []string{to}}
	if approved {
		msg.Subject = "Your inspector account has been approved"
		msg.TextBody = fmt.Sprintf("Hello %s,\n\nYour account has been approved. You can sign in at %s\n", name, cfg.LoginURL)
		msg.HTMLBody = fmt.Sprintf(`
			<h2>Account approved</h2>
			<p>Hello %s,</p>
			<p>Your account has been approved. You can now sign in and start trip reports.</p>
			<p><a href="%s">Sign in</a></p>
		`, html.EscapeString(name), html.EscapeString(cfg.LoginURL))
		return msg
	}

	msg.Subject = "Your inspector account request was declined"
	text := fmt.Sprintf("Hello %s,\n\nYour account request was declined.", name)
	body := fmt.Sprintf(`
			<h2>Account request declined</h2>
			<p>Hello %s,</p>
			<p>Your account request was declined.</p>`, html.EscapeString(name))
	if reason != "" {
		text += "\nReason: " + reason
		body += fmt.Sprintf("\n\t\t\t<p>Reason: %s</p>", html.EscapeString(reason))
	}
	msg.TextBody = text + "\n"
	msg.HTMLBody = body + "\n\t\t"
	return msg
}

// reportLinkEmail builds the message that shares a generated trip report.
func reportLinkEmail(to []string, subject, reportURL string) railinspect.Email {
	return railinspect.Email{
		To:       to,
		Subject:  subject,
		TextBody: fmt.Sprintf("A trip report is ready: %s\n", reportURL),
		HTMLBody: fmt.Sprintf(`
			<h2>%s</h2>
			<p>A trip report is ready.</p>
			<p><a href="%s">Open report</a></p>
		`, html.EscapeString(subject), html.EscapeString(reportURL)),
	}
}

// logEmailService logs emails instead of sending them
type logEmailService struct {
	logger *slog.Logger
	config railinspect.EmailConfig
}

func newLogEmailService(logger *slog.Logger, cfg railinspect.EmailConfig) *logEmailService {
	return &logEmailService{
		logger: logger,
		config: cfg,
	}
}

// SendSignupDecision logs the decision email instead of sending it
func (s *logEmailService) SendSignupDecision(ctx context.Context, to, name string, approved bool, reason string) error {
	msg := signupDecisionEmail(s.config, to, name, approved, reason)
	s.logger.InfoContext(ctx, "MOCK EMAIL: Signup decision",
		slog.String("to", to),
		slog.String("subject", msg.Subject),
		slog.Bool("approved", approved),
	)
	return nil
}

// SendReportLink logs the report email instead of sending it
func (s *logEmailService) SendReportLink(ctx context.Context, to []string, subject string, reportURL string) error {
	s.logger.InfoContext(ctx, "MOCK EMAIL: Trip report",
		slog.Any("to", to),
		slog.String("subject", subject),
		slog.String("report_url", reportURL),
	)
	return nil
}

// postmarkEmailService sends emails via Postmark
type postmarkEmailService struct {
	client *postmark.Client
	logger *slog.Logger
	config railinspect.EmailConfig
}

func newPostmarkEmailService(logger *slog.Logger, cfg railinspect.EmailConfig) *postmarkEmailService {
	return &postmarkEmailService{
		client: postmark.NewClient(cfg.PostmarkServerToken, ""),
		logger: logger,
		config: cfg,
	}
}

func (s *postmarkEmailService) send(ctx context.Context, msg railinspect.Email, tag string) error {
	_, err := s.client.SendEmail(postmark.Email{
		From:       fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:         strings.Join(msg.To, ","),
		Subject:    msg.Subject,
		TextBody:   msg.TextBody,
		HtmlBody:   msg.HTMLBody,
		Tag:        tag,
		TrackOpens: true,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send email via Postmark",
			slog.String("tag", tag),
			slog.Any("to", msg.To),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send %s email: %w", tag, err)
	}

	s.logger.InfoContext(ctx, "email sent via Postmark",
		slog.String("tag", tag),
		slog.Any("to", msg.To),
	)
	return nil
}

// SendSignupDecision sends the signup decision via Postmark
func (s *postmarkEmailService) SendSignupDecision(ctx context.Context, to, name string, approved bool, reason string) error {
	return s.send(ctx, signupDecisionEmail(s.config, to, name, approved, reason), "signup-decision")
}

// SendReportLink sends a generated trip report link via Postmark
func (s *postmarkEmailService) SendReportLink(ctx context.Context, to []string, subject string, reportURL string) error {
	if len(to) == 0 {
		return nil
	}
	return s.send(ctx, reportLinkEmail(to, subject, reportURL), "trip-report")
}
