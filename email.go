package railinspect

import "context"

// EmailService defines operations for sending emails.
type EmailService interface {
	// SendSignupDecision tells an applicant whether their signup was approved.
	SendSignupDecision(ctx context.Context, to, name string, approved bool, reason string) error

	// SendReportLink sends a generated trip report to recipients.
	SendReportLink(ctx context.Context, to []string, subject string, reportURL string) error
}

// EmailConfig holds configuration for email services.
type EmailConfig struct {
	// Provider is the email provider ("mock" or "postmark").
	Provider string

	// FromAddress is the sender email address.
	FromAddress string

	// FromName is the sender display name.
	FromName string

	// LoginURL is linked from signup decision emails.
	LoginURL string

	// Postmark-specific configuration
	PostmarkServerToken string
}

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}
