package mock

import (
	"context"
	"sync"

	"github.com/dukerupert/railinspect"
)

// Compile-time interface check
var _ railinspect.EmailService = (*EmailService)(nil)

// SentEmail records one call to the mock email service.
type SentEmail struct {
	To       []string
	Subject  string
	Approved bool
	Reason   string
	URL      string
}

// EmailService is a mock implementation of railinspect.EmailService.
type EmailService struct {
	SendSignupDecisionFn func(ctx context.Context, to, name string, approved bool, reason string) error
	SendReportLinkFn     func(ctx context.Context, to []string, subject string, reportURL string) error

	mu   sync.Mutex
	Sent []SentEmail
}

func (s *EmailService) SendSignupDecision(ctx context.Context, to, name string, approved bool, reason string) error {
	if s.SendSignupDecisionFn != nil {
		return s.SendSignupDecisionFn(ctx, to, name, approved, reason)
	}
	s.mu.Lock()
	s.Sent = append(s.Sent, SentEmail{To: []string{to}, Approved: approved, Reason: reason})
	s.mu.Unlock()
	return nil
}

func (s *EmailService) SendReportLink(ctx context.Context, to []string, subject string, reportURL string) error {
	if s.SendReportLinkFn != nil {
		return s.SendReportLinkFn(ctx, to, subject, reportURL)
	}
	s.mu.Lock()
	s.Sent = append(s.Sent, SentEmail{To: to, Subject: subject, URL: reportURL})
	s.mu.Unlock()
	return nil
}

// SentCount returns how many emails were recorded.
func (s *EmailService) SentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Sent)
}
