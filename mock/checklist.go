package mock

import (
	"context"

	"github.com/dukerupert/railinspect"
)

// Compile-time interface check
var _ railinspect.ChecklistService = (*ChecklistService)(nil)

// ChecklistService is a mock implementation of railinspect.ChecklistService.
// Without Fn overrides it serves a deep copy of Sections.
type ChecklistService struct {
	FindSectionsFn    func(ctx context.Context) ([]*railinspect.Section, error)
	FindActivityIDsFn func(ctx context.Context) ([]string, error)

	Sections []*railinspect.Section
}

func (s *ChecklistService) FindSections(ctx context.Context) ([]*railinspect.Section, error) {
	if s.FindSectionsFn != nil {
		return s.FindSectionsFn(ctx)
	}
	c := &railinspect.Checklist{Sections: s.Sections}
	return c.Clone().Sections, nil
}

func (s *ChecklistService) FindActivityIDs(ctx context.Context) ([]string, error) {
	if s.FindActivityIDsFn != nil {
		return s.FindActivityIDsFn(ctx)
	}
	c := &railinspect.Checklist{Sections: s.Sections}
	return c.ActivityIDs(), nil
}
