package postgres

import (
	"context"

	"github.com/dukerupert/railinspect"
	"github.com/jackc/pgx/v5"
)

// Compile-time check that ChecklistService implements railinspect.ChecklistService.
var _ railinspect.ChecklistService = (*ChecklistService)(nil)

// ChecklistService implements railinspect.ChecklistService using PostgreSQL.
type ChecklistService struct {
	db *DB
}

func (s *ChecklistService) FindSections(ctx context.Context) ([]*railinspect.Section, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT id::text AS id, section_number, name, description, display_order
		FROM inspection_sections
		WHERE is_active
		ORDER BY display_order`)
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch inspection sections")
	}
	sectionRows, err := decodeRows[sectionRow](s.db, rows, "inspection_sections")
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch inspection sections")
	}

	rows, err = s.db.pool.Query(ctx, `
		SELECT id::text AS id, section_id::text AS section_id, category_number, name,
			description, applicable_coach_types, display_order
		FROM inspection_categories
		WHERE is_active
		ORDER BY display_order`)
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch inspection categories")
	}
	categoryRows, err := decodeRows[categoryRow](s.db, rows, "inspection_categories")
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch inspection categories")
	}

	rows, err = s.db.pool.Query(ctx, `
		SELECT id::text AS id, category_id::text AS category_id, activity_number,
			activity_text, is_compulsory, display_order
		FROM inspection_activities
		WHERE is_active
		ORDER BY display_order`)
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch inspection activities")
	}
	activityRows, err := decodeRows[activityRow](s.db, rows, "inspection_activities")
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch inspection activities")
	}

	return assembleSections(sectionRows, categoryRows, activityRows), nil
}

// assembleSections nests categories and activities under their parents.
// Children whose parent is missing or inactive are dropped.
func assembleSections(sections []sectionRow, categories []categoryRow, activities []activityRow) []*railinspect.Section {
	out := make([]*railinspect.Section, 0, len(sections))
	sectionByID := make(map[string]*railinspect.Section, len(sections))
	for _, r := range sections {
		section := toDomainSection(r)
		sectionByID[r.ID] = section
		out = append(out, section)
	}

	categoryByID := make(map[string]*railinspect.Category, len(categories))
	for _, r := range categories {
		section, ok := sectionByID[r.SectionID]
		if !ok {
			continue
		}
		category := toDomainCategory(r)
		categoryByID[r.ID] = category
		section.Categories = append(section.Categories, category)
	}

	for _, r := range activities {
		category, ok := categoryByID[r.CategoryID]
		if !ok {
			continue
		}
		category.Activities = append(category.Activities, toDomainActivity(r))
	}

	return out
}

func (s *ChecklistService) FindActivityIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT a.id::text
		FROM inspection_activities a
		JOIN inspection_categories c ON c.id = a.category_id
		JOIN inspection_sections s ON s.id = c.section_id
		WHERE a.is_active AND c.is_active AND s.is_active
		ORDER BY a.id`)
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch activity ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapError(err, "", "Failed to fetch activity ids")
	}
	return ids, nil
}
