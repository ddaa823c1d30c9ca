package railinspect

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
)

// LocalIDPrefix marks checklist identifiers that exist only in the
// degraded-mode fallback checklist and were never persisted.
const LocalIDPrefix = "local-"

// IsLocalID reports whether a checklist id belongs to the fallback checklist.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Section is the top level of the inspection checklist.
type Section struct {
	ID            string      `json:"id" yaml:"id"`
	SectionNumber string      `json:"sectionNumber" yaml:"number"`
	Name          string      `json:"name" yaml:"name"`
	Description   string      `json:"description,omitempty" yaml:"description"`
	DisplayOrder  int         `json:"displayOrder" yaml:"order"`
	Categories    []*Category `json:"categories" yaml:"categories"`
}

// Category groups activities within a section.
type Category struct {
	ID                   string      `json:"id" yaml:"id"`
	CategoryNumber       string      `json:"categoryNumber" yaml:"number"`
	Name                 string      `json:"name" yaml:"name"`
	Description          string      `json:"description,omitempty" yaml:"description"`
	ApplicableCoachTypes []string    `json:"applicableCoachTypes" yaml:"coach_types"`
	DisplayOrder         int         `json:"displayOrder" yaml:"order"`
	Activities           []*Activity `json:"activities" yaml:"activities"`
}

// AppliesTo reports whether the category applies to a coach type.
// An empty applicability list applies to every coach.
func (c *Category) AppliesTo(coachType string) bool {
	if coachType == "" || len(c.ApplicableCoachTypes) == 0 {
		return true
	}
	for _, t := range c.ApplicableCoachTypes {
		if strings.EqualFold(t, coachType) {
			return true
		}
	}
	return false
}

// Activity is a single checklist item definition.
type Activity struct {
	ID             string `json:"id" yaml:"id"`
	ActivityNumber string `json:"activityNumber" yaml:"number"`
	Text           string `json:"text" yaml:"text"`
	IsCompulsory   bool   `json:"isCompulsory" yaml:"compulsory"`
	DisplayOrder   int    `json:"displayOrder" yaml:"order"`

	// Result is the per-report outcome, attached when the checklist is
	// loaded for a specific report.
	Result *ActivityResult `json:"result,omitempty" yaml:"-"`
}

// Status returns the activity's check status, pending when no result exists.
func (a *Activity) Status() CheckStatus {
	if a.Result == nil {
		return CheckStatusPending
	}
	return a.Result.CheckStatus
}

// Checklist is a loaded checklist tree.
type Checklist struct {
	Sections []*Section `json:"sections"`

	// Degraded is set when the tree is the fallback checklist.
	Degraded bool `json:"degraded"`

	// Cause holds the reason the store could not be used, if Degraded.
	Cause error `json:"-"`
}

// ActivityIDs returns every activity id in tree order.
func (c *Checklist) ActivityIDs() []string {
	var ids []string
	c.EachActivity(func(_ *Section, _ *Category, a *Activity) {
		ids = append(ids, a.ID)
	})
	return ids
}

// EachActivity calls fn for every activity in tree order.
func (c *Checklist) EachActivity(fn func(s *Section, cat *Category, a *Activity)) {
	for _, s := range c.Sections {
		for _, cat := range s.Categories {
			for _, a := range cat.Activities {
				fn(s, cat, a)
			}
		}
	}
}

// FindActivity returns the activity with the given id, or nil.
func (c *Checklist) FindActivity(id string) *Activity {
	var found *Activity
	c.EachActivity(func(_ *Section, _ *Category, a *Activity) {
		if found == nil && a.ID == id {
			found = a
		}
	})
	return found
}

// Counts tallies check statuses across the tree.
func (c *Checklist) Counts() StatusCounts {
	var counts StatusCounts
	c.EachActivity(func(_ *Section, _ *Category, a *Activity) {
		counts.Add(a.Status())
	})
	return counts
}

// Clone returns a deep copy of the checklist, results included.
func (c *Checklist) Clone() *Checklist {
	out := &Checklist{Degraded: c.Degraded, Cause: c.Cause}
	out.Sections = make([]*Section, 0, len(c.Sections))
	for _, s := range c.Sections {
		sc := *s
		sc.Categories = make([]*Category, 0, len(s.Categories))
		for _, cat := range s.Categories {
			cc := *cat
			cc.ApplicableCoachTypes = slices.Clone(cat.ApplicableCoachTypes)
			cc.Activities = make([]*Activity, 0, len(cat.Activities))
			for _, a := range cat.Activities {
				ac := *a
				if a.Result != nil {
					r := *a.Result
					ac.Result = &r
				}
				cc.Activities = append(cc.Activities, &ac)
			}
			sc.Categories = append(sc.Categories, &cc)
		}
		out.Sections = append(out.Sections, &sc)
	}
	return out
}

// Prune removes categories without activities and then sections without
// categories. Dangling containers are never shown.
func Prune(sections []*Section) []*Section {
	out := make([]*Section, 0, len(sections))
	for _, s := range sections {
		cats := make([]*Category, 0, len(s.Categories))
		for _, cat := range s.Categories {
			if len(cat.Activities) > 0 {
				cats = append(cats, cat)
			}
		}
		if len(cats) == 0 {
			continue
		}
		s.Categories = cats
		out = append(out, s)
	}
	return out
}

// SortByDisplayOrder sorts sections, categories and activities in place by
// display order ascending, ties broken by id.
func SortByDisplayOrder(sections []*Section) {
	slices.SortStableFunc(sections, func(a, b *Section) int {
		return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), strings.Compare(a.ID, b.ID))
	})
	for _, s := range sections {
		slices.SortStableFunc(s.Categories, func(a, b *Category) int {
			return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), strings.Compare(a.ID, b.ID))
		})
		for _, cat := range s.Categories {
			slices.SortStableFunc(cat.Activities, func(a, b *Activity) int {
				return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), strings.Compare(a.ID, b.ID))
			})
		}
	}
}

// SortByNumber sorts sections, categories and activities in place by their
// checklist numbers ("1", "1.2", "1.10") in natural order, ties broken by id.
func SortByNumber(sections []*Section) {
	slices.SortStableFunc(sections, func(a, b *Section) int {
		return cmp.Or(CompareNumbers(a.SectionNumber, b.SectionNumber), strings.Compare(a.ID, b.ID))
	})
	for _, s := range sections {
		slices.SortStableFunc(s.Categories, func(a, b *Category) int {
			return cmp.Or(CompareNumbers(a.CategoryNumber, b.CategoryNumber), strings.Compare(a.ID, b.ID))
		})
		for _, cat := range s.Categories {
			slices.SortStableFunc(cat.Activities, func(a, b *Activity) int {
				return cmp.Or(CompareNumbers(a.ActivityNumber, b.ActivityNumber), strings.Compare(a.ID, b.ID))
			})
		}
	}
}

// CompareNumbers compares dotted checklist numbers segment by segment.
// Numeric segments compare as integers so "1.10" sorts after "1.9";
// non-numeric segments compare lexically after numeric ones.
func CompareNumbers(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if c := cmp.Compare(an, bn); c != 0 {
				return c
			}
		case aerr == nil:
			return -1
		case berr == nil:
			return 1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// ChecklistService reads the static checklist hierarchy from the store.
type ChecklistService interface {
	// FindSections returns active sections with their categories and
	// activities nested. Ordering is not guaranteed.
	FindSections(ctx context.Context) ([]*Section, error)

	// FindActivityIDs returns the ids of every active activity in the store.
	FindActivityIDs(ctx context.Context) ([]string, error)
}
