package inspection

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/dukerupert/railinspect"
	"gopkg.in/yaml.v3"
)

//go:embed fallback_checklist.yaml
var defaultFallback []byte

type fallbackFile struct {
	Sections []*railinspect.Section `yaml:"sections"`
}

// LoadFallback parses the degraded-mode checklist. An empty path uses the
// embedded default.
func LoadFallback(path string) (*railinspect.Checklist, error) {
	data := defaultFallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading fallback checklist: %w", err)
		}
		data = b
	}
	return ParseFallback(data)
}

// ParseFallback decodes a fallback checklist document. Ids without the
// local prefix are prefixed so they can never be mistaken for stored rows.
func ParseFallback(data []byte) (*railinspect.Checklist, error) {
	var doc fallbackFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing fallback checklist: %w", err)
	}

	seen := make(map[string]bool)
	localize := func(kind, id string) (string, error) {
		if id == "" {
			return "", fmt.Errorf("fallback checklist: %s without id", kind)
		}
		if !railinspect.IsLocalID(id) {
			id = railinspect.LocalIDPrefix + id
		}
		if seen[id] {
			return "", fmt.Errorf("fallback checklist: duplicate id %q", id)
		}
		seen[id] = true
		return id, nil
	}

	var err error
	for _, s := range doc.Sections {
		if s.ID, err = localize("section", s.ID); err != nil {
			return nil, err
		}
		for _, cat := range s.Categories {
			if cat.ID, err = localize("category", cat.ID); err != nil {
				return nil, err
			}
			for _, a := range cat.Activities {
				if a.ID, err = localize("activity", a.ID); err != nil {
					return nil, err
				}
			}
		}
	}

	sections := railinspect.Prune(doc.Sections)
	if len(sections) == 0 {
		return nil, fmt.Errorf("fallback checklist has no activities")
	}
	railinspect.SortByDisplayOrder(sections)

	return &railinspect.Checklist{Sections: sections, Degraded: true}, nil
}
