package inspection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukerupert/railinspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallbackEmbedded(t *testing.T) {
	checklist, err := LoadFallback("")
	require.NoError(t, err)
	assert.True(t, checklist.Degraded)

	ids := checklist.ActivityIDs()
	assert.Len(t, ids, 7)
	for _, id := range ids {
		assert.True(t, railinspect.IsLocalID(id), id)
	}

	again, err := LoadFallback("")
	require.NoError(t, err)
	assert.Equal(t, ids, again.ActivityIDs())
}

func TestParseFallback(t *testing.T) {
	t.Run("prefixes ids and prunes", func(t *testing.T) {
		doc := `
sections:
  - id: s2
    order: 2
    categories:
      - id: c2
        activities:
          - id: a2
            text: Second
  - id: s1
    order: 1
    categories:
      - id: c1
        activities:
          - id: a1
            text: First
      - id: empty
`
		checklist, err := ParseFallback([]byte(doc))
		require.NoError(t, err)
		assert.Equal(t, []string{"local-a1", "local-a2"}, checklist.ActivityIDs())
		require.Len(t, checklist.Sections[0].Categories, 1)
	})

	tests := []struct {
		name string
		doc  string
	}{
		{"invalid yaml", "sections: ["},
		{"empty", "sections: []"},
		{"missing id", "sections:\n  - categories:\n      - id: c\n        activities:\n          - id: a\n"},
		{"duplicate id", "sections:\n  - id: s\n    categories:\n      - id: c\n        activities:\n          - id: a\n          - id: local-a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFallback([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFallbackFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sections:\n  - id: s\n    categories:\n      - id: c\n        activities:\n          - id: a\n            text: Only\n"), 0o600))

	checklist, err := LoadFallback(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"local-a"}, checklist.ActivityIDs())

	_, err = LoadFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
