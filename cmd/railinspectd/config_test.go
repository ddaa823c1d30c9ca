package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "memory", cfg.CacheProvider)
	assert.Equal(t, 0.5, cfg.SubmitConfirmThreshold)
	assert.Equal(t, 0.8, cfg.FormMinCompletion)
	assert.True(t, cfg.OneDraftPerDay)
	assert.False(t, cfg.SessionSecure)
	assert.Equal(t, "postgresql://postgres:@localhost:5432/railinspect", cfg.DatabaseURL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(envMap(map[string]string{
		"ENVIRONMENT":              "production",
		"DATABASE_URL":             "postgresql://app:secret@db:5432/rail",
		"CHECKLIST_CACHE_PROVIDER": "redis",
		"REDIS_URL":                "redis://cache:6379/0",
		"CHECKLIST_CACHE_TTL":      "90s",
		"SUBMIT_CONFIRM_THRESHOLD": "0.6",
		"FORM_MIN_COMPLETION":      "0.9",
		"ONE_DRAFT_PER_DAY":        "false",
		"REPORT_TIMEZONE":          "Asia/Kolkata",
		"STORAGE_PROVIDER":         "minio",
		"MINIO_BUCKET":             "reports",
		"QUEUE_WORKER_COUNT":       "not-a-number",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.SessionSecure)
	assert.Equal(t, "postgresql://app:secret@db:5432/rail", cfg.DatabaseURL())
	assert.Equal(t, 90*time.Second, cfg.CacheConfig().TTL)
	assert.Equal(t, "redis://cache:6379/0", cfg.CacheConfig().RedisURL)
	assert.Equal(t, 0.6, cfg.SubmitConfirmThreshold)
	assert.Equal(t, 0.9, cfg.FormMinCompletion)
	assert.False(t, cfg.OneDraftPerDay)
	assert.Equal(t, "minio", cfg.StorageConfig().Provider)
	assert.Equal(t, "reports", cfg.StorageConfig().MinioBucket)
	assert.Equal(t, 3, cfg.QueueConfig().WorkerCount)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"threshold above one", map[string]string{"SUBMIT_CONFIRM_THRESHOLD": "1.5"}},
		{"zero form floor", map[string]string{"FORM_MIN_COMPLETION": "0"}},
		{"unknown timezone", map[string]string{"REPORT_TIMEZONE": "Mars/Olympus"}},
		{"redis without url", map[string]string{"CHECKLIST_CACHE_PROVIDER": "redis"}},
		{"unknown cache", map[string]string{"CHECKLIST_CACHE_PROVIDER": "memcached"}},
		{"production without password", map[string]string{"ENVIRONMENT": "prod"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(envMap(tt.env))
			assert.Error(t, err)
		})
	}
}
