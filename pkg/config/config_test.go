package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestDefaultTTLConversion(t *testing.T) {
	cases := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{name: "standard hour", seconds: 3600, want: time.Hour},
		{name: "short ttl", seconds: 90, want: 90 * time.Second},
		{name: "zero falls back", seconds: 0, want: time.Hour},
		{name: "negative falls back", seconds: -5, want: time.Hour},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cc := CacheConfig{DefaultTTLSeconds: tc.seconds}
			assert.Equal(t, tc.want, cc.DefaultTTL())
		})
	}
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	path := writeConfigFile(t, `
[engine]
spelling_threshold = 0.75
max_results = 10

[cache]
default_ttl_seconds = 120

[cli]
default_limit = 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Engine.SpellingThreshold)
	assert.Equal(t, 10, cfg.Engine.MaxResults)
	assert.Equal(t, 120, cfg.Cache.DefaultTTLSeconds)
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL())
	assert.Equal(t, 5, cfg.CLI.DefaultLimit)

	// Keys the file never mentions keep their defaults.
	assert.Equal(t, 2, cfg.Engine.MinQueryLength)
	assert.Equal(t, 0.7, cfg.Engine.SimilarityWeight)
	assert.True(t, cfg.Engine.ValidateWords)
	assert.Equal(t, 1000, cfg.Cache.MaxMemoryItems)
}

func TestLoadConfigRecoversTypedSections(t *testing.T) {
	// min_query_length carries the wrong type, which fails the strict
	// decode. Recovery still applies every well-typed key around it.
	path := writeConfigFile(t, `
[engine]
min_query_length = "three"
max_results = 25
validate_words = false

[cache]
max_memory_items = 512

[cli]
default_limit = 7
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.MinQueryLength)
	assert.Equal(t, 25, cfg.Engine.MaxResults)
	assert.False(t, cfg.Engine.ValidateWords)
	assert.Equal(t, 512, cfg.Cache.MaxMemoryItems)
	assert.Equal(t, 7, cfg.CLI.DefaultLimit)
}

func TestLoadConfigCorruptFileFallsBackToDefaults(t *testing.T) {
	path := writeConfigFile(t, "[engine\nmax_results = 25\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestInitConfigCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	// A second call loads the file it just wrote.
	again, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestUpdatePersistsEngineValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()

	require.NoError(t, cfg.Update(path, intPtr(25), intPtr(3), floatPtr(0.8)))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Engine.MaxResults)
	assert.Equal(t, 3, loaded.Engine.MinQueryLength)
	assert.Equal(t, 0.8, loaded.Engine.SpellingThreshold)

	// Nil selectors leave their fields alone.
	require.NoError(t, cfg.Update(path, nil, nil, floatPtr(0.5)))
	loaded, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Engine.MaxResults)
	assert.Equal(t, 3, loaded.Engine.MinQueryLength)
	assert.Equal(t, 0.5, loaded.Engine.SpellingThreshold)
}

func TestLoadConfigWithPriorityCustomPath(t *testing.T) {
	path := writeConfigFile(t, `
[engine]
max_results = 12
`)

	cfg, loadedFrom, err := LoadConfigWithPriority(path)
	require.NoError(t, err)
	assert.Equal(t, path, loadedFrom)
	assert.Equal(t, 12, cfg.Engine.MaxResults)
}
