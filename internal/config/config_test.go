package config

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 64, cfg.MaxConcurrentQueries)
	assert.Equal(t, int64(5000), cfg.DefaultTimeoutMs)
	assert.True(t, cfg.EnableParallelSearch)
	assert.True(t, cfg.CacheEnabled)
	assert.InDelta(t, 0.7, cfg.VectorWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.KeywordWeight, 1e-9)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().MaxConcurrentQueries, cfg.MaxConcurrentQueries)
}

func TestLoad_MalformedFileFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, EnsureDataDir())
	require.NoError(t, os.WriteFile(SettingsPath(), []byte("{not json"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().MaxConcurrentQueries, cfg.MaxConcurrentQueries)
}

func TestLoad_MergesOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, EnsureDataDir())

	overrides := map[string]interface{}{
		"max_concurrent_queries": 128,
		"cache_enabled":          false,
		"vector_weight":          0.5,
	}
	data, err := json.Marshal(overrides)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(DataDir(), "settings.json"), data, 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.MaxConcurrentQueries)
	assert.False(t, cfg.CacheEnabled)
	assert.InDelta(t, 0.5, cfg.VectorWeight, 1e-9)
	// Unset keys keep their defaults.
	assert.Equal(t, Default().KeywordWeight, cfg.KeywordWeight)
}

func TestLoad_FallsBackToYAMLSibling(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, EnsureDataDir())

	yamlContent := "max_concurrent_queries: 32\ncache_enabled: false\n"
	yamlPath := filepath.Join(DataDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlContent), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.MaxConcurrentQueries)
	assert.False(t, cfg.CacheEnabled)
}
