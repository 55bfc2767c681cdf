package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)
	assert.Equal(t, 0.93, cfg.HighSimilarityThreshold)
	assert.Nil(t, cfg.MaxSimilarityThreshold)
	assert.Equal(t, Weights{Code: 0.4, Style: 0.2, Structure: 0.2, Holistic: 0.2}, cfg.Weight)
	assert.Equal(t, ModelLocal, cfg.Model)
	assert.Equal(t, 15000, cfg.Remote.TimeoutMs)
	assert.True(t, cfg.AllowIgnores)
	assert.True(t, cfg.AutoDownloadModel)
	assert.Equal(t, DefaultModelRepo, cfg.ModelRepo)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileMergesWeights(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"model":"mock","limit":2,"weight":{"code":1,"style":0}}`), 0o644))

	cfg, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, ModelMock, cfg.Model)
	assert.Equal(t, 2, cfg.Limit)
	assert.Equal(t, Weights{Code: 1, Style: 0, Structure: 0.2, Holistic: 0.2}, cfg.Weight)
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)

	yamlPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("maxSimilarityThreshold: 0.99\nweight:\n  holistic: 0.5\ncompareGlobs:\n  - src/**\n"), 0o644))

	cfg, err = LoadFile(yamlPath)
	require.NoError(t, err)
	require.NotNil(t, cfg.MaxSimilarityThreshold)
	assert.Equal(t, 0.99, *cfg.MaxSimilarityThreshold)
	assert.Equal(t, 0.5, cfg.Weight.Holistic)
	assert.Equal(t, 0.4, cfg.Weight.Code)
	assert.Equal(t, []string{"src/**"}, cfg.CompareGlobs)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"saved.json", "saved.yml"} {
		cfg := Default()
		cfg.Model = ModelRemote
		cfg.Remote.Model = "text-embedding-3-small"
		cfg.Remote.APIKey = "secret"
		cfg.Limit = 3

		path := filepath.Join(dir, "out", name)
		require.NoError(t, Save(cfg, path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "secret")

		loaded, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, ModelRemote, loaded.Model)
		assert.Equal(t, "text-embedding-3-small", loaded.Remote.Model)
		assert.Equal(t, 3, loaded.Limit)
		assert.Empty(t, loaded.Remote.APIKey)
	}
}

func TestValidate(t *testing.T) {
	maxBelow := 0.5
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.2 }},
		{"high below min", func(c *Config) { c.HighSimilarityThreshold = 0.5 }},
		{"max below min", func(c *Config) { c.MaxSimilarityThreshold = &maxBelow }},
		{"negative limit", func(c *Config) { c.Limit = -1 }},
		{"negative distance", func(c *Config) { c.MinPathDistance = -2 }},
		{"negative weight", func(c *Config) { c.Weight.Style = -0.1 }},
		{"clean probability", func(c *Config) { c.CleanProbability = 2 }},
		{"unknown model", func(c *Config) { c.Model = "gpu" }},
		{"unknown output", func(c *Config) { c.Output = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Root = root
	require.NoError(t, cfg.Resolve())
	assert.Equal(t, filepath.Join(root, ".cache", "duplicalis", "embeddings.json"), cfg.CachePath)

	cfg = Default()
	cfg.Root = root
	cfg.CachePath = "tmp/cache.json"
	require.NoError(t, cfg.Resolve())
	assert.Equal(t, filepath.Join(root, "tmp", "cache.json"), cfg.CachePath)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9/v1")
	t.Setenv("API_KEY", "k")
	t.Setenv("QDRANT_URL", "localhost:6334")

	cfg := Default()
	cfg.Remote.Model = "kept"
	cfg.ApplyEnv()

	assert.Equal(t, "http://localhost:9/v1", cfg.Remote.URL)
	assert.Equal(t, "k", cfg.Remote.APIKey)
	assert.Equal(t, "kept", cfg.Remote.Model)
	assert.Equal(t, "localhost:6334", cfg.Qdrant.URL)
}

func TestGet(t *testing.T) {
	t.Setenv("DUPLICALIS_TEST_A", "")
	t.Setenv("DUPLICALIS_TEST_B", "b")
	assert.Equal(t, "b", Get("", "DUPLICALIS_TEST_A", "DUPLICALIS_TEST_B"))
	assert.Equal(t, "", Get("DUPLICALIS_TEST_A"))
}
