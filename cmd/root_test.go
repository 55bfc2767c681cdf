package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"duplicalis/internal/config"
	"duplicalis/internal/models"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addScanFlags(c)
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestLoadConfigLayersFileAndFlags(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultConfigFile),
		[]byte(`{"similarityThreshold": 0.6, "limit": 3, "model": "mock", "weight": {"style": 0}}`), 0o644))

	c := newScanCommand(t, "--limit", "5", "--max-threshold", "0.99", "--no-progress", "--compare", "src/a.tsx,src/b.tsx")
	cfg, err := loadConfig(c, []string{root})
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, 0.6, cfg.SimilarityThreshold)
	assert.Equal(t, 5, cfg.Limit)
	require.NotNil(t, cfg.MaxSimilarityThreshold)
	assert.Equal(t, 0.99, *cfg.MaxSimilarityThreshold)
	assert.False(t, cfg.ShowProgress)
	assert.Equal(t, []string{"src/a.tsx", "src/b.tsx"}, cfg.CompareGlobs)
	assert.Equal(t, 0.0, cfg.Weight.Style)
	assert.Equal(t, 0.4, cfg.Weight.Code)
	assert.Equal(t, filepath.Join(root, config.DefaultCacheFile), cfg.CachePath)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	c := newScanCommand(t, "--threshold", "1.5")
	_, err := loadConfig(c, []string{t.TempDir()})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoadConfigSavesConfig(t *testing.T) {
	root := t.TempDir()
	c := newScanCommand(t, "--model", "mock", "--save-config")
	_, err := loadConfig(c, []string{root})
	require.NoError(t, err)

	saved, err := config.LoadFile(filepath.Join(root, config.DefaultConfigFile))
	require.NoError(t, err)
	assert.Equal(t, config.ModelMock, saved.Model)

	c = newScanCommand(t, "--model", "mock", "--save-config=conf/dup.yaml")
	_, err = loadConfig(c, []string{root})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "conf", "dup.yaml"))
}

func TestScanWritesReport(t *testing.T) {
	root := t.TempDir()
	src := `export function Panel({ title }) {
  return <div className="panel"><h2>{title}</h2></div>;
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "Panel.tsx"), []byte(src), 0o644))

	rootCmd.SetArgs([]string{"scan", root, "--model", "mock", "--no-progress", "--output", "json", "--out", "report.json"})
	require.NoError(t, Execute())

	data, err := os.ReadFile(filepath.Join(root, "report.json"))
	require.NoError(t, err)
	var rep models.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	require.Len(t, rep.Components, 1)
	assert.Equal(t, "Panel", rep.Components[0].Name)
	assert.Empty(t, rep.Pairs)
	assert.FileExists(t, filepath.Join(root, config.DefaultCacheFile))
}
