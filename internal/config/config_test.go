package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/catset/internal/config"
	"github.com/aretw0/catset/pkg/core"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil, "", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, config.DefaultConfig, *cfg)

	id, err := cfg.DatasetID()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultDataset, id)
}

func TestLoad_FileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	yaml := `
dataset: corpus/java
append_mode: legacy
store:
  backend: sqlite
  dsn: data.db
tagger:
  kind: command
  command: [python3, tag.py]
timeouts:
  tagger: 2s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catset.yaml"), []byte(yaml), 0644))

	cfg, err := config.Load(nil, "", dir)
	require.NoError(t, err)

	assert.Equal(t, "corpus/java", cfg.Dataset)
	assert.Equal(t, "legacy", cfg.AppendMode)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "data.db", cfg.Store.DSN)
	assert.Equal(t, []string{"python3", "tag.py"}, cfg.Tagger.Command)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Tagger)
	// Untouched keys keep their defaults.
	assert.Equal(t, config.DefaultConfig.Timeouts.Store, cfg.Timeouts.Store)
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tagger": {"kind": "http", "url": "http://tagger:9000/tag"}}`), 0644))

	cfg, err := config.Load(nil, path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Tagger.Kind)
	assert.Equal(t, "http://tagger:9000/tag", cfg.Tagger.URL)

	_, err = config.Load(nil, filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir())
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catset.yaml"), []byte("store:\n  backend: sqlite\n"), 0644))

	t.Setenv("CATSET_STORE_BACKEND", "memory")
	t.Setenv("CATSET_TIMEOUTS_STORE", "250ms")

	cfg, err := config.Load(nil, "", dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeouts.Store)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CATSET_MAX_RETRIES=9\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("CATSET_MAX_RETRIES") })

	cfg, err := config.Load(nil, "", dir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.MaxRetries)
}

func TestLoad_FlagsWin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CATSET_STORE_BACKEND", "sqlite")

	cmd := &cobra.Command{Use: "catset", RunE: func(*cobra.Command, []string) error { return nil }}
	config.InitFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--store", "memory", "--dataset", "a/b", "--append-mode", "legacy"}))

	cfg, err := config.Load(cmd, "", dir)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "a/b", cfg.Dataset)
	assert.Equal(t, "legacy", cfg.AppendMode)
	// Unset flags do not shadow lower layers.
	assert.Equal(t, config.DefaultConfig.Tagger.Kind, cfg.Tagger.Kind)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*config.Config){
		"dataset":     func(c *config.Config) { c.Dataset = "nope" },
		"append mode": func(c *config.Config) { c.AppendMode = "eventual" },
		"backend":     func(c *config.Config) { c.Store.Backend = "redis" },
		"tagger":      func(c *config.Config) { c.Tagger.Kind = "oracle" },
		"lexer":       func(c *config.Config) { c.Lexer = "antlr" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.DefaultConfig
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := config.DefaultConfig
	assert.NoError(t, cfg.Validate())
}
