package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/spacedeck/internal/sm2"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func flagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("store", BackendJSON, "")
	fs.String("data-dir", "", "")
	fs.Int("limit", 20, "")
	fs.String("sort", "name", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	dir := filepath.Join(home, ".spacedeck")
	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, dir, cfg.Storage.Dir)
	assert.Equal(t, filepath.Join(dir, "spacedeck.db"), cfg.Storage.DBPath)
	assert.Equal(t, filepath.Join(dir, "repos"), cfg.Sources.ReposDir)
	assert.Equal(t, 20, cfg.Session.Limit)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	assert.Equal(t, *sm2.DefaultParams(), cfg.Scheduler)
}

func TestDefaultConfigFileIsPickedUp(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".spacedeck")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("session:\n  limit: 42\n"), 0o644))

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Session.Limit)
}

func TestPrecedence(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
storage:
  backend: sqlite
  dir: /srv/decks
session:
  limit: 50
log:
  level: debug
scheduler:
  learning_steps: [1, 5, 10]
  review_hour: 6
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := Load(nil, path)
		require.NoError(t, err)
		assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
		assert.Equal(t, filepath.Join("/srv/decks", "spacedeck.db"), cfg.Storage.DBPath)
		assert.Equal(t, 50, cfg.Session.Limit)
		assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
		assert.Equal(t, []int{1, 5, 10}, cfg.Scheduler.LearningSteps)
		assert.Equal(t, 6, cfg.Scheduler.ReviewHour)
		assert.Equal(t, 4, cfg.Scheduler.EasyInterval, "unset keys keep their defaults")
	})

	t.Run("environment over file", func(t *testing.T) {
		t.Setenv("SPACEDECK_SESSION__LIMIT", "7")
		t.Setenv("SPACEDECK_STORAGE__DB_PATH", "/tmp/other.db")
		cfg, err := Load(nil, path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Session.Limit)
		assert.Equal(t, "/tmp/other.db", cfg.Storage.DBPath)
	})

	t.Run("changed flags over environment", func(t *testing.T) {
		t.Setenv("SPACEDECK_SESSION__LIMIT", "7")
		cfg, err := Load(flagSet(t, "--limit=3", "--sort=created"), path)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Session.Limit)
		assert.Equal(t, BackendSQLite, cfg.Storage.Backend, "an untouched flag does not override")
	})
}

func TestInvalid(t *testing.T) {
	isolate(t)
	tests := map[string]string{
		"unknown backend":    "storage:\n  backend: mongo\n",
		"unknown log level":  "log:\n  level: loud\n",
		"zero limit":         "session:\n  limit: 0\n",
		"review hour":        "scheduler:\n  review_hour: 30\n",
		"empty ladder":       "scheduler:\n  learning_steps: []\n",
		"ease below minimum": "scheduler:\n  initial_ease: 1.0\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(nil, writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
