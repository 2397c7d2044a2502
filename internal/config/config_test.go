package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONTINUITY_DB", "")
	t.Setenv("CONTINUITY_LOG_LEVEL", "")
	t.Setenv("CONTINUITY_LABELER", "")
	t.Setenv("CONTINUITY_EMBEDDER", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.LabelerTimeout())
	assert.Equal(t, time.Duration(0), cfg.ProfileRefreshAfter())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("CONTINUITY_DB", "")
	t.Setenv("CONTINUITY_LABELER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
db_path: /tmp/journal.db
analysis:
  month_days: 21
labeler:
  provider: gemini
  timeout: 5s
worker:
  workers: 4
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/journal.db", cfg.DBPath)
	assert.Equal(t, 21, cfg.Analysis.MonthDays)
	assert.Equal(t, 7, cfg.Analysis.WeekDays, "unset fields keep defaults")
	assert.Equal(t, "gemini", cfg.Labeler.Provider)
	assert.Equal(t, 5*time.Second, cfg.LabelerTimeout())
	assert.Equal(t, 4, cfg.Worker.Workers)
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("CONTINUITY_LABELER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("labeler:\n  provider: oracle\n"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "invalid labeler provider")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CONTINUITY_LABELER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker:\n  backoff: soon\n"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "worker.backoff")
}

func TestValidate_AnalysisWindows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.WeekDays = 30
	assert.ErrorContains(t, cfg.Validate(), "week_days")

	cfg = DefaultConfig()
	cfg.Analysis.MonthDays = 120
	assert.ErrorContains(t, cfg.Validate(), "quarter_days")

	cfg = DefaultConfig()
	cfg.Analysis.AgencyWindowDays = 60
	assert.NoError(t, cfg.Validate(), "agency window is capped at the month window")
}

func TestEnvOverrides(t *testing.T) {
	t.Run("db and log level", func(t *testing.T) {
		t.Setenv("CONTINUITY_DB", "/data/c.db")
		t.Setenv("CONTINUITY_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/data/c.db", cfg.DBPath)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("api key follows provider", func(t *testing.T) {
		t.Setenv("CONTINUITY_LABELER", "openai")
		t.Setenv("CONTINUITY_EMBEDDER", "gemini")
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("GEMINI_API_KEY", "gm-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "oa-key", cfg.Labeler.APIKey)
		assert.Equal(t, "gm-key", cfg.Embedding.APIKey)
	})

	t.Run("file key wins", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "env-key")
		t.Setenv("CONTINUITY_LABELER", "")

		cfg := DefaultConfig()
		cfg.Labeler.Provider = "openai"
		cfg.Labeler.APIKey = "file-key"
		cfg.applyEnvOverrides()

		assert.Equal(t, "file-key", cfg.Labeler.APIKey)
	})

	t.Run("disabled provider gets no key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "oa-key")
		t.Setenv("CONTINUITY_LABELER", "")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Empty(t, cfg.Labeler.APIKey)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("CONTINUITY_DB", "")
	t.Setenv("CONTINUITY_LOG_LEVEL", "")
	t.Setenv("CONTINUITY_LABELER", "")
	t.Setenv("CONTINUITY_EMBEDDER", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Profile.WindowDays = 180
	cfg.Profile.RefreshAfter = "24h"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 180, loaded.Profile.WindowDays)
	assert.Equal(t, 24*time.Hour, loaded.ProfileRefreshAfter())
}
