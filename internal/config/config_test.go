package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LABGEN_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DatabaseMemory, cfg.DatabaseDriver)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 100*time.Millisecond, cfg.GenerationDelay)
	require.Equal(t, 30*time.Second, cfg.AITimeout)
	require.Equal(t, time.Minute, cfg.StatsCacheTTL)
	require.Equal(t, "labgen", cfg.EventsChannel)
	require.Equal(t, 10, cfg.GenerationRateLimit)
	require.True(t, cfg.SeedTemplates)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LABGEN_JWT_SECRET", "secret")
	t.Setenv("LABGEN_DATABASE_DRIVER", "SQLite")
	t.Setenv("LABGEN_DATABASE_URL", "file:labgen.db")
	t.Setenv("LABGEN_AI_PROVIDER", "Anthropic")
	t.Setenv("LABGEN_GENERATION_DELAY", "0s")
	t.Setenv("LABGEN_APP_PORT", ":9000")
	t.Setenv("LABGEN_CORS_ALLOW_ORIGINS", "https://lab.example, ,https://admin.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DatabaseSQLite, cfg.DatabaseDriver)
	require.Equal(t, "anthropic", cfg.AIProvider)
	require.Zero(t, cfg.GenerationDelay)
	require.Equal(t, ":9000", cfg.HTTPAddress())
	require.Equal(t, []string{"https://lab.example", "https://admin.example"}, cfg.CORSAllowOrigins)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("LABGEN_JWT_SECRET", "")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("LABGEN_JWT_SECRET", "secret")
		t.Setenv("LABGEN_DATABASE_DRIVER", "postgres")
		_, err := Load()
		require.ErrorContains(t, err, "database url")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("LABGEN_JWT_SECRET", "secret")
		t.Setenv("LABGEN_DATABASE_DRIVER", "mongo")
		_, err := Load()
		require.ErrorContains(t, err, "unsupported database driver")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("LABGEN_JWT_SECRET", "secret")
		t.Setenv("LABGEN_STATS_CACHE_TTL", "soon")
		_, err := Load()
		require.ErrorContains(t, err, "stats.cache_ttl")
	})
}
