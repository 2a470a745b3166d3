package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/goplanner/pkg/search"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "brfs", cfg.Search.Algorithm)
	assert.Equal(t, "lifted", cfg.Generator.Mode)
	assert.Equal(t, search.DefaultCheckInterval, cfg.Search.CheckInterval)
	assert.Equal(t, slog.LevelInfo, cfg.Observability.Level())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"astar goalcount", func(c *Config) { c.Search.Algorithm = "astar"; c.Search.Heuristic = "goalcount" }, false},
		{"unknown algorithm", func(c *Config) { c.Search.Algorithm = "dfs" }, true},
		{"unknown heuristic", func(c *Config) { c.Search.Heuristic = "ff" }, true},
		{"negative expansions", func(c *Config) { c.Search.MaxExpansions = -1 }, true},
		{"negative time limit", func(c *Config) { c.Search.TimeLimit = -time.Second }, true},
		{"zero check interval", func(c *Config) { c.Search.CheckInterval = 0 }, true},
		{"width too large", func(c *Config) { c.Search.MaxWidth = 5 }, true},
		{"unknown mode", func(c *Config) { c.Generator.Mode = "hybrid" }, true},
		{"zero leaf threshold", func(c *Config) { c.Generator.LeafThreshold = 0 }, true},
		{"tiny chunks", func(c *Config) { c.Store.ChunkWords = 8 }, true},
		{"bad log level", func(c *Config) { c.Observability.LogLevel = "trace" }, true},
		{"metrics without file", func(c *Config) { c.Observability.MetricsEnabled = true }, true},
		{"metrics with file", func(c *Config) {
			c.Observability.MetricsEnabled = true
			c.Observability.MetricsFile = "planner.prom"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
search:
  algorithm: astar
  heuristic: goalcount
  time_limit: 90s
  max_expansions: 5000
generator:
  mode: grounded
  workers: 2
observability:
  log_level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, "astar", cfg.Search.Algorithm)
	assert.Equal(t, 90*time.Second, cfg.Search.TimeLimit)
	assert.Equal(t, "grounded", cfg.Generator.Mode)
	assert.Equal(t, slog.LevelDebug, cfg.Observability.Level())

	// untouched sections keep their defaults
	assert.Equal(t, Default().Store, cfg.Store)
	assert.Equal(t, Default().Generator.LeafThreshold, cfg.Generator.LeafThreshold)

	budget := cfg.Search.Budget()
	assert.Equal(t, 5000, budget.MaxExpansions)
	assert.Equal(t, search.DefaultCheckInterval, budget.CheckInterval)
	assert.Equal(t, 2, cfg.Generator.Options().Workers)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("search:\n  algoritm: brfs\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  algorithm: iw\n  max_width: 1\n"), 0o600))

	t.Setenv("PLANNER_MAX_WIDTH", "3")
	t.Setenv("PLANNER_MODE", "Grounded")
	t.Setenv("PLANNER_TRACING_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "iw", cfg.Search.Algorithm)
	assert.Equal(t, 3, cfg.Search.MaxWidth, "environment wins over the file")
	assert.Equal(t, "grounded", cfg.Generator.Mode)
	assert.True(t, cfg.Observability.TracingEnabled)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed env", func(t *testing.T) {
		t.Setenv("PLANNER_WORKERS", "many")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("invalid after env", func(t *testing.T) {
		t.Setenv("PLANNER_ALGORITHM", "dfs")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
