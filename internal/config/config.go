// Package config holds the planner's runtime configuration.
//
// Values are layered: Default, then an optional YAML file, then PLANNER_*
// environment variables. The merged result is checked with Validate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/goplanner/pkg/aag"
	"github.com/gitrdm/goplanner/pkg/search"
	"github.com/gitrdm/goplanner/pkg/statestore"
)

// ErrInvalidConfig is returned when a configuration fails to parse or
// validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

var validate = validator.New()

// Config is the top-level configuration document.
type Config struct {
	Search        SearchConfig        `yaml:"search"`
	Generator     GeneratorConfig     `yaml:"generator"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SearchConfig selects the search algorithm and its budget.
type SearchConfig struct {
	Algorithm     string        `yaml:"algorithm" validate:"oneof=brfs astar iw"`
	Heuristic     string        `yaml:"heuristic" validate:"oneof=blind goalcount"`
	MaxExpansions int           `yaml:"max_expansions" validate:"gte=0"`
	TimeLimit     time.Duration `yaml:"time_limit" validate:"gte=0"`
	CheckInterval int           `yaml:"check_interval" validate:"gte=1"`
	MaxWidth      int           `yaml:"max_width" validate:"gte=0,lte=4"`
}

// GeneratorConfig selects the applicable-action generator.
type GeneratorConfig struct {
	Mode          string `yaml:"mode" validate:"oneof=lifted grounded"`
	LeafThreshold int    `yaml:"leaf_threshold" validate:"gte=1"`
	Workers       int    `yaml:"workers" validate:"gte=0"`
}

// StoreConfig sizes the state arena.
type StoreConfig struct {
	ChunkWords int `yaml:"chunk_words" validate:"gte=64"`
}

// ObservabilityConfig controls logging, metrics and tracing.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level" validate:"oneof=debug info warn error"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsFile    string `yaml:"metrics_file" validate:"required_if=MetricsEnabled true"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
}

// Default returns the built-in configuration: lifted breadth-first search
// with no budget.
func Default() Config {
	return Config{
		Search: SearchConfig{
			Algorithm:     "brfs",
			Heuristic:     "blind",
			CheckInterval: search.DefaultCheckInterval,
			MaxWidth:      search.DefaultMaxWidth,
		},
		Generator: GeneratorConfig{
			Mode:          string(aag.ModeLifted),
			LeafThreshold: aag.DefaultLeafThreshold,
		},
		Store: StoreConfig{
			ChunkWords: statestore.DefaultChunkWords,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse is Load for an in-memory YAML document, without environment
// overrides.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(c)
}

// applyEnv overrides fields from PLANNER_* variables. A malformed value is
// an error rather than being ignored.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = strings.ToLower(strings.TrimSpace(v))
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = i
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	str("PLANNER_ALGORITHM", &c.Search.Algorithm)
	str("PLANNER_HEURISTIC", &c.Search.Heuristic)
	num("PLANNER_MAX_EXPANSIONS", &c.Search.MaxExpansions)
	if v, ok := lookup("PLANNER_TIME_LIMIT"); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("PLANNER_TIME_LIMIT: %w", err))
		} else {
			c.Search.TimeLimit = d
		}
	}
	num("PLANNER_CHECK_INTERVAL", &c.Search.CheckInterval)
	num("PLANNER_MAX_WIDTH", &c.Search.MaxWidth)

	str("PLANNER_MODE", &c.Generator.Mode)
	num("PLANNER_LEAF_THRESHOLD", &c.Generator.LeafThreshold)
	num("PLANNER_WORKERS", &c.Generator.Workers)

	num("PLANNER_CHUNK_WORDS", &c.Store.ChunkWords)

	str("PLANNER_LOG_LEVEL", &c.Observability.LogLevel)
	flag("PLANNER_METRICS_ENABLED", &c.Observability.MetricsEnabled)
	if v, ok := lookup("PLANNER_METRICS_FILE"); ok && v != "" {
		c.Observability.MetricsFile = v
	}
	flag("PLANNER_TRACING_ENABLED", &c.Observability.TracingEnabled)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Budget converts the search section to a search budget.
func (c SearchConfig) Budget() search.Budget {
	return search.Budget{
		MaxExpansions: c.MaxExpansions,
		TimeLimit:     c.TimeLimit,
		CheckInterval: c.CheckInterval,
	}
}

// Options converts the generator section to generator options.
func (c GeneratorConfig) Options() aag.Options {
	return aag.Options{
		LeafThreshold: c.LeafThreshold,
		Workers:       c.Workers,
	}
}

// Level maps LogLevel to a slog level.
func (c ObservabilityConfig) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
