// Package config loads the memtide YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/memtide/memtide/internal/scoring"
)

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `yaml:"provider"` // "ollama" | "openai" | "" (disabled)
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
}

// BufferConfig sizes the durable embedding buffer.
type BufferConfig struct {
	MaxSize       int    `yaml:"max_size"`
	MaxAttempts   int    `yaml:"max_attempts"`
	SnapshotPath  string `yaml:"snapshot_path,omitempty"`
	DrainInterval string `yaml:"drain_interval"` // e.g. "5s"
	BaseRetry     string `yaml:"base_retry"`     // e.g. "2s"
}

// ScoringConfig carries the ranking constants.
type ScoringConfig struct {
	HalfLifeDays float64 `yaml:"half_life_days"`
	MinDecay     float64 `yaml:"min_decay"`
	TagBoost     float64 `yaml:"tag_boost"`
	MaxTagBoost  float64 `yaml:"max_tag_boost"`
	Weights      struct {
		Similarity float64 `yaml:"similarity"`
		Recency    float64 `yaml:"recency"`
		Importance float64 `yaml:"importance"`
		LinkBoost  float64 `yaml:"link_boost"`
	} `yaml:"weights"`
}

// Config is the full memtide configuration.
type Config struct {
	DBPath     string           `yaml:"db_path,omitempty"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Buffer     BufferConfig     `yaml:"buffer"`
	Scoring    ScoringConfig    `yaml:"scoring"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Embeddings: EmbeddingsConfig{
			Provider: os.Getenv("MEMTIDE_EMBED_PROVIDER"),
			Model:    os.Getenv("MEMTIDE_EMBED_MODEL"),
			BaseURL:  os.Getenv("MEMTIDE_EMBED_URL"),
		},
		Buffer: BufferConfig{
			MaxSize:       1000,
			MaxAttempts:   3,
			DrainInterval: "5s",
			BaseRetry:     "2s",
		},
		Scoring: ScoringConfig{
			HalfLifeDays: 30,
			MinDecay:     0.1,
			TagBoost:     0.05,
			MaxTagBoost:  0.2,
		},
	}
	cfg.Scoring.Weights.Similarity = 0.4
	cfg.Scoring.Weights.Recency = 0.25
	cfg.Scoring.Weights.Importance = 0.25
	cfg.Scoring.Weights.LinkBoost = 0.1
	return cfg
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".memtide", "config.yaml")
}

// Load reads the config at path, falling back to defaults when the file
// does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DrainInterval returns the parsed drain interval.
func (c *Config) DrainInterval() (time.Duration, error) {
	return parseDuration(c.Buffer.DrainInterval, 5*time.Second)
}

// BaseRetry returns the parsed retry backoff base.
func (c *Config) BaseRetry() (time.Duration, error) {
	return parseDuration(c.Buffer.BaseRetry, 2*time.Second)
}

// ScoringOptions maps the file values onto the scoring constants.
func (c *Config) ScoringOptions() scoring.Config {
	return scoring.Config{
		HalfLifeDays: c.Scoring.HalfLifeDays,
		MinDecay:     c.Scoring.MinDecay,
		TagBoost:     c.Scoring.TagBoost,
		MaxTagBoost:  c.Scoring.MaxTagBoost,
		Weights: scoring.Weights{
			Similarity: c.Scoring.Weights.Similarity,
			Recency:    c.Scoring.Weights.Recency,
			Importance: c.Scoring.Weights.Importance,
			LinkBoost:  c.Scoring.Weights.LinkBoost,
		},
	}
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
