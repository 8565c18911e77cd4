package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Buffer.MaxSize != 1000 || cfg.Buffer.MaxAttempts != 3 {
		t.Fatalf("unexpected buffer defaults %+v", cfg.Buffer)
	}
	if cfg.Scoring.HalfLifeDays != 30 || cfg.Scoring.MinDecay != 0.1 {
		t.Fatalf("unexpected scoring defaults %+v", cfg.Scoring)
	}

	d, err := cfg.DrainInterval()
	if err != nil || d != 5*time.Second {
		t.Fatalf("unexpected drain interval %v (%v)", d, err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
buffer:
  max_size: 50
  drain_interval: 250ms
scoring:
  half_life_days: 7
  weights:
    similarity: 0.7
    recency: 0.1
    importance: 0.1
    link_boost: 0.1
embeddings:
  provider: ollama
  model: all-minilm
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Buffer.MaxSize != 50 {
		t.Fatalf("expected max_size 50, got %d", cfg.Buffer.MaxSize)
	}
	// Untouched keys keep defaults.
	if cfg.Buffer.MaxAttempts != 3 {
		t.Fatalf("expected default max_attempts, got %d", cfg.Buffer.MaxAttempts)
	}
	if cfg.Embeddings.Provider != "ollama" || cfg.Embeddings.Model != "all-minilm" {
		t.Fatalf("unexpected embeddings %+v", cfg.Embeddings)
	}

	d, err := cfg.DrainInterval()
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("unexpected drain interval %v (%v)", d, err)
	}

	sc := cfg.ScoringOptions()
	if sc.HalfLifeDays != 7 || sc.Weights.Similarity != 0.7 {
		t.Fatalf("scoring mapping failed: %+v", sc)
	}
}

func TestDurations_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Buffer.DrainInterval = "soon"
	if _, err := cfg.DrainInterval(); err == nil {
		t.Fatal("expected error for bad duration")
	}
}
