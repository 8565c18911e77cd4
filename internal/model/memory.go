// Package model defines the core memory data types.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MemoryRecord represents a stored unit of recall.
type MemoryRecord struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Importance float64   `json:"importance"`
	Tags       []string  `json:"tags,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Archived   bool      `json:"archived,omitempty"`
}

// HasEmbedding reports whether the record carries a computed embedding.
func (m *MemoryRecord) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// DefaultImportance is assigned when the caller does not set one.
const DefaultImportance = 0.5

// ValidCategories are the allowed memory categories.
var ValidCategories = map[string]bool{
	"system":   true,
	"learned":  true,
	"personal": true,
}

// DefaultCategory is used when none is given.
const DefaultCategory = "learned"

// NormalizeTags lowercases and deduplicates tags, preserving first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// EmbeddingMode controls how a write obtains its embedding.
type EmbeddingMode string

const (
	// EmbedSync computes the embedding before the record is persisted.
	EmbedSync EmbeddingMode = "sync"
	// EmbedAsync persists first and defers the embedding to the buffer.
	EmbedAsync EmbeddingMode = "async"
	// EmbedDisabled never computes an embedding for the record.
	EmbedDisabled EmbeddingMode = "disabled"
)

// ParseEmbeddingMode normalizes a mode string to the closed enum.
// Legacy boolean spellings ("true"/"false") map to sync/disabled.
func ParseEmbeddingMode(s string) (EmbeddingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync", "true":
		return EmbedSync, nil
	case "async":
		return EmbedAsync, nil
	case "disabled", "off", "false", "":
		return EmbedDisabled, nil
	}
	return "", fmt.Errorf("unknown embedding mode %q (use sync, async or disabled)", s)
}

// Strategy selects the ranking mode for a search.
type Strategy string

const (
	// StrategySimilarity ranks by raw vector similarity only.
	StrategySimilarity Strategy = "similarity"
	// StrategyComposite blends similarity, decay, importance and tag links.
	StrategyComposite Strategy = "composite"
	// StrategyRecency ranks newest-first with similarity as tie-breaker.
	StrategyRecency Strategy = "recency"
	// StrategyImportance ranks by importance with decay as tie-breaker.
	StrategyImportance Strategy = "importance"
)

// ParseStrategy validates a strategy name. Empty input defaults to composite.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySimilarity:
		return StrategySimilarity, nil
	case StrategyComposite, "":
		return StrategyComposite, nil
	case StrategyRecency:
		return StrategyRecency, nil
	case StrategyImportance:
		return StrategyImportance, nil
	}
	return "", fmt.Errorf("unknown strategy %q (use similarity, composite, recency or importance)", s)
}
