package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memtide/memtide/internal/model"
)

func TestDecay(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1.0, cfg.Decay(0), "fresh memories decay to exactly 1")

	// Halves at the half-life.
	assert.InDelta(t, 0.5, cfg.Decay(30*24*time.Hour), 1e-9)

	// Non-increasing with age.
	prev := 1.0
	for days := 1; days <= 400; days += 7 {
		d := cfg.Decay(time.Duration(days) * 24 * time.Hour)
		assert.LessOrEqual(t, d, prev, "decay increased at day %d", days)
		prev = d
	}

	// Floored at MinDecay, never zero.
	assert.Equal(t, 0.1, cfg.Decay(10*365*24*time.Hour))
	assert.Greater(t, cfg.Decay(100*365*24*time.Hour), 0.0)
}

func TestSemanticLinkBoost(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.0, cfg.SemanticLinkBoost(nil, []string{"go"}))
	assert.Equal(t, 0.0, cfg.SemanticLinkBoost([]string{"go"}, nil))
	assert.InDelta(t, 0.05, cfg.SemanticLinkBoost([]string{"go", "db"}, []string{"go"}), 1e-9)
	assert.InDelta(t, 0.1, cfg.SemanticLinkBoost([]string{"go", "db"}, []string{"go", "db"}), 1e-9)

	// Capped at MaxTagBoost regardless of shared tag count.
	many := []string{"a", "b", "c", "d", "e", "f", "g"}
	assert.InDelta(t, 0.2, cfg.SemanticLinkBoost(many, many), 1e-9)
}

func TestRank_Similarity(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()

	// Pure recall by meaning: only similarity matters.
	old := Input{Similarity: 0.8, Importance: 0.1, CreatedAt: now.AddDate(-1, 0, 0)}
	fresh := Input{Similarity: 0.7, Importance: 1.0, CreatedAt: now}

	assert.Greater(t,
		cfg.Rank(model.StrategySimilarity, old, now, nil),
		cfg.Rank(model.StrategySimilarity, fresh, now, nil))
}

func TestRank_Recency(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()

	fresh := Input{Similarity: 0, Importance: 0, CreatedAt: now}
	old := Input{Similarity: 1, Importance: 1, CreatedAt: now.AddDate(0, -6, 0)}

	// Age dominates even a perfect similarity and importance.
	assert.Greater(t,
		cfg.Rank(model.StrategyRecency, fresh, now, nil),
		cfg.Rank(model.StrategyRecency, old, now, nil))

	// Equal age: similarity breaks the tie.
	a := Input{Similarity: 0.9, CreatedAt: now.AddDate(0, 0, -3)}
	b := Input{Similarity: 0.1, CreatedAt: now.AddDate(0, 0, -3)}
	assert.Greater(t,
		cfg.Rank(model.StrategyRecency, a, now, nil),
		cfg.Rank(model.StrategyRecency, b, now, nil))
}

func TestRank_Importance(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()

	critical := Input{Importance: 1.0, CreatedAt: now.AddDate(-1, 0, 0)}
	trivial := Input{Importance: 0.1, CreatedAt: now}

	assert.Greater(t,
		cfg.Rank(model.StrategyImportance, critical, now, nil),
		cfg.Rank(model.StrategyImportance, trivial, now, nil))

	// Equal importance: recency breaks the tie.
	a := Input{Importance: 0.5, CreatedAt: now}
	b := Input{Importance: 0.5, CreatedAt: now.AddDate(0, -3, 0)}
	assert.Greater(t,
		cfg.Rank(model.StrategyImportance, a, now, nil),
		cfg.Rank(model.StrategyImportance, b, now, nil))
}

func TestRank_Composite(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()

	in := Input{Similarity: 1, Importance: 1, CreatedAt: now, Tags: []string{"go"}}
	key := cfg.Rank(model.StrategyComposite, in, now, []string{"go"})

	// s*0.4 + decay*0.25 + imp*0.25 + boost(0.05)*0.1
	assert.InDelta(t, 0.4+0.25+0.25+0.05*0.1, key, 1e-9)

	// The link boost rewards topical overlap.
	without := cfg.Rank(model.StrategyComposite, in, now, nil)
	assert.Greater(t, key, without)
}
