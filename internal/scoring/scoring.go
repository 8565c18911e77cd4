// Package scoring turns raw match signals into a single ranking key.
//
// A candidate's key combines its similarity score, a time-decay factor,
// its importance weight, and a semantic-link boost for tags shared with
// the currently active tag set. All constants live in Config so tests
// and callers can override them without process-wide side effects.
package scoring

import (
	"math"
	"time"

	"github.com/memtide/memtide/internal/model"
)

// Weights blend the composite strategy's signals. They should sum to 1.
type Weights struct {
	Similarity float64 `yaml:"similarity"`
	Recency    float64 `yaml:"recency"`
	Importance float64 `yaml:"importance"`
	LinkBoost  float64 `yaml:"link_boost"`
}

// Config holds the scoring constants.
type Config struct {
	// HalfLifeDays is the age at which the decay factor halves.
	HalfLifeDays float64
	// MinDecay floors the decay factor so memories never fully expire.
	MinDecay float64
	// TagBoost is added per tag shared with the active set.
	TagBoost float64
	// MaxTagBoost caps the total semantic-link boost.
	MaxTagBoost float64
	// Weights apply to the composite strategy.
	Weights Weights
}

// DefaultConfig returns the default scoring constants.
func DefaultConfig() Config {
	return Config{
		HalfLifeDays: 30,
		MinDecay:     0.1,
		TagBoost:     0.05,
		MaxTagBoost:  0.2,
		Weights: Weights{
			Similarity: 0.4,
			Recency:    0.25,
			Importance: 0.25,
			LinkBoost:  0.1,
		},
	}
}

// Decay returns the time-decay factor for a memory of the given age:
// max(MinDecay, 2^(-ageDays/halfLife)). Decay(0) == 1 and the factor
// approaches MinDecay as age grows, so old memories fade but never vanish.
func (c Config) Decay(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	days := age.Hours() / 24.0
	d := math.Pow(2, -days/c.HalfLifeDays)
	return math.Max(c.MinDecay, d)
}

// SemanticLinkBoost rewards candidates topically linked to the active tag
// set: TagBoost per shared tag, capped at MaxTagBoost.
func (c Config) SemanticLinkBoost(tags, activeTags []string) float64 {
	if len(tags) == 0 || len(activeTags) == 0 {
		return 0
	}
	active := make(map[string]bool, len(activeTags))
	for _, t := range activeTags {
		active[t] = true
	}
	boost := 0.0
	for _, t := range tags {
		if active[t] {
			boost += c.TagBoost
		}
	}
	return math.Min(boost, c.MaxTagBoost)
}

// Input carries the per-candidate signals fed into Rank.
type Input struct {
	// Similarity is the raw match score: cosine similarity for vector
	// candidates, 1 for a plain text match.
	Similarity float64
	Importance float64
	CreatedAt  time.Time
	Tags       []string
}

// Tie-breaker scales keep the secondary signals well below one step of the
// dominant signal for the recency and importance strategies.
const (
	tieBreak      = 0.01
	minorTieBreak = 0.001
)

// Rank computes the ranking key for a candidate under the given strategy.
// Higher is better. activeTags feed the semantic-link boost and are only
// consulted by the composite strategy.
func (c Config) Rank(strategy model.Strategy, in Input, now time.Time, activeTags []string) float64 {
	switch strategy {
	case model.StrategySimilarity:
		return in.Similarity
	case model.StrategyRecency:
		return c.Decay(now.Sub(in.CreatedAt)) + tieBreak*in.Similarity + minorTieBreak*in.Importance
	case model.StrategyImportance:
		return in.Importance + tieBreak*c.Decay(now.Sub(in.CreatedAt))
	default: // composite
		w := c.Weights
		return in.Similarity*w.Similarity +
			c.Decay(now.Sub(in.CreatedAt))*w.Recency +
			in.Importance*w.Importance +
			c.SemanticLinkBoost(in.Tags, activeTags)*w.LinkBoost
	}
}
