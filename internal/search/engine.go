// Package search implements the strategy engine: it sources candidates
// from the store, scores them, and enforces each strategy's fallback
// policy and the owner-scoping invariant.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/memtide/memtide/internal/embedding"
	"github.com/memtide/memtide/internal/model"
	"github.com/memtide/memtide/internal/scoring"
	"github.com/memtide/memtide/internal/store"
	"github.com/memtide/memtide/internal/vecmath"
)

// Errors returned by the engine.
var (
	// ErrSemanticSearchFailed means the embedding provider failed during a
	// strategy that forbids fallback. It is never raised for a genuinely
	// empty result set, which is a success.
	ErrSemanticSearchFailed = errors.New("search: semantic search failed")

	// ErrOwnerMismatch marks a record crossing the tenant boundary. The
	// store should make this impossible; the engine drops such records and
	// logs them as invariant violations rather than returning them.
	ErrOwnerMismatch = errors.New("search: record owner mismatch")
)

// Default thresholds per strategy.
const (
	DefaultSimilarityThreshold = 0.3
	DefaultCompositeThreshold  = 0.6
)

// Source names a candidate signal that contributed to a result.
type Source string

const (
	SourceVector Source = "vector"
	SourceText   Source = "text"
)

// Params describes one search request.
type Params struct {
	OwnerID  string
	Query    string
	Strategy model.Strategy
	// Threshold filters final ranking keys for similarity/composite.
	// Negative means the strategy default.
	Threshold float64
	Limit     int
	Category  string
	// ActiveTags is the contextually active tag set feeding the
	// semantic-link boost.
	ActiveTags []string
}

// ScoredRecord is a ranked result.
type ScoredRecord struct {
	model.MemoryRecord
	Score float64 `json:"score"`
	// Similarity is the raw vector similarity, 0 when no embedding ran.
	Similarity float64 `json:"similarity,omitempty"`
}

// Result is a ranked, owner-scoped result set. Sources records which
// signals actually ran, so callers can tell a semantic match from a
// keyword-only fallback.
type Result struct {
	Records []ScoredRecord `json:"records"`
	Sources []Source       `json:"sources"`
}

// Candidates is the slice of the store the engine needs.
type Candidates interface {
	QueryByOwner(ctx context.Context, ownerID string, f store.Filters) ([]model.MemoryRecord, error)
	TextSearch(ctx context.Context, ownerID, query string, limit int) ([]model.MemoryRecord, error)
}

// Engine is the state-free strategy dispatcher.
type Engine struct {
	source   Candidates
	embedder embedding.Embedder
	scoring  scoring.Config
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock injects the clock used for decay, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine. embedder may be nil (semantic search disabled:
// similarity fails, composite degrades to text).
func New(source Candidates, embedder embedding.Embedder, cfg scoring.Config, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		embedder: embedder,
		scoring:  cfg,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Search runs one request under its strategy's contract.
func (e *Engine) Search(ctx context.Context, p Params) (*Result, error) {
	if p.OwnerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.Strategy == "" {
		p.Strategy = model.StrategyComposite
	}
	if p.Threshold < 0 {
		p.Threshold = defaultThreshold(p.Strategy)
	}
	p.ActiveTags = model.NormalizeTags(p.ActiveTags)

	switch p.Strategy {
	case model.StrategySimilarity:
		return e.searchSimilarity(ctx, p)
	case model.StrategyComposite:
		return e.searchComposite(ctx, p)
	case model.StrategyRecency, model.StrategyImportance:
		return e.searchScan(ctx, p)
	}
	return nil, fmt.Errorf("unknown strategy %q", p.Strategy)
}

func defaultThreshold(s model.Strategy) float64 {
	switch s {
	case model.StrategySimilarity:
		return DefaultSimilarityThreshold
	case model.StrategyComposite:
		return DefaultCompositeThreshold
	}
	return 0
}

// searchSimilarity is pure recall by meaning: vector candidates only.
// A provider failure is an error; an empty result set above threshold is
// a success. There is no text fallback on this path.
func (e *Engine) searchSimilarity(ctx context.Context, p Params) (*Result, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured", ErrSemanticSearchFailed)
	}

	query, err := e.embedder.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSemanticSearchFailed, err)
	}

	candidates, err := e.source.QueryByOwner(ctx, p.OwnerID, store.Filters{
		Category:     p.Category,
		OnlyEmbedded: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	candidates = e.ownerGuard(candidates, p.OwnerID)

	vectors := make([][]float32, len(candidates))
	for i := range candidates {
		vectors[i] = candidates[i].Embedding
	}

	top := vecmath.TopKBySimilarity(query, vectors, p.Threshold, p.Limit)
	records := make([]ScoredRecord, 0, len(top))
	for _, t := range top {
		records = append(records, ScoredRecord{
			MemoryRecord: candidates[t.Index],
			Score:        t.Similarity,
			Similarity:   t.Similarity,
		})
	}

	return &Result{Records: records, Sources: []Source{SourceVector}}, nil
}

// searchComposite blends vector and text candidates. An embedding provider
// failure degrades silently to text-only; Sources reflects what ran.
func (e *Engine) searchComposite(ctx context.Context, p Params) (*Result, error) {
	type candidate struct {
		record     model.MemoryRecord
		similarity float64
	}

	var sources []Source
	byID := make(map[string]*candidate)
	var order []string

	if e.embedder != nil {
		query, err := e.embedder.Embed(ctx, p.Query)
		if err != nil {
			e.logger.Warn("embedding provider failed, falling back to text candidates",
				"owner", p.OwnerID, "error", err)
		} else {
			vecCands, err := e.source.QueryByOwner(ctx, p.OwnerID, store.Filters{
				Category:     p.Category,
				OnlyEmbedded: true,
			})
			if err != nil {
				return nil, fmt.Errorf("query candidates: %w", err)
			}
			for _, rec := range e.ownerGuard(vecCands, p.OwnerID) {
				sim := vecmath.CosineSimilarity(query, rec.Embedding)
				byID[rec.ID] = &candidate{record: rec, similarity: sim}
				order = append(order, rec.ID)
			}
			sources = append(sources, SourceVector)
		}
	}

	textCands, err := e.source.TextSearch(ctx, p.OwnerID, p.Query, p.Limit*5)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	for _, rec := range e.ownerGuard(textCands, p.OwnerID) {
		if c, ok := byID[rec.ID]; ok {
			// Matched both ways: a direct text hit is at least as strong
			// as its vector similarity.
			if c.similarity < 1 {
				c.similarity = 1
			}
			continue
		}
		byID[rec.ID] = &candidate{record: rec, similarity: 1}
		order = append(order, rec.ID)
	}
	sources = append(sources, SourceText)

	now := e.now()
	records := make([]ScoredRecord, 0, len(order))
	for _, id := range order {
		c := byID[id]
		key := e.scoring.Rank(model.StrategyComposite, scoring.Input{
			Similarity: c.similarity,
			Importance: c.record.Importance,
			CreatedAt:  c.record.CreatedAt,
			Tags:       c.record.Tags,
		}, now, p.ActiveTags)
		if key < p.Threshold {
			continue
		}
		records = append(records, ScoredRecord{
			MemoryRecord: c.record,
			Score:        key,
			Similarity:   c.similarity,
		})
	}

	records = sortAndTrim(records, p.Limit)
	return &Result{Records: records, Sources: sources}, nil
}

// searchScan handles recency and importance: an owner-scoped superset scan
// (narrowed by text match when a query is given) re-sorted by the scoring
// key.
func (e *Engine) searchScan(ctx context.Context, p Params) (*Result, error) {
	var (
		candidates []model.MemoryRecord
		err        error
		sources    []Source
	)
	if p.Query != "" {
		candidates, err = e.source.TextSearch(ctx, p.OwnerID, p.Query, p.Limit*5)
		sources = []Source{SourceText}
	} else {
		candidates, err = e.source.QueryByOwner(ctx, p.OwnerID, store.Filters{Category: p.Category})
		sources = nil
	}
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	candidates = e.ownerGuard(candidates, p.OwnerID)

	now := e.now()
	records := make([]ScoredRecord, 0, len(candidates))
	for _, rec := range candidates {
		key := e.scoring.Rank(p.Strategy, scoring.Input{
			Importance: rec.Importance,
			CreatedAt:  rec.CreatedAt,
			Tags:       rec.Tags,
		}, now, p.ActiveTags)
		records = append(records, ScoredRecord{MemoryRecord: rec, Score: key})
	}

	records = sortAndTrim(records, p.Limit)
	return &Result{Records: records, Sources: sources}, nil
}

// ownerGuard drops any record whose owner does not match the request.
// The store enforces scoping already; a hit here is an invariant violation
// worth logging, never worth returning.
func (e *Engine) ownerGuard(records []model.MemoryRecord, ownerID string) []model.MemoryRecord {
	out := records[:0]
	for _, rec := range records {
		if rec.OwnerID != ownerID {
			e.logger.Error("dropping cross-owner record",
				"error", ErrOwnerMismatch, "record", rec.ID,
				"record_owner", rec.OwnerID, "request_owner", ownerID)
			continue
		}
		out = append(out, rec)
	}
	return out
}

func sortAndTrim(records []ScoredRecord, limit int) []ScoredRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
