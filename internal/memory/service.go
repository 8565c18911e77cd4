// Package memory composes the store, embedding provider, durable buffer
// and search engine into the memory core: writes decide between
// synchronous and deferred embedding, reads return ranked results.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memtide/memtide/internal/buffer"
	"github.com/memtide/memtide/internal/embedding"
	"github.com/memtide/memtide/internal/model"
	"github.com/memtide/memtide/internal/scoring"
	"github.com/memtide/memtide/internal/search"
	"github.com/memtide/memtide/internal/store"
)

// Service is the memory core orchestrator.
type Service struct {
	store    store.Store
	embedder embedding.Embedder
	buf      *buffer.Buffer
	engine   *search.Engine
	logger   *slog.Logger

	baseRetryDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBaseRetryDelay sets the backoff base for failed embedding jobs
// (delay = base * 2^attempts).
func WithBaseRetryDelay(d time.Duration) Option {
	return func(s *Service) { s.baseRetryDelay = d }
}

// New creates a Service. embedder may be nil: sync and async writes then
// fail with a clear error, disabled writes and non-semantic reads work.
func New(st store.Store, embedder embedding.Embedder, buf *buffer.Buffer, cfg scoring.Config, opts ...Option) *Service {
	s := &Service{
		store:          st,
		embedder:       embedder,
		buf:            buf,
		logger:         slog.Default(),
		baseRetryDelay: 2 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	s.engine = search.New(st, embedder, cfg, search.WithLogger(s.logger))
	return s
}

// AddParams holds the caller-settable fields of a new memory.
type AddParams struct {
	OwnerID  string
	Title    string
	Content  string
	Category string
	// Importance in [0,1]; nil means the default (0.5).
	Importance *float64
	Tags       []string
}

// AddResult reports what the write produced. EmbeddingQueued means a
// buffer item now owns the embedding computation.
type AddResult struct {
	Record          *model.MemoryRecord `json:"record"`
	HasEmbedding    bool                `json:"has_embedding"`
	EmbeddingQueued bool                `json:"embedding_queued"`
	BufferItemID    string              `json:"buffer_item_id,omitempty"`
}

// AddMemory persists a new memory record.
//
// sync mode embeds before persisting and fails the whole write on provider
// failure. async mode persists immediately, enqueues the embedding work and
// returns; a full buffer fails the write (hard backpressure, never a silent
// drop). disabled mode persists without ever enqueueing.
func (s *Service) AddMemory(ctx context.Context, p AddParams, mode model.EmbeddingMode) (*AddResult, error) {
	importance := model.DefaultImportance
	if p.Importance != nil {
		importance = *p.Importance
	}

	insert := store.InsertParams{
		OwnerID:    p.OwnerID,
		Title:      p.Title,
		Content:    p.Content,
		Category:   p.Category,
		Importance: importance,
		Tags:       p.Tags,
	}

	switch mode {
	case model.EmbedSync:
		if s.embedder == nil {
			return nil, fmt.Errorf("sync embedding requested but no provider configured")
		}
		vec, err := s.embedder.Embed(ctx, EmbeddingPayload(p.Title, p.Content, p.Tags, p.Category))
		if err != nil {
			return nil, fmt.Errorf("embed memory: %w", err)
		}
		insert.Embedding = vec

		rec, err := s.store.Insert(ctx, insert)
		if err != nil {
			return nil, err
		}
		return &AddResult{Record: rec, HasEmbedding: true}, nil

	case model.EmbedAsync:
		rec, err := s.store.Insert(ctx, insert)
		if err != nil {
			return nil, err
		}
		payload := EmbeddingPayload(rec.Title, rec.Content, rec.Tags, rec.Category)
		itemID, err := s.buf.Enqueue(rec.ID, payload)
		if err != nil {
			// The record is persisted; the embedding path is refused.
			return nil, fmt.Errorf("enqueue embedding for %s: %w", rec.ID, err)
		}
		s.logger.Debug("embedding queued", "record", rec.ID, "item", itemID)
		return &AddResult{Record: rec, EmbeddingQueued: true, BufferItemID: itemID}, nil

	case model.EmbedDisabled:
		rec, err := s.store.Insert(ctx, insert)
		if err != nil {
			return nil, err
		}
		return &AddResult{Record: rec}, nil
	}

	return nil, fmt.Errorf("unknown embedding mode %q", mode)
}

// SearchMemories returns ranked, owner-scoped results.
func (s *Service) SearchMemories(ctx context.Context, p search.Params) (*search.Result, error) {
	return s.engine.Search(ctx, p)
}

// GetMemory retrieves one record.
func (s *Service) GetMemory(ctx context.Context, ownerID, id string) (*model.MemoryRecord, error) {
	return s.store.Get(ctx, ownerID, id)
}

// ListMemories lists non-archived records for the owner.
func (s *Service) ListMemories(ctx context.Context, ownerID string, f store.Filters) ([]model.MemoryRecord, error) {
	return s.store.QueryByOwner(ctx, ownerID, f)
}

// ArchiveMemory soft-deletes a record.
func (s *Service) ArchiveMemory(ctx context.Context, ownerID, id string) error {
	return s.store.Archive(ctx, ownerID, id)
}

// BufferMetrics exposes the buffer's backpressure signal.
func (s *Service) BufferMetrics() buffer.Metrics {
	return s.buf.Metrics()
}

// EmbeddingPayload builds the stable text snapshot embedded for a record:
// title, content, tags and category. Async items capture it at enqueue
// time and never re-read the record.
func EmbeddingPayload(title, content string, tags []string, category string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n")
	}
	b.WriteString(content)
	if len(tags) > 0 {
		b.WriteString("\ntags: ")
		b.WriteString(strings.Join(model.NormalizeTags(tags), ", "))
	}
	if category != "" {
		b.WriteString("\ncategory: ")
		b.WriteString(category)
	}
	return b.String()
}
