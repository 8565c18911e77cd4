// Package store provides the memory record storage interface and its
// SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/memtide/memtide/internal/model"
)

// ErrNotFound is returned when a record does not exist for the owner.
var ErrNotFound = errors.New("store: memory not found")

// InsertParams holds parameters for persisting a new record.
type InsertParams struct {
	OwnerID    string
	Title      string
	Content    string
	Category   string
	Importance float64
	Tags       []string
	Embedding  []float32 // optional, present for sync writes
}

// Filters narrows an owner-scoped query.
type Filters struct {
	Category string
	Tags     []string
	// OnlyEmbedded restricts to records with a computed embedding,
	// the candidate set for vector similarity.
	OnlyEmbedded bool
	Limit        int
}

// Store defines owner-scoped record storage. Every read and write is
// filtered by owner; the store never returns another owner's records.
type Store interface {
	// Insert persists a new record and returns it with ID and timestamps set.
	Insert(ctx context.Context, p InsertParams) (*model.MemoryRecord, error)

	// Get retrieves one record by ID, scoped to the owner.
	Get(ctx context.Context, ownerID, id string) (*model.MemoryRecord, error)

	// UpdateEmbedding sets the embedding for a record. Called exactly once
	// per record by the drain loop (or never, for sync/disabled writes).
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error

	// QueryByOwner returns non-archived records for the owner matching the
	// filters, newest first.
	QueryByOwner(ctx context.Context, ownerID string, f Filters) ([]model.MemoryRecord, error)

	// TextSearch returns non-archived records whose title or content
	// contains the query, newest first.
	TextSearch(ctx context.Context, ownerID, query string, limit int) ([]model.MemoryRecord, error)

	// Archive soft-deletes a record.
	Archive(ctx context.Context, ownerID, id string) error

	// Close closes the store.
	Close() error
}
