package store

import (
	"context"

	"github.com/memtide/memtide/internal/model"
)

// TextSearch finds non-archived records for the owner whose title or
// content contains the query substring, newest first.
func (s *SQLiteStore) TextSearch(ctx context.Context, ownerID, query string, limit int) ([]model.MemoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	like := "%" + query + "%"
	q := selectColumns + `
		FROM memories m
		WHERE m.owner_id = ? AND m.archived = 0
		  AND (m.content LIKE ? OR m.title LIKE ?)
		ORDER BY m.created_at DESC
		LIMIT ?`

	return s.queryMemories(ctx, q, ownerID, like, like, limit)
}
