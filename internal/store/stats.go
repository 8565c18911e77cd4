package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string          `json:"db_path"`
	DBSizeBytes     int64           `json:"db_size_bytes"`
	TotalRecords    int             `json:"total_records"`
	ActiveRecords   int             `json:"active_records"`
	EmbeddedRecords int             `json:"embedded_records"`
	Categories      []CategoryStats `json:"categories,omitempty"`
}

// CategoryStats holds per-category counts.
type CategoryStats struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Stats returns database statistics, scoped to one owner when ownerID is
// non-empty.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath, ownerID string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	where := ""
	var args []interface{}
	if ownerID != "" {
		where = " WHERE owner_id = ?"
		args = append(args, ownerID)
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`+where, args...).Scan(&st.TotalRecords)
	s.db.QueryRowContext(ctx, activeCount(where), args...).Scan(&st.ActiveRecords)
	s.db.QueryRowContext(ctx, embeddedCount(where), args...).Scan(&st.EmbeddedRecords)

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS cnt
		FROM memories`+archivedClause(where)+`
		GROUP BY category ORDER BY cnt DESC`, args...)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs CategoryStats
		rows.Scan(&cs.Category, &cs.Count)
		st.Categories = append(st.Categories, cs)
	}

	return st, rows.Err()
}

func activeCount(where string) string {
	return `SELECT COUNT(*) FROM memories` + archivedClause(where)
}

func embeddedCount(where string) string {
	return `SELECT COUNT(*) FROM memories` + archivedClause(where) + ` AND embedding IS NOT NULL`
}

func archivedClause(where string) string {
	if where == "" {
		return ` WHERE archived = 0`
	}
	return where + ` AND archived = 0`
}
