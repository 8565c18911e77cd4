package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/memtide/memtide/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		title       TEXT,
		content     TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT 'learned',
		importance  REAL NOT NULL DEFAULT 0.5,
		tags        TEXT,
		embedding   BLOB,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		archived    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner_id);
	CREATE INDEX IF NOT EXISTS idx_memories_owner_category ON memories(owner_id, category);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_archived ON memories(owner_id, archived);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, p InsertParams) (*model.MemoryRecord, error) {
	if p.OwnerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return nil, fmt.Errorf("content is required")
	}

	category := p.Category
	if category == "" {
		category = model.DefaultCategory
	}
	if !model.ValidCategories[category] {
		return nil, fmt.Errorf("invalid category %q", category)
	}

	importance := p.Importance
	if importance < 0 || importance > 1 {
		return nil, fmt.Errorf("importance %v out of range [0,1]", importance)
	}

	now := time.Now().UTC()
	id := s.newID()
	tags := model.NormalizeTags(p.Tags)

	var tagsJSON *string
	if len(tags) > 0 {
		b, _ := json.Marshal(tags)
		j := string(b)
		tagsJSON = &j
	}

	var blob []byte
	if len(p.Embedding) > 0 {
		blob = encodeEmbedding(p.Embedding)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, owner_id, title, content, category, importance, tags, embedding, created_at, updated_at, archived)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id, p.OwnerID, p.Title, p.Content, category, importance, tagsJSON, blob,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	return &model.MemoryRecord{
		ID:         id,
		OwnerID:    p.OwnerID,
		Title:      p.Title,
		Content:    p.Content,
		Category:   category,
		Importance: importance,
		Tags:       tags,
		Embedding:  p.Embedding,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ownerID, id string) (*model.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` FROM memories m WHERE m.owner_id = ? AND m.id = ?`,
		ownerID, id)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET embedding = ?, updated_at = ? WHERE id = ?`,
		encodeEmbedding(embedding), now, id)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) QueryByOwner(ctx context.Context, ownerID string, f Filters) ([]model.MemoryRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}

	where := []string{"m.owner_id = ?", "m.archived = 0"}
	args := []interface{}{ownerID}

	if f.Category != "" {
		where = append(where, "m.category = ?")
		args = append(args, f.Category)
	}
	for _, tag := range model.NormalizeTags(f.Tags) {
		where = append(where, "m.tags LIKE ?")
		args = append(args, "%\""+tag+"\"%")
	}
	if f.OnlyEmbedded {
		where = append(where, "m.embedding IS NOT NULL")
	}

	query := fmt.Sprintf(selectColumns+`
		FROM memories m
		WHERE %s
		ORDER BY m.created_at DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	return s.queryMemories(ctx, query, args...)
}

func (s *SQLiteStore) Archive(ctx context.Context, ownerID, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET archived = 1, updated_at = ? WHERE owner_id = ? AND id = ? AND archived = 0`,
		now, ownerID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...interface{}) ([]model.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.MemoryRecord
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

const selectColumns = `SELECT m.id, m.owner_id, m.title, m.content, m.category, m.importance,
	       m.tags, m.embedding, m.created_at, m.updated_at, m.archived`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.MemoryRecord, error) {
	var m model.MemoryRecord
	var title, tagsJSON sql.NullString
	var blob []byte
	var createdAt, updatedAt string
	var archived int

	err := row.Scan(
		&m.ID, &m.OwnerID, &title, &m.Content, &m.Category, &m.Importance,
		&tagsJSON, &blob, &createdAt, &updatedAt, &archived,
	)
	if err != nil {
		return m, err
	}

	if title.Valid {
		m.Title = title.String
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if len(blob) > 0 {
		m.Embedding = decodeEmbedding(blob)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	m.Archived = archived != 0

	return m, nil
}

// Embeddings are stored as little-endian float32 BLOBs, 4 bytes per
// dimension. Similarity math runs in Go, not SQL.

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
