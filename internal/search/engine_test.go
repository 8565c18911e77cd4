package search

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memtide/memtide/internal/model"
	"github.com/memtide/memtide/internal/scoring"
	"github.com/memtide/memtide/internal/store"
)

// fakeSource serves canned candidates.
type fakeSource struct {
	records []model.MemoryRecord
	textErr error
}

func (f *fakeSource) QueryByOwner(ctx context.Context, ownerID string, fl store.Filters) ([]model.MemoryRecord, error) {
	var out []model.MemoryRecord
	for _, r := range f.records {
		if r.OwnerID != ownerID {
			continue
		}
		if fl.OnlyEmbedded && !r.HasEmbedding() {
			continue
		}
		if fl.Category != "" && r.Category != fl.Category {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeSource) TextSearch(ctx context.Context, ownerID, query string, limit int) ([]model.MemoryRecord, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	var out []model.MemoryRecord
	for _, r := range f.records {
		if r.OwnerID == ownerID && strings.Contains(r.Content, query) {
			out = append(out, r)
		}
	}
	return out, nil
}


// fakeEmbedder returns a fixed vector or an error.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Dims() int { return len(f.vec) }

func rec(id, owner, content string, embedding []float32, created time.Time) model.MemoryRecord {
	return model.MemoryRecord{
		ID:         id,
		OwnerID:    owner,
		Content:    content,
		Category:   "learned",
		Importance: 0.5,
		Embedding:  embedding,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestSimilarity_EmptyResultIsSuccess(t *testing.T) {
	now := time.Now()
	src := &fakeSource{records: []model.MemoryRecord{
		rec("m1", "alice", "about cooking", []float32{0, 1}, now),
	}}
	emb := &fakeEmbedder{vec: []float32{1, 0.1}} // max similarity ~0.1

	e := New(src, emb, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Query: "anything", Strategy: model.StrategySimilarity, Threshold: 0.99, Limit: 10,
	})

	require.NoError(t, err, "an empty result set is not an error")
	assert.Empty(t, res.Records)
	assert.Equal(t, []Source{SourceVector}, res.Sources)
}

func TestSimilarity_ProviderFailureIsError(t *testing.T) {
	src := &fakeSource{records: []model.MemoryRecord{
		rec("m1", "alice", "matching text anything", nil, time.Now()),
	}}
	emb := &fakeEmbedder{err: errors.New("quota exceeded")}

	e := New(src, emb, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Query: "anything", Strategy: model.StrategySimilarity, Threshold: -1, Limit: 10,
	})

	// Never silently substituted text results.
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSemanticSearchFailed)
}

func TestSimilarity_NoProviderIsError(t *testing.T) {
	e := New(&fakeSource{}, nil, scoring.DefaultConfig())
	_, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Query: "q", Strategy: model.StrategySimilarity, Threshold: -1,
	})
	assert.ErrorIs(t, err, ErrSemanticSearchFailed)
}

func TestSimilarity_RanksByCosine(t *testing.T) {
	now := time.Now()
	src := &fakeSource{records: []model.MemoryRecord{
		rec("far", "alice", "a", []float32{0, 1}, now),
		rec("close", "alice", "b", []float32{1, 0.1}, now),
		rec("exact", "alice", "c", []float32{1, 0}, now),
		rec("unembedded", "alice", "d", nil, now),
	}}
	emb := &fakeEmbedder{vec: []float32{1, 0}}

	e := New(src, emb, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Query: "q", Strategy: model.StrategySimilarity, Threshold: 0.3, Limit: 10,
	})

	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "exact", res.Records[0].ID)
	assert.Equal(t, "close", res.Records[1].ID)
	assert.InDelta(t, 1.0, res.Records[0].Similarity, 1e-6)
}

func TestComposite_FallsBackToTextOnProviderFailure(t *testing.T) {
	now := time.Now()
	src := &fakeSource{records: []model.MemoryRecord{
		rec("m1", "alice", "notes about deadlines", nil, now),
	}}
	emb := &fakeEmbedder{err: errors.New("connection refused")}

	e := New(src, emb, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Query: "deadlines", Strategy: model.StrategyComposite, Threshold: -1, Limit: 10,
	})

	require.NoError(t, err, "composite degrades instead of failing")
	require.Len(t, res.Records, 1)
	assert.Equal(t, "m1", res.Records[0].ID)
	// Metadata tells the caller only keywords ran.
	assert.Equal(t, []Source{SourceText}, res.Sources)
}

func TestComposite_MergesVectorAndText(t *testing.T) {
	now := time.Now()
	src := &fakeSource{records: []model.MemoryRecord{
		rec("vec-only", "alice", "unrelated words", []float32{1, 1}, now),
		rec("both", "alice", "deadlines matter", []float32{0.9, 0.1}, now),
		rec("text-only", "alice", "more deadlines", nil, now),
	}}
	emb := &fakeEmbedder{vec: []float32{1, 0}}

	e := New(src, emb, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Query: "deadlines", Strategy: model.StrategyComposite, Threshold: 0, Limit: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, []Source{SourceVector, SourceText}, res.Sources)
	require.Len(t, res.Records, 3)

	byID := map[string]ScoredRecord{}
	for _, r := range res.Records {
		byID[r.ID] = r
	}
	// A direct text hit counts at least as strong as its vector similarity.
	assert.Equal(t, 1.0, byID["both"].Similarity)
	assert.Equal(t, 1.0, byID["text-only"].Similarity)
	assert.Less(t, byID["vec-only"].Similarity, 1.0)
}

func TestRecency_NewestFirst(t *testing.T) {
	now := time.Now()
	src := &fakeSource{records: []model.MemoryRecord{
		rec("old", "alice", "x", nil, now.AddDate(0, -6, 0)),
		rec("new", "alice", "x", nil, now),
		rec("mid", "alice", "x", nil, now.AddDate(0, -1, 0)),
	}}

	e := New(src, nil, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Strategy: model.StrategyRecency, Threshold: -1, Limit: 10,
	})

	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "new", res.Records[0].ID)
	assert.Equal(t, "mid", res.Records[1].ID)
	assert.Equal(t, "old", res.Records[2].ID)
}

func TestImportance_DominatesAge(t *testing.T) {
	now := time.Now()
	critical := rec("critical", "alice", "x", nil, now.AddDate(-1, 0, 0))
	critical.Importance = 1.0
	trivial := rec("trivial", "alice", "x", nil, now)
	trivial.Importance = 0.2

	src := &fakeSource{records: []model.MemoryRecord{trivial, critical}}
	e := New(src, nil, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Strategy: model.StrategyImportance, Threshold: -1, Limit: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, "critical", res.Records[0].ID)
}

func TestOwnerGuard_DropsCrossOwnerRecords(t *testing.T) {
	// A buggy source returning another owner's record must never leak it.
	now := time.Now()
	src := &leakySource{records: []model.MemoryRecord{
		rec("mine", "alice", "confidential", nil, now),
		rec("theirs", "bob", "confidential", nil, now),
	}}

	e := New(src, nil, scoring.DefaultConfig())
	res, err := e.Search(context.Background(), Params{
		OwnerID: "alice", Query: "confidential", Strategy: model.StrategyRecency, Threshold: -1, Limit: 10,
	})

	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "mine", res.Records[0].ID)
}

// leakySource ignores owner scoping entirely.
type leakySource struct {
	records []model.MemoryRecord
}

func (l *leakySource) QueryByOwner(ctx context.Context, ownerID string, f store.Filters) ([]model.MemoryRecord, error) {
	return l.records, nil
}

func (l *leakySource) TextSearch(ctx context.Context, ownerID, query string, limit int) ([]model.MemoryRecord, error) {
	return l.records, nil
}

func TestOwnerIsolation_AllStrategies(t *testing.T) {
	// End to end against the real store: owner A never sees owner B's
	// records under any strategy.
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, err = s.Insert(ctx, store.InsertParams{OwnerID: "alice", Content: "confidential alpha", Importance: 0.5, Embedding: []float32{1, 0}})
	require.NoError(t, err)
	_, err = s.Insert(ctx, store.InsertParams{OwnerID: "bob", Content: "confidential beta", Importance: 0.5, Embedding: []float32{1, 0}})
	require.NoError(t, err)

	emb := &fakeEmbedder{vec: []float32{1, 0}}
	e := New(s, emb, scoring.DefaultConfig())

	for _, strategy := range []model.Strategy{
		model.StrategySimilarity, model.StrategyComposite,
		model.StrategyRecency, model.StrategyImportance,
	} {
		res, err := e.Search(ctx, Params{
			OwnerID: "alice", Query: "confidential", Strategy: strategy, Threshold: 0, Limit: 10,
		})
		require.NoError(t, err, "strategy %s", strategy)
		require.NotEmpty(t, res.Records, "strategy %s", strategy)
		for _, r := range res.Records {
			assert.Equal(t, "alice", r.OwnerID, "strategy %s leaked a record", strategy)
		}
	}
}
