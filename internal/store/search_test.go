package store

import (
	"context"
	"testing"
)

func TestTextSearch_Basic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, InsertParams{OwnerID: "alice", Title: "golang", Content: "Go is a compiled language", Importance: 0.5})
	s.Insert(ctx, InsertParams{OwnerID: "alice", Content: "Python is an interpreted language", Importance: 0.5})
	s.Insert(ctx, InsertParams{OwnerID: "bob", Content: "Rust has a borrow checker language", Importance: 0.5})

	// Matches content, owner-scoped.
	results, err := s.TextSearch(ctx, "alice", "language", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Matches title.
	results, err = s.TextSearch(ctx, "alice", "golang", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	// No results.
	results, err = s.TextSearch(ctx, "alice", "javascript", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestTextSearch_ArchivedExcluded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, _ := s.Insert(ctx, InsertParams{OwnerID: "alice", Content: "this should not appear", Importance: 0.5})
	s.Archive(ctx, "alice", rec.ID)

	results, err := s.TextSearch(ctx, "alice", "should not appear", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0, got %d", len(results))
	}
}

func TestTextSearch_NeverLeaksAcrossOwners(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, InsertParams{OwnerID: "alice", Content: "confidential plan A", Importance: 0.5})
	s.Insert(ctx, InsertParams{OwnerID: "bob", Content: "confidential plan B", Importance: 0.5})

	results, err := s.TextSearch(ctx, "alice", "confidential", 20)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.OwnerID != "alice" {
			t.Fatalf("leaked record owned by %q", r.OwnerID)
		}
	}
	if len(results) != 1 {
		t.Fatalf("expected 1, got %d", len(results))
	}
}
