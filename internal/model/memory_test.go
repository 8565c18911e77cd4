package model

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"Go", " go ", "DB", "", "db", "Cache"})
	want := []string{"go", "db", "cache"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if NormalizeTags(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestParseEmbeddingMode(t *testing.T) {
	cases := map[string]EmbeddingMode{
		"sync":     EmbedSync,
		"ASYNC":    EmbedAsync,
		"disabled": EmbedDisabled,
		"off":      EmbedDisabled,
		"":         EmbedDisabled,
		// Legacy boolean spellings.
		"true":  EmbedSync,
		"false": EmbedDisabled,
	}
	for in, want := range cases {
		got, err := ParseEmbeddingMode(in)
		if err != nil {
			t.Fatalf("ParseEmbeddingMode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseEmbeddingMode(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseEmbeddingMode("later"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestParseStrategy(t *testing.T) {
	got, err := ParseStrategy("")
	if err != nil || got != StrategyComposite {
		t.Fatalf("expected composite default, got %q (%v)", got, err)
	}

	for _, s := range []string{"similarity", "composite", "recency", "importance"} {
		if _, err := ParseStrategy(s); err != nil {
			t.Fatalf("ParseStrategy(%q): %v", s, err)
		}
	}

	if _, err := ParseStrategy("magic"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
