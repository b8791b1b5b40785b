package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_LookupMiss(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Lookup(context.Background(), "m", "prompt", nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Error("expected miss on empty cache")
	}
}

func TestStore_SaveLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	opts := map[string]any{"temperature": 0.2, "num_ctx": 4096}

	if err := s.Save(ctx, "llama3", "Plural of cat", opts, "cats"); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.Lookup(ctx, "llama3", "Plural of cat", map[string]any{"num_ctx": 4096, "temperature": 0.2})
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != "cats" {
		t.Errorf("got %q, want cats", got)
	}

	if _, ok, _ := s.Lookup(ctx, "mistral", "Plural of cat", opts); ok {
		t.Error("different model must miss")
	}
	if _, ok, _ := s.Lookup(ctx, "llama3", "Plural of cat", map[string]any{"temperature": 0.9}); ok {
		t.Error("different options must miss")
	}
}

func TestStore_KeyUsesExactPrompt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// precomposed "é"
	if err := s.Save(ctx, "m", "caf\u00e9", nil, "cafés"); err != nil {
		t.Fatalf("save: %v", err)
	}
	for _, p := range []string{"cafe\u0301", " caf\u00e9", "caf\u00e9\n"} {
		if _, ok, err := s.Lookup(ctx, "m", p, nil); err != nil || ok {
			t.Errorf("%q: prompt differs from what was sent, expected miss (ok=%v err=%v)", p, ok, err)
		}
	}
	if got, ok, _ := s.Lookup(ctx, "m", "caf\u00e9", nil); !ok || got != "cafés" {
		t.Errorf("exact prompt should hit, got %q ok=%v", got, ok)
	}

	entries, err := s.List(ctx, 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("list: %v (%d entries)", err, len(entries))
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, "m", "p", nil, "first")
	_ = s.Save(ctx, "m", "p", nil, "second")

	got, _, _ := s.Lookup(ctx, "m", "p", nil)
	if got != "second" {
		t.Errorf("got %q, want second", got)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("expected a single entry, got %d", stats.TotalEntries)
	}
}

func TestStore_ListStatsDeleteClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, "a", "p1", nil, "r1")
	_ = s.Save(ctx, "a", "p2", nil, "r2")
	_ = s.Save(ctx, "b", "p3", nil, "r3")
	_, _, _ = s.Lookup(ctx, "a", "p1", nil)
	_, _, _ = s.Lookup(ctx, "a", "p1", nil)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 3 || stats.TotalHits != 2 || stats.Models != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	limited, _ := s.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(limited))
	}

	found, err := s.Delete(ctx, entries[0].ID)
	if err != nil || !found {
		t.Fatalf("delete: found=%v err=%v", found, err)
	}
	found, err = s.Delete(ctx, entries[0].ID)
	if err != nil || found {
		t.Errorf("second delete should report not found, got found=%v err=%v", found, err)
	}

	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cleared, got %d", n)
	}
}

type countingGenerator struct {
	calls int
	out   string
	err   error
}

func (g *countingGenerator) Generate(ctx context.Context, model, prompt string, options map[string]any) (string, error) {
	g.calls++
	return g.out, g.err
}

func TestCachingGenerator(t *testing.T) {
	s := newTestStore(t)
	next := &countingGenerator{out: "gats"}
	g := NewCachingGenerator(next, s, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := g.Generate(ctx, "m", "Plural of gat", nil)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if out != "gats" {
			t.Fatalf("got %q", out)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected one upstream call, got %d", next.calls)
	}
}

func TestCachingGenerator_ErrorsNotCached(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("boom")
	next := &countingGenerator{err: boom}
	g := NewCachingGenerator(next, s, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := g.Generate(ctx, "m", "p", nil); !errors.Is(err, boom) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}
	if next.calls != 2 {
		t.Errorf("failures must not be cached, got %d calls", next.calls)
	}
	stats, _ := s.Stats(ctx)
	if stats.TotalEntries != 0 {
		t.Errorf("expected empty cache, got %d entries", stats.TotalEntries)
	}
}
