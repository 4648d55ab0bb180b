package searchcache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"trawler/internal/logging"
	"trawler/internal/match"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "search.db")
	cache, err := Open(path, ttl, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := openTestCache(t, time.Hour)
	ctx := context.Background()

	entry := Entry{
		Candidates: []match.Candidate{
			{Name: "The Matrix", ID: "tt0133093", Year: 1999, Position: 0},
			{Name: "The Matrix Reloaded", ID: "tt0234215", Year: 2003, Position: 1},
		},
	}
	if err := cache.Put(ctx, "The Matrix", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := cache.Get(ctx, "the   matrix")
	if err != nil {
		t.Fatalf("Get after Put: %v", err)
	}
	if len(got.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got.Candidates))
	}
	if got.Candidates[0].ID != "tt0133093" || got.Candidates[1].Year != 2003 {
		t.Errorf("candidates = %+v", got.Candidates)
	}
	if got.Perfect {
		t.Error("entry stored without Perfect must read back false")
	}
}

func TestCacheMissForUnknownQuery(t *testing.T) {
	cache := openTestCache(t, time.Hour)
	if _, err := cache.Get(context.Background(), "nothing here"); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

func TestCachePreservesPerfectFlag(t *testing.T) {
	cache := openTestCache(t, time.Hour)
	ctx := context.Background()

	entry := Entry{
		Candidates: []match.Candidate{{Name: "The Matrix", ID: "tt0133093", Score: 1.0}},
		Perfect:    true,
	}
	if err := cache.Put(ctx, "The Matrix", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := cache.Get(ctx, "The Matrix")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Perfect {
		t.Error("Perfect flag lost on round trip")
	}
}

func TestCacheReplacesExistingEntry(t *testing.T) {
	cache := openTestCache(t, time.Hour)
	ctx := context.Background()

	first := Entry{Candidates: []match.Candidate{{Name: "Old", ID: "tt0000001"}}}
	second := Entry{Candidates: []match.Candidate{{Name: "New", ID: "tt0000002"}}}
	if err := cache.Put(ctx, "query", first); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := cache.Put(ctx, "query", second); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err := cache.Get(ctx, "query")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].Name != "New" {
		t.Errorf("candidates = %+v, want replaced entry", got.Candidates)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := openTestCache(t, time.Nanosecond)
	ctx := context.Background()

	entry := Entry{Candidates: []match.Candidate{{Name: "The Matrix", ID: "tt0133093"}}}
	if err := cache.Put(ctx, "The Matrix", entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := cache.Get(ctx, "The Matrix"); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss for expired entry", err)
	}
}

func TestCachePrune(t *testing.T) {
	cache := openTestCache(t, time.Nanosecond)
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		if err := cache.Put(ctx, q, Entry{Candidates: []match.Candidate{{Name: q, ID: "tt0000001"}}}); err != nil {
			t.Fatalf("Put %q: %v", q, err)
		}
	}
	time.Sleep(10 * time.Millisecond)

	removed, err := cache.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"The Matrix", "the matrix"},
		{"  The   MATRIX  ", "the matrix"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeKey(tt.in); got != tt.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
