package cache_test

import (
	"path/filepath"
	"testing"

	"geneagrapher/internal/cache"
	"geneagrapher/internal/record"
)

func testRecord(id record.ID) *record.Record {
	return &record.Record{
		ID:          id,
		Name:        "Test Person",
		Institution: "Test U",
		Year:        2000,
		HasYear:     true,
		Descendants: []record.ID{id + 1},
		Advisors:    []record.ID{id - 1},
	}
}

func exerciseRoundTrip(t *testing.T, c record.Cache) {
	t.Helper()

	if hit, _, err := c.Get(1); err != nil || hit {
		t.Fatalf("expected a miss before any Set, got hit=%v err=%v", hit, err)
	}

	want := testRecord(1)
	if err := c.Set(1, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	hit, got, err := c.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatalf("expected a hit after Set")
	}
	if got.Name != want.Name || got.ID != want.ID {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if err := c.Set(2, nil); err != nil {
		t.Fatalf("Set(nil): %v", err)
	}
	hit, got, err = c.Get(2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit || got != nil {
		t.Fatalf("expected a null hit for id 2, got hit=%v rec=%+v", hit, got)
	}
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	exerciseRoundTrip(t, cache.NewMemoryCache())
}

func TestMemoryCache_SetCopiesToAvoidAliasing(t *testing.T) {
	c := cache.NewMemoryCache()
	rec := testRecord(1)
	if err := c.Set(1, rec); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rec.Name = "mutated after Set"

	_, got, err := c.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name == "mutated after Set" {
		t.Fatalf("cache entry shares memory with caller's record")
	}
}

func TestLRUCache_RoundTrip(t *testing.T) {
	c, err := cache.NewLRUCache(8)
	if err != nil {
		t.Fatalf("NewLRUCache: %v", err)
	}
	exerciseRoundTrip(t, c)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := cache.NewLRUCache(1)
	if err != nil {
		t.Fatalf("NewLRUCache: %v", err)
	}
	if err := c.Set(1, testRecord(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(2, testRecord(2)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if hit, _, _ := c.Get(1); hit {
		t.Fatalf("expected id 1 to have been evicted")
	}
	if hit, _, _ := c.Get(2); !hit {
		t.Fatalf("expected id 2 to still be cached")
	}
}

func TestFileCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	exerciseRoundTrip(t, cache.NewFileCache(dir))
}

func TestFileCache_NullHitEncodedAsJSONNull(t *testing.T) {
	dir := t.TempDir()
	c := cache.NewFileCache(dir)
	if err := c.Set(3, nil); err != nil {
		t.Fatalf("Set(nil): %v", err)
	}

	hit, rec, err := c.Get(3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit || rec != nil {
		t.Fatalf("expected null hit, got hit=%v rec=%+v", hit, rec)
	}
}

func TestFileCache_MissOnUnknownID(t *testing.T) {
	dir := t.TempDir()
	c := cache.NewFileCache(filepath.Join(dir, "nested"))
	hit, _, err := c.Get(999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Fatalf("expected a miss for an id never set")
	}
}
