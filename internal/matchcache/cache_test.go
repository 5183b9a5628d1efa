package matchcache_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"tonearm/internal/logging"
	"tonearm/internal/matchcache"
	"tonearm/internal/meta"
)

func openCache(t *testing.T, now *time.Time) *matchcache.Cache {
	t.Helper()
	cache, err := matchcache.Open(
		filepath.Join(t.TempDir(), "cache.db"), 30, logging.NewNop(),
		matchcache.WithClock(func() time.Time { return *now }),
	)
	if err != nil {
		t.Fatalf("matchcache.Open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func sampleRecord(source string) *meta.AlbumInfo {
	return &meta.AlbumInfo{
		Album:      "Geogaddi",
		AlbumID:    "1234",
		Artist:     "Boards of Canada",
		DataSource: source,
		Tracks: []meta.TrackInfo{
			{Title: "Music Is Math", TrackID: "t1", Index: 1},
		},
	}
}

func TestWriteBackRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := openCache(t, &now)
	ctx := context.Background()

	distance := 0.12
	entries := map[string]matchcache.Entry{
		"deezer": {
			AlbumID:  7,
			Source:   "deezer",
			Provider: "deezer",
			Record:   sampleRecord("deezer"),
			Distance: &distance,
		},
		"spotify": {
			AlbumID:  7,
			Source:   "spotify",
			Provider: "spotify",
			Record:   sampleRecord("spotify"),
		},
	}
	if err := cache.WriteBack(ctx, 7, entries); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}

	loaded, err := cache.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded))
	}
	got := loaded["deezer"]
	if got.Record == nil || got.Record.AlbumID != "1234" {
		t.Fatalf("unexpected record: %#v", got.Record)
	}
	if got.Distance == nil || *got.Distance != 0.12 {
		t.Fatalf("unexpected distance: %v", got.Distance)
	}
	if loaded["spotify"].Distance != nil {
		t.Fatal("expected nil distance for spotify entry")
	}
}

func TestWriteBackReplacesExistingRows(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := openCache(t, &now)
	ctx := context.Background()

	first := map[string]matchcache.Entry{
		"deezer":  {Source: "deezer", Provider: "deezer", Record: sampleRecord("deezer")},
		"spotify": {Source: "spotify", Provider: "spotify", Record: sampleRecord("spotify")},
	}
	if err := cache.WriteBack(ctx, 1, first); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}

	second := map[string]matchcache.Entry{
		"deezer": {Source: "deezer", Provider: "deezer", Record: sampleRecord("deezer")},
	}
	if err := cache.WriteBack(ctx, 1, second); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}

	loaded, err := cache.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected dropped source to be gone, got %#v", loaded)
	}
	if _, ok := loaded["spotify"]; ok {
		t.Fatal("stale spotify row survived write-back")
	}
}

func TestLoadEvictsExpiredEntries(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := openCache(t, &now)
	ctx := context.Background()

	entries := map[string]matchcache.Entry{
		"deezer": {Source: "deezer", Provider: "deezer", Record: sampleRecord("deezer")},
	}
	if err := cache.WriteBack(ctx, 3, entries); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}

	now = now.Add(31 * 24 * time.Hour)
	loaded, err := cache.Load(ctx, 3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected expired entries to be evicted, got %#v", loaded)
	}

	// The row is gone, not just filtered: a fresh load at the old time
	// must also come back empty.
	now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	loaded, err = cache.Load(ctx, 3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expired row was not deleted: %#v", loaded)
	}
}

func TestLoadScopedToAlbum(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := openCache(t, &now)
	ctx := context.Background()

	for _, albumID := range []int64{1, 2} {
		entries := map[string]matchcache.Entry{
			"deezer": {Source: "deezer", Provider: "deezer", Record: sampleRecord("deezer")},
		}
		if err := cache.WriteBack(ctx, albumID, entries); err != nil {
			t.Fatalf("WriteBack: %v", err)
		}
	}

	if err := cache.WriteBack(ctx, 1, nil); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	other, err := cache.Load(ctx, 2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("write-back for album 1 touched album 2: %#v", other)
	}
}

func TestLoadDropsUndecodableRows(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, err := matchcache.Open(path, 30, logging.NewNop(),
		matchcache.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("matchcache.Open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	ctx := context.Background()

	entries := map[string]matchcache.Entry{
		"spotify": {Source: "spotify", Provider: "spotify", Record: sampleRecord("spotify")},
	}
	if err := cache.WriteBack(ctx, 5, entries); err != nil {
		t.Fatalf("WriteBack: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(
		`INSERT INTO match_cache (album_id, source, provider, record_json, distance, created_at)
         VALUES (5, 'deezer', 'deezer', '{not json', NULL, ?)`, now.Unix()); err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}

	loaded, err := cache.Load(ctx, 5)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected corrupt row skipped, got %#v", loaded)
	}
	if _, ok := loaded["spotify"]; !ok {
		t.Fatal("healthy row missing")
	}

	var count int
	if err := db.QueryRow(
		`SELECT COUNT(1) FROM match_cache WHERE album_id = 5 AND source = 'deezer'`,
	).Scan(&count); err != nil {
		t.Fatalf("count corrupt rows: %v", err)
	}
	if count != 0 {
		t.Fatal("corrupt row was not deleted during load")
	}
}

func TestClearAndStats(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := openCache(t, &now)
	ctx := context.Background()

	for _, albumID := range []int64{10, 11} {
		entries := map[string]matchcache.Entry{
			"deezer": {Source: "deezer", Provider: "deezer", Record: sampleRecord("deezer")},
		}
		if err := cache.WriteBack(ctx, albumID, entries); err != nil {
			t.Fatalf("WriteBack: %v", err)
		}
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["deezer"] != 2 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	removed, err := cache.Clear(ctx, 10)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 row removed, got %d", removed)
	}

	removed, err = cache.Clear(ctx, 0)
	if err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 remaining row removed, got %d", removed)
	}
}
