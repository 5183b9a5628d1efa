package matchcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"tonearm/internal/logging"
	"tonearm/internal/meta"
)

// Entry is one cached match for an (album, source) pair.
type Entry struct {
	AlbumID   int64
	Source    string
	Provider  string
	Record    *meta.AlbumInfo
	Distance  *float64
	CreatedAt time.Time
}

// Cache provides persistent match storage with TTL-based lazy eviction.
type Cache struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	logger *slog.Logger

	// mu serializes the write path so an album's row set is always
	// replaced as a unit, never interleaved with another writer.
	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Open initializes or connects to the match cache database. ttlDays bounds
// how long entries stay live.
func Open(path string, ttlDays int, logger *slog.Logger, opts ...Option) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache database path required")
	}
	if ttlDays < 1 {
		return nil, errors.New("cache ttl must be at least one day")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{
		db:     db,
		path:   path,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		logger: logging.NewComponentLogger(logger, "matchcache"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}

	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS match_cache (
            album_id INTEGER NOT NULL,
            source TEXT NOT NULL,
            provider TEXT NOT NULL,
            record_json TEXT NOT NULL,
            distance REAL,
            created_at INTEGER NOT NULL,
            PRIMARY KEY (album_id, source)
        )`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create match_cache table: %w", err)
	}

	return cache, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Load returns the live cache entries for an album keyed by source.
// Expired and undecodable rows are deleted as a side effect of the read and
// never returned.
func (c *Cache) Load(ctx context.Context, albumID int64) (map[string]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT source, provider, record_json, distance, created_at
         FROM match_cache WHERE album_id = ?`, albumID)
	if err != nil {
		return nil, fmt.Errorf("query cache rows: %w", err)
	}
	defer rows.Close()

	cutoff := c.now().Add(-c.ttl).Unix()
	entries := make(map[string]Entry)
	var dead []string
	for rows.Next() {
		var (
			source     string
			provider   string
			recordJSON string
			distance   sql.NullFloat64
			createdAt  int64
		)
		if err := rows.Scan(&source, &provider, &recordJSON, &distance, &createdAt); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}

		if createdAt < cutoff {
			dead = append(dead, source)
			continue
		}

		var record meta.AlbumInfo
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil || !record.Valid() {
			// Corrupt payloads behave like expired entries: dropped, not retried.
			c.logger.Warn("discarding undecodable cache row",
				logging.Int64(logging.FieldAlbumID, albumID),
				logging.String(logging.FieldSource, source),
				logging.String(logging.FieldEventType, "cache_decode_failed"),
				logging.String(logging.FieldErrorHint, "entry will be refetched on the next run"),
			)
			dead = append(dead, source)
			continue
		}

		entry := Entry{
			AlbumID:   albumID,
			Source:    source,
			Provider:  provider,
			Record:    &record,
			CreatedAt: time.Unix(createdAt, 0).UTC(),
		}
		if distance.Valid {
			d := distance.Float64
			entry.Distance = &d
		}
		entries[source] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dead) > 0 {
		if err := c.deleteSources(ctx, albumID, dead); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// WriteBack replaces the album's entire cached row set with the supplied
// entries in one transaction.
func (c *Cache) WriteBack(ctx context.Context, albumID int64, entries map[string]Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_cache WHERE album_id = ?`, albumID); err != nil {
		return fmt.Errorf("clear cache rows: %w", err)
	}

	createdAt := c.now().Unix()
	for source, entry := range entries {
		if entry.Record == nil {
			return fmt.Errorf("cache entry for source %q has no record", source)
		}
		recordJSON, err := json.Marshal(entry.Record)
		if err != nil {
			return fmt.Errorf("marshal record for source %q: %w", source, err)
		}
		var distance any
		if entry.Distance != nil {
			distance = *entry.Distance
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_cache (album_id, source, provider, record_json, distance, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			albumID, source, entry.Provider, string(recordJSON), distance, createdAt,
		); err != nil {
			return fmt.Errorf("insert cache row for source %q: %w", source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache rows: %w", err)
	}
	return nil
}

// Clear removes every row for an album; albumID 0 clears the whole cache.
// Returns the number of rows removed.
func (c *Cache) Clear(ctx context.Context, albumID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if albumID == 0 {
		res, err = c.db.ExecContext(ctx, `DELETE FROM match_cache`)
	} else {
		res, err = c.db.ExecContext(ctx, `DELETE FROM match_cache WHERE album_id = ?`, albumID)
	}
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats reports the number of cached entries per source.
func (c *Cache) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT source, COUNT(1) FROM match_cache GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var (
			source string
			count  int
		)
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		stats[source] = count
	}
	return stats, rows.Err()
}

func (c *Cache) deleteSources(ctx context.Context, albumID int64, sources []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, source := range sources {
		if _, err := c.db.ExecContext(ctx,
			`DELETE FROM match_cache WHERE album_id = ? AND source = ?`,
			albumID, source,
		); err != nil {
			return fmt.Errorf("evict cache row: %w", err)
		}
	}
	return nil
}
