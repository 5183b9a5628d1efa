package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages album and track persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the library database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("library database path required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		// Opening creates the file; the directory must exist first.
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// AddAlbum inserts an album and its tracks, assigning identifiers.
func (s *Store) AddAlbum(ctx context.Context, album *Album) error {
	if album == nil {
		return errors.New("album is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	fieldsJSON, err := marshalFields(album.Fields)
	if err != nil {
		return fmt.Errorf("marshal album fields: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO albums (artist, title, year, fields_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		album.Artist, album.Title, album.Year, fieldsJSON, timestamp, timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert album: %w", err)
	}
	albumID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	album.ID = albumID
	album.CreatedAt = now
	album.UpdatedAt = now

	for i, track := range album.Tracks {
		if track.Index == 0 {
			track.Index = i + 1
		}
		trackFields, err := marshalFields(track.Fields)
		if err != nil {
			return fmt.Errorf("marshal track fields: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (album_id, position, title, artist, length_secs, fields_json)
             VALUES (?, ?, ?, ?, ?, ?)`,
			albumID, track.Index, track.Title, track.Artist, track.Length, trackFields,
		)
		if err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
		trackID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		track.ID = trackID
		track.AlbumID = albumID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit album: %w", err)
	}
	return nil
}

// GetAlbum fetches an album with its tracks, or nil when absent.
func (s *Store) GetAlbum(ctx context.Context, id int64) (*Album, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, artist, title, year, fields_json, created_at, updated_at
         FROM albums WHERE id = ?`, id)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	if err := s.loadTracks(ctx, album); err != nil {
		return nil, err
	}
	return album, nil
}

// Albums returns albums whose artist or title contains the query,
// case-insensitively, in id order. An empty query returns every album.
func (s *Store) Albums(ctx context.Context, query string) ([]*Album, error) {
	var (
		rows *sql.Rows
		err  error
	)
	base := `SELECT id, artist, title, year, fields_json, created_at, updated_at FROM albums`
	query = strings.TrimSpace(query)
	if query == "" {
		rows, err = s.db.QueryContext(ctx, base+` ORDER BY id`)
	} else {
		pattern := "%" + strings.ToLower(query) + "%"
		rows, err = s.db.QueryContext(ctx,
			base+` WHERE LOWER(artist) LIKE ? OR LOWER(title) LIKE ? ORDER BY id`,
			pattern, pattern,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query albums: %w", err)
	}
	defer rows.Close()

	var albums []*Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, album := range albums {
		if err := s.loadTracks(ctx, album); err != nil {
			return nil, err
		}
	}
	return albums, nil
}

// SaveAlbum persists the album's typed and flexible fields plus every
// owned track's fields.
func (s *Store) SaveAlbum(ctx context.Context, album *Album) error {
	if album == nil {
		return errors.New("album is nil")
	}
	album.UpdatedAt = time.Now().UTC()

	fieldsJSON, err := marshalFields(album.Fields)
	if err != nil {
		return fmt.Errorf("marshal album fields: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE albums SET artist = ?, title = ?, year = ?, fields_json = ?, updated_at = ?
         WHERE id = ?`,
		album.Artist, album.Title, album.Year, fieldsJSON,
		album.UpdatedAt.Format(time.RFC3339Nano), album.ID,
	); err != nil {
		return fmt.Errorf("update album: %w", err)
	}

	for _, track := range album.Tracks {
		trackFields, err := marshalFields(track.Fields)
		if err != nil {
			return fmt.Errorf("marshal track fields: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tracks SET position = ?, title = ?, artist = ?, length_secs = ?, fields_json = ?
             WHERE id = ?`,
			track.Index, track.Title, track.Artist, track.Length, trackFields, track.ID,
		); err != nil {
			return fmt.Errorf("update track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit album: %w", err)
	}
	return nil
}

func (s *Store) loadTracks(ctx context.Context, album *Album) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, album_id, position, title, artist, length_secs, fields_json
         FROM tracks WHERE album_id = ? ORDER BY position, id`, album.ID)
	if err != nil {
		return fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	album.Tracks = album.Tracks[:0]
	for rows.Next() {
		var (
			track      Track
			fieldsJSON sql.NullString
		)
		if err := rows.Scan(&track.ID, &track.AlbumID, &track.Index, &track.Title,
			&track.Artist, &track.Length, &fieldsJSON); err != nil {
			return fmt.Errorf("scan track: %w", err)
		}
		track.Fields, err = unmarshalFields(fieldsJSON)
		if err != nil {
			return fmt.Errorf("decode track fields: %w", err)
		}
		album.Tracks = append(album.Tracks, &track)
	}
	return rows.Err()
}

func scanAlbum(scanner interface{ Scan(dest ...any) error }) (*Album, error) {
	var (
		album      Album
		fieldsJSON sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&album.ID, &album.Artist, &album.Title, &album.Year,
		&fieldsJSON, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	var err error
	album.Fields, err = unmarshalFields(fieldsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode album fields: %w", err)
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		album.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		album.UpdatedAt = updated
	}
	return &album, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

func marshalFields(fields FlexMap) (any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalFields(raw sql.NullString) (FlexMap, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	var fields FlexMap
	if err := json.Unmarshal([]byte(raw.String), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
