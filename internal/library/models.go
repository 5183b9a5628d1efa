package library

import (
	"strconv"
	"strings"
	"time"
)

// FlexMap holds source-specific fields (IDs, labels, URLs) keyed by name.
type FlexMap map[string]string

// Clone returns a shallow copy so callers can diff before/after states.
func (m FlexMap) Clone() FlexMap {
	if m == nil {
		return nil
	}
	out := make(FlexMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Album is a locally-stored release with its ordered tracks.
type Album struct {
	ID        int64
	Artist    string
	Title     string
	Year      int
	Fields    FlexMap
	Tracks    []*Track
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Track is a single item owned by an album.
type Track struct {
	ID      int64
	AlbumID int64
	// Index is the 1-based position within the album.
	Index  int
	Title  string
	Artist string
	// Length is the duration in seconds.
	Length int
	Fields FlexMap
}

// GetField returns the value for a named field. Typed columns (artist,
// title, year) and flexible fields share one namespace so merge code can
// treat every field uniformly.
func (a *Album) GetField(key string) string {
	switch key {
	case "artist":
		return a.Artist
	case "album", "title":
		return a.Title
	case "year":
		if a.Year == 0 {
			return ""
		}
		return strconv.Itoa(a.Year)
	default:
		return a.Fields[key]
	}
}

// SetField stores a value under a named field, routing typed columns to
// their struct fields and everything else to the flexible map.
func (a *Album) SetField(key, value string) {
	switch key {
	case "artist":
		a.Artist = value
	case "album", "title":
		a.Title = value
	case "year":
		if year, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			a.Year = year
		}
	default:
		if a.Fields == nil {
			a.Fields = make(FlexMap)
		}
		a.Fields[key] = value
	}
}

// GetField mirrors Album.GetField for track-level fields.
func (t *Track) GetField(key string) string {
	switch key {
	case "title":
		return t.Title
	case "artist":
		return t.Artist
	case "length":
		if t.Length == 0 {
			return ""
		}
		return strconv.Itoa(t.Length)
	default:
		return t.Fields[key]
	}
}

// SetField mirrors Album.SetField for track-level fields.
func (t *Track) SetField(key, value string) {
	switch key {
	case "title":
		t.Title = value
	case "artist":
		t.Artist = value
	case "length":
		if length, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			t.Length = length
		}
	default:
		if t.Fields == nil {
			t.Fields = make(FlexMap)
		}
		t.Fields[key] = value
	}
}
