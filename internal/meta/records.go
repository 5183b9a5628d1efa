package meta

import "strings"

// AlbumInfo is a provider's view of an album.
type AlbumInfo struct {
	Album       string      `json:"album"`
	AlbumID     string      `json:"album_id"`
	Artist      string      `json:"artist"`
	ArtistID    string      `json:"artist_id"`
	Year        int         `json:"year,omitempty"`
	Month       int         `json:"month,omitempty"`
	Day         int         `json:"day,omitempty"`
	Label       string      `json:"label,omitempty"`
	Mediums     int         `json:"mediums,omitempty"`
	DataSource  string      `json:"data_source"`
	DataURL     string      `json:"data_url,omitempty"`
	CoverArtURL string      `json:"cover_art_url,omitempty"`
	Tracks      []TrackInfo `json:"tracks"`
}

// TrackInfo is a provider's view of a single track.
type TrackInfo struct {
	Title       string `json:"title"`
	TrackID     string `json:"track_id"`
	Artist      string `json:"artist,omitempty"`
	ArtistID    string `json:"artist_id,omitempty"`
	Length      int    `json:"length,omitempty"` // seconds
	Index       int    `json:"index,omitempty"`  // 1-based position on the release
	Medium      int    `json:"medium,omitempty"`
	MediumIndex int    `json:"medium_index,omitempty"`
	ISRC        string `json:"isrc,omitempty"`
	DataURL     string `json:"data_url,omitempty"`
}

// SearchResult is one raw candidate from a provider search call.
type SearchResult struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Valid reports whether the record carries the minimum fields the
// reconciliation engine needs.
func (a *AlbumInfo) Valid() bool {
	return a != nil && strings.TrimSpace(a.Album) != "" && strings.TrimSpace(a.AlbumID) != ""
}
