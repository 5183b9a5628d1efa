package reconcile_test

import (
	"context"
	"fmt"
	"testing"

	"tonearm/internal/chooser"
	"tonearm/internal/library"
	"tonearm/internal/meta"
	"tonearm/internal/providers"
	"tonearm/internal/reconcile"
)

// fakeProvider serves canned search results and album records, counting
// calls so tests can assert which resolver branch ran.
type fakeProvider struct {
	name          string
	searchResults []meta.SearchResult
	searchErr     error
	albums        map[string]*meta.AlbumInfo
	fetchErrs     map[string]error

	searchCalls int
	fetchCalls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ string, _ providers.SearchFilters) ([]meta.SearchResult, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeProvider) AlbumForID(_ context.Context, id string) (*meta.AlbumInfo, error) {
	f.fetchCalls++
	if err, ok := f.fetchErrs[id]; ok {
		return nil, err
	}
	return f.albums[id], nil
}

// fixedScorer returns canned album distances keyed by record ID. Tracks
// match when titles are equal.
type fixedScorer struct {
	albumDistances map[string]float64
}

func (s *fixedScorer) AlbumDistance(_, _ string, info *meta.AlbumInfo) float64 {
	if info == nil {
		return 1
	}
	if distance, ok := s.albumDistances[info.AlbumID]; ok {
		return distance
	}
	return 0
}

func (s *fixedScorer) TrackDistance(track *library.Track, info meta.TrackInfo) float64 {
	if track != nil && track.Title == info.Title {
		return 0
	}
	return 1
}

// actionChooser always answers with a fixed action; abort is modeled by
// chooser.ErrAborted.
type actionChooser struct {
	action chooser.Action
	err    error
	calls  int
}

func (c *actionChooser) Choose(_ context.Context, req chooser.Request) (*chooser.Selection, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	selection := &chooser.Selection{Action: c.action}
	if c.action == chooser.ActionAccept && len(req.Candidates) > 0 {
		best := req.Candidates[0]
		selection.Candidate = &best
	}
	return selection, nil
}

func testAlbum(id int64, trackTitles ...string) *library.Album {
	album := &library.Album{
		ID:     id,
		Artist: "Boards of Canada",
		Title:  "Geogaddi",
		Year:   2002,
	}
	for i, title := range trackTitles {
		album.Tracks = append(album.Tracks, &library.Track{
			ID:      id*100 + int64(i+1),
			AlbumID: id,
			Index:   i + 1,
			Title:   title,
			Artist:  "Boards of Canada",
		})
	}
	return album
}

func testRecord(albumID string, trackTitles ...string) *meta.AlbumInfo {
	info := &meta.AlbumInfo{
		Album:      "Geogaddi",
		AlbumID:    albumID,
		Artist:     "Boards of Canada",
		ArtistID:   "a1",
		Year:       2002,
		Label:      "Warp",
		DataSource: "deezer",
	}
	for i, title := range trackTitles {
		info.Tracks = append(info.Tracks, meta.TrackInfo{
			Title:   title,
			TrackID: fmt.Sprintf("%s-t%d", albumID, i+1),
			Artist:  "Boards of Canada",
			Index:   i + 1,
			Medium:  1,
		})
	}
	return info
}

func searchResultsFor(records ...*meta.AlbumInfo) []meta.SearchResult {
	results := make([]meta.SearchResult, 0, len(records))
	for _, record := range records {
		results = append(results, meta.SearchResult{
			ID:     record.AlbumID,
			Title:  record.Album,
			Artist: record.Artist,
		})
	}
	return results
}

func floatPtr(v float64) *float64 { return &v }

func resultFor(t *testing.T, summary *reconcile.Summary, albumID int64, source string) reconcile.SourceMatchResult {
	t.Helper()
	for _, report := range summary.Albums {
		if report.AlbumID != albumID {
			continue
		}
		for _, result := range report.Results {
			if result.Source == source {
				return result
			}
		}
	}
	t.Fatalf("no result for album %d source %s", albumID, source)
	return reconcile.SourceMatchResult{}
}
