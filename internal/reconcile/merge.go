package reconcile

import (
	"fmt"
	"strconv"

	"tonearm/internal/library"
)

// FieldMerger applies accepted matches onto library entities. Only non-empty
// provider values that differ from the current value are written; fields the
// provider does not supply are never cleared.
type FieldMerger struct{}

// Merge applies one accepted match, returning the combined change set.
// Namespaced ID fields are written for every accepted source; descriptive
// fields come from the primary source only.
func (m FieldMerger) Merge(album *library.Album, match *CandidateMatch, primary bool) ChangeSet {
	changes := m.MergeAlbumFields(album, match, primary)
	changes = append(changes, m.MergeTrackFields(album, match, primary)...)
	return changes
}

// MergeAlbumFields merges album-level fields from the match's record.
func (FieldMerger) MergeAlbumFields(album *library.Album, match *CandidateMatch, primary bool) ChangeSet {
	if album == nil || match == nil || match.Info == nil {
		return nil
	}
	info := match.Info
	var changes ChangeSet
	apply := func(field, value string) {
		changes = appendChange(changes, "album", album.ID, field, value,
			album.GetField, album.SetField)
	}

	apply(fmt.Sprintf("%s_album_id", match.Source), info.AlbumID)
	if !primary {
		return changes
	}

	apply("artist", info.Artist)
	if info.Year > 0 {
		apply("year", strconv.Itoa(info.Year))
	}
	apply("label", info.Label)
	apply("cover_url", info.CoverArtURL)
	return changes
}

// MergeTrackFields merges per-track fields using the match's alignment.
// Tracks absent from the mapping are untouched.
func (FieldMerger) MergeTrackFields(album *library.Album, match *CandidateMatch, primary bool) ChangeSet {
	if album == nil || match == nil || len(match.Mapping) == 0 {
		return nil
	}
	var changes ChangeSet
	for _, track := range album.Tracks {
		info, ok := match.Mapping[track.ID]
		if !ok {
			continue
		}
		apply := func(field, value string) {
			changes = appendChange(changes, "track", track.ID, field, value,
				track.GetField, track.SetField)
		}

		apply(fmt.Sprintf("%s_track_id", match.Source), info.TrackID)
		if !primary {
			continue
		}
		apply("title", info.Title)
		apply("artist", info.Artist)
		apply("isrc", info.ISRC)
	}
	return changes
}

func appendChange(changes ChangeSet, entity string, id int64, field, value string,
	get func(string) string, set func(string, string)) ChangeSet {
	if value == "" {
		return changes
	}
	old := get(field)
	if old == value {
		return changes
	}
	set(field, value)
	return append(changes, Change{Entity: entity, ID: id, Field: field, Old: old, New: value})
}
