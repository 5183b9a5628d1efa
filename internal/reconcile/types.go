package reconcile

import (
	"tonearm/internal/library"
	"tonearm/internal/meta"
)

// Skip reason codes surfaced on SourceMatchResult. These are stable
// identifiers used in logs and summaries.
const (
	ReasonCachedDistanceThreshold = "cached-distance-threshold"
	ReasonNoTrackMapping          = "no-track-mapping"
	ReasonNoCandidates            = "no-candidates"
	ReasonDistanceThreshold       = "distance-threshold"
	ReasonUserSkipped             = "user-skipped"
	ReasonUnsupportedAction       = "unsupported-action"
	ReasonNoSelection             = "no-selection"
)

// CandidateMatch is an accepted provider record for one album/source pair,
// with its track alignment. Distance is nil when no distance was computed
// (existing-ID reuse, or a cached match stored without one); the ceiling
// check is skipped entirely for nil distances.
type CandidateMatch struct {
	Source          string
	Provider        string
	Info            *meta.AlbumInfo
	Mapping         map[int64]meta.TrackInfo
	ExtraTracks     []*library.Track
	ExtraInfoTracks []meta.TrackInfo
	Distance        *float64
	UsedExistingID  bool
}

// SourceMatchResult is the outcome of resolving one source for one album.
// Exactly one of Match or a skip reason is populated.
type SourceMatchResult struct {
	Source   string
	Provider string
	Match    *CandidateMatch
	Skipped  bool
	Reason   string
}

// Options selects and tunes a coordinator run.
type Options struct {
	// Query filters the target albums (substring on artist/title).
	Query string
	// Sources restricts and orders the providers; empty means all.
	Sources []string
	// Primary names the source whose descriptive fields win. Invalid or
	// empty falls back to the last resolved source.
	Primary string
	// MaxDistance is the acceptance ceiling; nil disables the check.
	MaxDistance *float64
	// SearchLimit caps fetched candidates per fresh lookup.
	SearchLimit int
	// DryRun computes and reports changes without persisting anything.
	DryRun bool
	// Force ignores cached matches and stored provider IDs.
	Force bool
	// RefreshCache ignores cached matches but still honors stored IDs.
	RefreshCache bool
	// Write persists merged fields to the library store.
	Write bool
}

// Change records one field mutation produced by the merger.
type Change struct {
	Entity string
	ID     int64
	Field  string
	Old    string
	New    string
}

// ChangeSet is an ordered list of field changes for one album.
type ChangeSet []Change

// AlbumReport summarizes one album's outcome within a run.
type AlbumReport struct {
	AlbumID int64
	Artist  string
	Title   string
	Results []SourceMatchResult
	Changes ChangeSet
	Err     error
}

// Summary is the result of a coordinator run.
type Summary struct {
	RunID   string
	Albums  []AlbumReport
	Matched int
	Skipped int
	Failed  int
}

// TotalChanges counts field changes across all albums in the run.
func (s *Summary) TotalChanges() int {
	total := 0
	for _, album := range s.Albums {
		total += len(album.Changes)
	}
	return total
}
