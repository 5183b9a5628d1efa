package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"tonearm/internal/chooser"
	"tonearm/internal/library"
	"tonearm/internal/logging"
	"tonearm/internal/matchcache"
	"tonearm/internal/meta"
	"tonearm/internal/providers"
)

// SourceResolver decides, for one album and one source, whether to reuse a
// cache entry, reuse a stored provider ID, or perform a fresh lookup. It is
// constructed per call scoped to a single provider and never mutates entity
// state; mutation is the coordinator's job.
type SourceResolver struct {
	provider    providers.Provider
	scorer      Scorer
	chooser     chooser.Chooser
	maxDistance *float64
	searchLimit int
	logger      *slog.Logger
}

// NewSourceResolver builds a resolver for a single provider.
func NewSourceResolver(provider providers.Provider, scorer Scorer, picker chooser.Chooser,
	maxDistance *float64, searchLimit int, logger *slog.Logger) *SourceResolver {
	if searchLimit < 1 {
		searchLimit = 5
	}
	if picker == nil {
		picker = chooser.AutoChooser{}
	}
	return &SourceResolver{
		provider:    provider,
		scorer:      scorer,
		chooser:     picker,
		maxDistance: maxDistance,
		searchLimit: searchLimit,
		logger:      logging.NewComponentLogger(logger, "resolver"),
	}
}

// Resolve runs the per-source state machine. The branches short-circuit in
// priority order: cache entry, stored provider ID, fresh lookup. The only
// non-nil error is an abort (or context cancellation), which must halt the
// whole run.
func (r *SourceResolver) Resolve(ctx context.Context, album *library.Album,
	cached *matchcache.Entry, force bool) (SourceMatchResult, error) {
	source := r.provider.Name()
	result := SourceMatchResult{Source: source, Provider: source}
	log := r.logger.With(
		logging.Int64(logging.FieldAlbumID, album.ID),
		logging.String(logging.FieldSource, source),
	)

	// Branch 1: cache entry.
	if cached != nil && !force {
		if r.exceedsCeiling(cached.Distance) {
			log.Info("skipping cached match above distance ceiling",
				logging.Float64("distance", *cached.Distance),
				logging.String(logging.FieldReason, ReasonCachedDistanceThreshold),
			)
			result.Skipped = true
			result.Reason = ReasonCachedDistanceThreshold
			return result, nil
		}
		alignment := Align(album.Tracks, cached.Record.Tracks, r.scorer)
		if len(alignment.Mapping) > 0 {
			result.Match = &CandidateMatch{
				Source:          source,
				Provider:        cached.Provider,
				Info:            cached.Record,
				Mapping:         alignment.Mapping,
				ExtraTracks:     alignment.ExtraTracks,
				ExtraInfoTracks: alignment.ExtraInfoTracks,
				Distance:        cached.Distance,
			}
			return result, nil
		}
		// Cache is stale for alignment purposes; keep the row and fall
		// through to the stored-ID branch.
		log.Debug("cached record no longer aligns, falling through")
	}

	// Branch 2: stored provider ID on the album.
	if !force {
		if id := strings.TrimSpace(album.GetField(source + "_album_id")); id != "" {
			info, err := r.provider.AlbumForID(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				log.Warn("stored ID fetch failed, trying fresh lookup",
					logging.Error(err))
			} else if info != nil {
				alignment := Align(album.Tracks, info.Tracks, r.scorer)
				if len(alignment.Mapping) == 0 {
					// An explicit ID that cannot be aligned is a hard
					// stop for this source, not a retry trigger.
					log.Info("stored ID record aligns to nothing",
						logging.String(logging.FieldReason, ReasonNoTrackMapping))
					result.Skipped = true
					result.Reason = ReasonNoTrackMapping
					return result, nil
				}
				result.Match = &CandidateMatch{
					Source:          source,
					Provider:        source,
					Info:            info,
					Mapping:         alignment.Mapping,
					ExtraTracks:     alignment.ExtraTracks,
					ExtraInfoTracks: alignment.ExtraInfoTracks,
					UsedExistingID:  true,
				}
				return result, nil
			}
		}
	}

	// Branch 3: fresh lookup.
	return r.freshLookup(ctx, album, result, log)
}

func (r *SourceResolver) freshLookup(ctx context.Context, album *library.Album,
	result SourceMatchResult, log *slog.Logger) (SourceMatchResult, error) {
	keywords := strings.TrimSpace(album.Artist + " " + album.Title)
	searchResults, err := r.provider.Search(ctx, keywords, providers.SearchFilters{
		Artist: album.Artist,
		Album:  album.Title,
		Limit:  r.searchLimit,
	})
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		// A failed provider call degrades to no candidates, never aborts.
		log.Warn("search failed", logging.Error(Wrap(ErrProviderCall, result.Source, "search", err)))
		searchResults = nil
	}

	candidates := r.fetchCandidates(ctx, album, searchResults, log)
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if len(candidates) == 0 {
		result.Skipped = true
		result.Reason = ReasonNoCandidates
		return result, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if r.exceedsCeiling(&candidates[0].distance) {
		log.Info("best candidate above distance ceiling",
			logging.Float64("distance", candidates[0].distance),
			logging.String(logging.FieldReason, ReasonDistanceThreshold),
		)
		result.Skipped = true
		result.Reason = ReasonDistanceThreshold
		return result, nil
	}

	request := chooser.Request{
		Artist: album.Artist,
		Title:  album.Title,
		Source: result.Source,
	}
	for _, candidate := range candidates {
		request.Candidates = append(request.Candidates, chooser.Candidate{
			Info:     candidate.info,
			Distance: candidate.distance,
		})
	}
	selection, err := r.chooser.Choose(ctx, request)
	if err != nil {
		if errors.Is(err, chooser.ErrAborted) {
			return result, ErrAborted
		}
		return result, fmt.Errorf("choose candidate: %w", err)
	}

	switch {
	case selection == nil || (selection.Action == chooser.ActionAccept && selection.Candidate == nil):
		result.Skipped = true
		result.Reason = ReasonNoSelection
	case selection.Action == chooser.ActionSkip, selection.Action == chooser.ActionAsIs:
		result.Skipped = true
		result.Reason = ReasonUserSkipped
	case selection.Action == chooser.ActionAccept:
		chosen := r.candidateFor(candidates, selection.Candidate.Info)
		if chosen == nil {
			result.Skipped = true
			result.Reason = ReasonNoSelection
			break
		}
		distance := chosen.distance
		result.Match = &CandidateMatch{
			Source:          result.Source,
			Provider:        result.Source,
			Info:            chosen.info,
			Mapping:         chosen.alignment.Mapping,
			ExtraTracks:     chosen.alignment.ExtraTracks,
			ExtraInfoTracks: chosen.alignment.ExtraInfoTracks,
			Distance:        &distance,
		}
	default:
		result.Skipped = true
		result.Reason = ReasonUnsupportedAction
	}
	return result, nil
}

type scoredCandidate struct {
	info      *meta.AlbumInfo
	distance  float64
	alignment Alignment
}

func (r *SourceResolver) fetchCandidates(ctx context.Context, album *library.Album,
	searchResults []meta.SearchResult, log *slog.Logger) []*scoredCandidate {
	limit := r.searchLimit
	if len(searchResults) < limit {
		limit = len(searchResults)
	}
	candidates := make([]*scoredCandidate, 0, limit)
	for _, searchResult := range searchResults[:limit] {
		if ctx.Err() != nil {
			return candidates
		}
		info, err := r.provider.AlbumForID(ctx, searchResult.ID)
		if err != nil {
			log.Warn("candidate fetch failed", logging.Error(err),
				logging.String("candidate_id", searchResult.ID))
			continue
		}
		if info == nil {
			continue
		}
		candidates = append(candidates, &scoredCandidate{
			info:      info,
			distance:  r.scorer.AlbumDistance(album.Artist, album.Title, info),
			alignment: Align(album.Tracks, info.Tracks, r.scorer),
		})
	}
	return candidates
}

func (r *SourceResolver) candidateFor(candidates []*scoredCandidate, info *meta.AlbumInfo) *scoredCandidate {
	if info == nil {
		return nil
	}
	for _, candidate := range candidates {
		if candidate.info == info || candidate.info.AlbumID == info.AlbumID {
			return candidate
		}
	}
	return nil
}

// exceedsCeiling applies the tri-state distance check: a nil distance or a
// nil ceiling skips the check entirely.
func (r *SourceResolver) exceedsCeiling(distance *float64) bool {
	return distance != nil && r.maxDistance != nil && *distance > *r.maxDistance
}
