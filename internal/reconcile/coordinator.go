package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tonearm/internal/chooser"
	"tonearm/internal/library"
	"tonearm/internal/logging"
	"tonearm/internal/matchcache"
	"tonearm/internal/providers"
)

// Coordinator drives a reconciliation run across the library: source
// resolution, cache write-back, and field merging per album.
type Coordinator struct {
	store    *library.Store
	cache    *matchcache.Cache
	registry *providers.Registry
	scorer   Scorer
	chooser  chooser.Chooser
	merger   FieldMerger
	logger   *slog.Logger
	lockPath string

	// inFlight guards the per-album guarantee: at most one reconciliation
	// writes results for a given album at a time.
	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewCoordinator wires a coordinator. lockPath is the run lock file placed
// beside the library database.
func NewCoordinator(store *library.Store, cache *matchcache.Cache,
	registry *providers.Registry, scorer Scorer, picker chooser.Chooser,
	lockPath string, logger *slog.Logger) *Coordinator {
	if scorer == nil {
		scorer = NewScorer()
	}
	if picker == nil {
		picker = chooser.AutoChooser{}
	}
	return &Coordinator{
		store:    store,
		cache:    cache,
		registry: registry,
		scorer:   scorer,
		chooser:  picker,
		logger:   logging.NewComponentLogger(logger, "coordinator"),
		lockPath: lockPath,
		inFlight: make(map[int64]struct{}),
	}
}

// Run executes one reconciliation pass. A single album's unexpected failure
// is logged and skipped; an abort from the chooser or a cancelled context
// halts the run before the next album.
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Summary, error) {
	resolved, err := c.registry.ResolveSources(opts.Sources)
	if err != nil {
		return nil, Wrap(ErrProviderUnavailable, "", "resolve sources", err)
	}
	primary := c.registry.PickPrimary(resolved, opts.Primary)

	if c.lockPath != "" {
		lock := flock.New(c.lockPath)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			return nil, errors.New("another reconciliation run is in progress")
		}
		defer func() { _ = lock.Unlock() }()
	}

	summary := &Summary{RunID: uuid.NewString()}
	log := c.logger.With(logging.String(logging.FieldRunID, summary.RunID))
	log.Info("starting reconciliation run",
		logging.String("primary", primary.Name()),
		logging.Int("sources", len(resolved)),
		logging.Bool("dry_run", opts.DryRun),
	)

	albums, err := c.store.Albums(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}

	for _, album := range albums {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		report, err := c.processAlbum(ctx, album, resolved, primary, opts, log)
		summary.Albums = append(summary.Albums, report)
		for _, result := range report.Results {
			if result.Match != nil {
				summary.Matched++
			} else {
				summary.Skipped++
			}
		}
		if err != nil {
			if errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled) {
				log.Info("run aborted",
					logging.Int64(logging.FieldAlbumID, album.ID))
				return summary, ErrAborted
			}
			// Partial-failure isolation: log and continue with the next album.
			summary.Failed++
			log.Error("album reconciliation failed",
				logging.Int64(logging.FieldAlbumID, album.ID),
				logging.Error(err),
			)
		}
	}

	log.Info("reconciliation run finished",
		logging.Int("albums", len(summary.Albums)),
		logging.Int("matched", summary.Matched),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Int("changes", summary.TotalChanges()),
	)
	return summary, nil
}

func (c *Coordinator) processAlbum(ctx context.Context, album *library.Album,
	resolved []providers.Provider, primary providers.Provider, opts Options,
	log *slog.Logger) (AlbumReport, error) {
	report := AlbumReport{AlbumID: album.ID, Artist: album.Artist, Title: album.Title}

	if !c.claim(album.ID) {
		report.Err = fmt.Errorf("album %d already being reconciled", album.ID)
		return report, report.Err
	}
	defer c.release(album.ID)

	var cached map[string]matchcache.Entry
	if !opts.Force && !opts.RefreshCache {
		var err error
		cached, err = c.cache.Load(ctx, album.ID)
		if err != nil {
			report.Err = Wrap(ErrCacheDecode, "", "load cache", err)
			return report, report.Err
		}
	}

	accepted := make(map[string]matchcache.Entry, len(resolved))
	for _, provider := range resolved {
		source := provider.Name()
		var cachedEntry *matchcache.Entry
		if entry, ok := cached[source]; ok {
			cachedEntry = &entry
		}
		resolver := NewSourceResolver(provider, c.scorer, c.chooser,
			opts.MaxDistance, opts.SearchLimit, c.logger)
		result, err := resolver.Resolve(ctx, album, cachedEntry, opts.Force)
		report.Results = append(report.Results, result)
		if err != nil {
			report.Err = err
			return report, err
		}
		if result.Match != nil {
			accepted[source] = matchcache.Entry{
				AlbumID:  album.ID,
				Source:   source,
				Provider: result.Match.Provider,
				Record:   result.Match.Info,
				Distance: result.Match.Distance,
			}
		}
	}

	// An all-skip pass leaves existing cache rows alone; only a non-empty
	// accepted set replaces the album's row set.
	if !opts.DryRun && len(accepted) > 0 {
		if err := c.cache.WriteBack(ctx, album.ID, accepted); err != nil {
			report.Err = fmt.Errorf("cache write-back: %w", err)
			return report, report.Err
		}
	}

	// Apply merges in resolution order; the primary source is merged with
	// its descriptive fields, every other accepted source contributes only
	// its namespaced IDs.
	for _, result := range report.Results {
		if result.Match == nil {
			continue
		}
		isPrimary := primary != nil && result.Source == primary.Name()
		report.Changes = append(report.Changes, c.merger.Merge(album, result.Match, isPrimary)...)
	}

	if len(report.Changes) > 0 && !opts.DryRun && opts.Write {
		if err := c.store.SaveAlbum(ctx, album); err != nil {
			report.Err = fmt.Errorf("save album: %w", err)
			return report, report.Err
		}
	}
	return report, nil
}

func (c *Coordinator) claim(albumID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[albumID]; busy {
		return false
	}
	c.inFlight[albumID] = struct{}{}
	return true
}

func (c *Coordinator) release(albumID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, albumID)
}
