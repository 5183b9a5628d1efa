package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"tonearm/internal/chooser"
	"tonearm/internal/logging"
	"tonearm/internal/matchcache"
	"tonearm/internal/meta"
	"tonearm/internal/reconcile"
)

func newResolver(provider *fakeProvider, scorer reconcile.Scorer, picker chooser.Chooser,
	maxDistance *float64) *reconcile.SourceResolver {
	if scorer == nil {
		scorer = &fixedScorer{}
	}
	return reconcile.NewSourceResolver(provider, scorer, picker, maxDistance, 5, logging.NewNop())
}

func TestResolveCachedDistanceAboveCeiling(t *testing.T) {
	provider := &fakeProvider{name: "acme"}
	resolver := newResolver(provider, nil, nil, floatPtr(0.5))
	album := testAlbum(1, "Music Is Math")
	cached := &matchcache.Entry{
		Source:   "acme",
		Provider: "acme",
		Record:   testRecord("r1", "Music Is Math"),
		Distance: floatPtr(0.9),
	}

	result, err := resolver.Resolve(context.Background(), album, cached, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Skipped || result.Reason != reconcile.ReasonCachedDistanceThreshold {
		t.Fatalf("unexpected result: %#v", result)
	}
	if provider.searchCalls != 0 || provider.fetchCalls != 0 {
		t.Fatal("cached skip must not reach the provider")
	}
}

func TestResolveCachedNilDistanceSkipsCeilingCheck(t *testing.T) {
	provider := &fakeProvider{name: "acme"}
	resolver := newResolver(provider, nil, nil, floatPtr(0.1))
	album := testAlbum(1, "Music Is Math")
	cached := &matchcache.Entry{
		Source:   "acme",
		Provider: "acme",
		Record:   testRecord("r1", "Music Is Math"),
	}

	result, err := resolver.Resolve(context.Background(), album, cached, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Match == nil {
		t.Fatalf("expected cached match with nil distance to be accepted: %#v", result)
	}
	if result.Match.Distance != nil {
		t.Fatal("nil distance must survive the cache branch")
	}
}

func TestResolveCachedUnalignableFallsThrough(t *testing.T) {
	provider := &fakeProvider{
		name:   "acme",
		albums: map[string]*meta.AlbumInfo{"stored": testRecord("stored", "Music Is Math")},
	}
	resolver := newResolver(provider, nil, nil, nil)
	album := testAlbum(1, "Music Is Math")
	album.SetField("acme_album_id", "stored")
	cached := &matchcache.Entry{
		Source:   "acme",
		Provider: "acme",
		Record:   testRecord("r1", "Entirely Unrelated Title"),
	}

	result, err := resolver.Resolve(context.Background(), album, cached, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Match == nil || !result.Match.UsedExistingID {
		t.Fatalf("expected fall-through to stored ID branch: %#v", result)
	}
}

func TestResolveStoredIDAccepts(t *testing.T) {
	record := testRecord("stored", "Music Is Math")
	provider := &fakeProvider{
		name:   "acme",
		albums: map[string]*meta.AlbumInfo{"stored": record},
	}
	resolver := newResolver(provider, nil, nil, nil)
	album := testAlbum(1, "Music Is Math")
	album.SetField("acme_album_id", "stored")

	result, err := resolver.Resolve(context.Background(), album, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Match == nil || !result.Match.UsedExistingID {
		t.Fatalf("unexpected result: %#v", result)
	}
	if result.Match.Distance != nil {
		t.Fatal("stored ID match must carry nil distance")
	}
	if provider.searchCalls != 0 {
		t.Fatal("stored ID accept must not search")
	}
}

func TestResolveStoredIDEmptyMappingIsTerminal(t *testing.T) {
	record := testRecord("stored", "Nothing That Aligns")
	provider := &fakeProvider{
		name:          "acme",
		albums:        map[string]*meta.AlbumInfo{"stored": record},
		searchResults: nil,
	}
	resolver := newResolver(provider, nil, nil, nil)
	album := testAlbum(1, "Music Is Math")
	album.SetField("acme_album_id", "stored")

	result, err := resolver.Resolve(context.Background(), album, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Skipped || result.Reason != reconcile.ReasonNoTrackMapping {
		t.Fatalf("unexpected result: %#v", result)
	}
	if provider.searchCalls != 0 {
		t.Fatal("terminal skip must not fall through to fresh lookup")
	}
}

func TestResolveStoredIDFetchErrorFallsThrough(t *testing.T) {
	provider := &fakeProvider{
		name:      "acme",
		fetchErrs: map[string]error{"stored": errors.New("connection refused")},
	}
	resolver := newResolver(provider, nil, nil, nil)
	album := testAlbum(1, "Music Is Math")
	album.SetField("acme_album_id", "stored")

	result, err := resolver.Resolve(context.Background(), album, nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if provider.searchCalls != 1 {
		t.Fatal("fetch failure must fall through to fresh lookup")
	}
	if !result.Skipped || result.Reason != reconcile.ReasonNoCandidates {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestResolveFreshLookupNoCandidates(t *testing.T) {
	provider := &fakeProvider{name: "acme"}
	resolver := newResolver(provider, nil, nil, nil)

	result, err := resolver.Resolve(context.Background(), testAlbum(1, "Music Is Math"), nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Skipped || result.Reason != reconcile.ReasonNoCandidates {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestResolveFreshLookupSearchErrorDegrades(t *testing.T) {
	provider := &fakeProvider{name: "acme", searchErr: errors.New("boom")}
	resolver := newResolver(provider, nil, nil, nil)

	result, err := resolver.Resolve(context.Background(), testAlbum(1, "Music Is Math"), nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Skipped || result.Reason != reconcile.ReasonNoCandidates {
		t.Fatalf("search failure should degrade to no candidates: %#v", result)
	}
}

func TestResolveFreshLookupDistanceThreshold(t *testing.T) {
	record := testRecord("c1", "Music Is Math")
	provider := &fakeProvider{
		name:          "acme",
		searchResults: searchResultsFor(record),
		albums:        map[string]*meta.AlbumInfo{"c1": record},
	}
	scorer := &fixedScorer{albumDistances: map[string]float64{"c1": 0.8}}
	resolver := newResolver(provider, scorer, nil, floatPtr(0.4))

	result, err := resolver.Resolve(context.Background(), testAlbum(1, "Music Is Math"), nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Skipped || result.Reason != reconcile.ReasonDistanceThreshold {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestResolveFreshLookupAccept(t *testing.T) {
	record := testRecord("c1", "Music Is Math")
	provider := &fakeProvider{
		name:          "acme",
		searchResults: searchResultsFor(record),
		albums:        map[string]*meta.AlbumInfo{"c1": record},
	}
	scorer := &fixedScorer{albumDistances: map[string]float64{"c1": 0.2}}
	picker := &actionChooser{action: chooser.ActionAccept}
	resolver := newResolver(provider, scorer, picker, floatPtr(0.4))

	result, err := resolver.Resolve(context.Background(), testAlbum(1, "Music Is Math"), nil, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Match == nil || result.Match.UsedExistingID {
		t.Fatalf("unexpected result: %#v", result)
	}
	if result.Match.Distance == nil || *result.Match.Distance != 0.2 {
		t.Fatalf("unexpected distance: %v", result.Match.Distance)
	}
	if len(result.Match.Mapping) != 1 {
		t.Fatalf("expected mapping, got %#v", result.Match.Mapping)
	}
}

func TestResolveChooserOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		action chooser.Action
		reason string
	}{
		{"skip", chooser.ActionSkip, reconcile.ReasonUserSkipped},
		{"as-is", chooser.ActionAsIs, reconcile.ReasonUserSkipped},
		{"unsupported", chooser.Action(99), reconcile.ReasonUnsupportedAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := testRecord("c1", "Music Is Math")
			provider := &fakeProvider{
				name:          "acme",
				searchResults: searchResultsFor(record),
				albums:        map[string]*meta.AlbumInfo{"c1": record},
			}
			resolver := newResolver(provider, &fixedScorer{}, &actionChooser{action: tc.action}, nil)

			result, err := resolver.Resolve(context.Background(), testAlbum(1, "Music Is Math"), nil, false)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !result.Skipped || result.Reason != tc.reason {
				t.Fatalf("unexpected result: %#v", result)
			}
		})
	}
}

func TestResolveChooserAbortPropagates(t *testing.T) {
	record := testRecord("c1", "Music Is Math")
	provider := &fakeProvider{
		name:          "acme",
		searchResults: searchResultsFor(record),
		albums:        map[string]*meta.AlbumInfo{"c1": record},
	}
	resolver := newResolver(provider, &fixedScorer{}, &actionChooser{err: chooser.ErrAborted}, nil)

	_, err := resolver.Resolve(context.Background(), testAlbum(1, "Music Is Math"), nil, false)
	if !errors.Is(err, reconcile.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestResolveForceSkipsCacheAndStoredID(t *testing.T) {
	record := testRecord("c1", "Music Is Math")
	provider := &fakeProvider{
		name:          "acme",
		searchResults: searchResultsFor(record),
		albums:        map[string]*meta.AlbumInfo{"c1": record},
	}
	resolver := newResolver(provider, &fixedScorer{}, &actionChooser{action: chooser.ActionAccept}, nil)
	album := testAlbum(1, "Music Is Math")
	album.SetField("acme_album_id", "stored")
	cached := &matchcache.Entry{Source: "acme", Record: testRecord("r1", "Music Is Math")}

	result, err := resolver.Resolve(context.Background(), album, cached, true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Match == nil || result.Match.UsedExistingID {
		t.Fatalf("force should go straight to fresh lookup: %#v", result)
	}
	if provider.searchCalls != 1 {
		t.Fatal("force must search")
	}
}
