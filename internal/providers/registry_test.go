package providers_test

import (
	"context"
	"testing"

	"tonearm/internal/logging"
	"tonearm/internal/meta"
	"tonearm/internal/providers"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(context.Context, string, providers.SearchFilters) ([]meta.SearchResult, error) {
	return nil, nil
}

func (f *fakeProvider) AlbumForID(context.Context, string) (*meta.AlbumInfo, error) {
	return nil, nil
}

func newRegistry(t *testing.T, names ...string) *providers.Registry {
	t.Helper()
	registry := providers.NewRegistry(logging.NewNop())
	for _, name := range names {
		if err := registry.Register(&fakeProvider{name: name}); err != nil {
			t.Fatalf("Register(%q): %v", name, err)
		}
	}
	return registry
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := newRegistry(t, "deezer")
	if err := registry.Register(&fakeProvider{name: "Deezer"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestResolveSourcesPreservesRequestOrder(t *testing.T) {
	registry := newRegistry(t, "deezer", "spotify")

	resolved, err := registry.ResolveSources([]string{"Spotify", "deezer"})
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}
	if len(resolved) != 2 || resolved[0].Name() != "spotify" || resolved[1].Name() != "deezer" {
		t.Fatalf("unexpected resolution order: %#v", resolved)
	}
}

func TestResolveSourcesDropsUnknownNames(t *testing.T) {
	registry := newRegistry(t, "deezer", "spotify")

	resolved, err := registry.ResolveSources([]string{"deezer", "musicbrainz"})
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Name() != "deezer" {
		t.Fatalf("unexpected resolution: %#v", resolved)
	}
}

func TestResolveSourcesFailsWhenNothingResolves(t *testing.T) {
	registry := newRegistry(t, "deezer")
	if _, err := registry.ResolveSources([]string{"musicbrainz"}); err == nil {
		t.Fatal("expected error when no requested source resolves")
	}
}

func TestResolveSourcesEmptyRequestReturnsAll(t *testing.T) {
	registry := newRegistry(t, "deezer", "spotify")
	resolved, err := registry.ResolveSources(nil)
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}
	if len(resolved) != 2 || resolved[0].Name() != "deezer" {
		t.Fatalf("unexpected resolution: %#v", resolved)
	}
}

func TestPickPrimaryMatchesConfiguredName(t *testing.T) {
	registry := newRegistry(t, "deezer", "spotify")
	resolved, err := registry.ResolveSources([]string{"deezer", "spotify"})
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}

	primary := registry.PickPrimary(resolved, "Deezer")
	if primary == nil || primary.Name() != "deezer" {
		t.Fatalf("unexpected primary: %#v", primary)
	}
}

func TestPickPrimaryFallsBackToLastResolved(t *testing.T) {
	registry := newRegistry(t, "deezer", "spotify")
	resolved, err := registry.ResolveSources([]string{"deezer", "spotify"})
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}

	primary := registry.PickPrimary(resolved, "musicbrainz")
	if primary == nil || primary.Name() != "spotify" {
		t.Fatalf("expected last resolved provider, got %#v", primary)
	}
}
