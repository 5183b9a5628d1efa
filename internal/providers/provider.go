package providers

import (
	"context"

	"tonearm/internal/meta"
)

// SearchFilters narrows provider searches beyond the free-text keywords.
type SearchFilters struct {
	Artist string
	Album  string
	Limit  int
}

// Provider is a remote metadata source capable of album search and lookup.
type Provider interface {
	// Name returns the canonical lower-case source name.
	Name() string

	// Search returns candidate albums for the supplied keywords, best first.
	Search(ctx context.Context, keywords string, filters SearchFilters) ([]meta.SearchResult, error)

	// AlbumForID fetches the full album record for a provider-native ID.
	// A nil record with a nil error means the ID does not exist.
	AlbumForID(ctx context.Context, id string) (*meta.AlbumInfo, error)
}
