// Package meta defines provider-neutral metadata records.
//
// AlbumInfo and TrackInfo are a provider's immutable view of a release and
// its tracks. They are produced by provider clients, scored and aligned by
// the reconcile package, and serialized as JSON into the match cache. The
// zero value of a field means "the provider did not supply this"; merge code
// must never write zero-valued fields onto local entities.
package meta
