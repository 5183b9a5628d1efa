// Package library implements the SQLite-backed album and track store.
//
// The library is the system of record the reconciliation engine reads from
// and merges into. Albums own an ordered list of tracks; both carry a
// flexible field map for source-specific identifiers and metadata beyond the
// typed columns. The engine never creates or deletes albums, it only updates
// fields on existing rows.
package library
