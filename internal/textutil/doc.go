// Package textutil provides text normalization helpers for provider name
// matching and search query construction.
//
// Provider keys are matched case- and separator-insensitively, and search
// queries sent to external APIs have diacritics folded to ASCII so that
// "Björk" and "Bjork" hit the same results.
package textutil
