package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"tonearm/internal/chooser"
)

var (
	// ErrProviderUnavailable marks a source that is configured but not loaded.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderCall marks a failed provider HTTP call or bad payload.
	ErrProviderCall = errors.New("provider call failed")
	// ErrCacheDecode marks a cache row that could not be deserialized.
	ErrCacheDecode = errors.New("cache decode failed")
	// ErrNoTrackMapping marks a record that aligned to zero local tracks.
	ErrNoTrackMapping = errors.New("no track mapping")
	// ErrAborted propagates a user abort; it halts the run.
	ErrAborted = chooser.ErrAborted
)

// Wrap tags err with a sentinel marker and source/operation context so
// callers can classify failures with errors.Is.
func Wrap(marker error, source, operation string, err error) error {
	parts := make([]string, 0, 2)
	if source = strings.TrimSpace(source); source != "" {
		parts = append(parts, source)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "reconcile failure"
	}
	if marker == nil {
		marker = ErrProviderCall
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
