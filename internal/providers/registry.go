package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"tonearm/internal/logging"
	"tonearm/internal/textutil"
)

// Registry resolves configured source names to registered providers.
type Registry struct {
	providers map[string]Provider
	order     []string
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    logging.NewComponentLogger(logger, "providers"),
	}
}

// Register adds a provider under its canonical name. Registering the same
// name twice is an error.
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return errors.New("provider is nil")
	}
	key := textutil.NormalizeKey(provider.Name())
	if key == "" {
		return errors.New("provider name is empty")
	}
	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("provider %q already registered", provider.Name())
	}
	r.providers[key] = provider
	r.order = append(r.order, key)
	return nil
}

// Names returns the registered source names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Lookup returns the provider registered under name, matching
// case-insensitively and ignoring punctuation.
func (r *Registry) Lookup(name string) (Provider, bool) {
	provider, ok := r.providers[textutil.NormalizeKey(name)]
	return provider, ok
}

// ResolveSources maps the requested source names to providers, preserving
// request order. Unknown names are logged and dropped, never fatal. An empty
// request resolves every registered provider in registration order. The
// returned error is non-nil only when nothing at all resolved.
func (r *Registry) ResolveSources(requested []string) ([]Provider, error) {
	if len(requested) == 0 {
		resolved := make([]Provider, 0, len(r.order))
		for _, key := range r.order {
			resolved = append(resolved, r.providers[key])
		}
		if len(resolved) == 0 {
			return nil, errors.New("no providers registered")
		}
		return resolved, nil
	}

	seen := make(map[string]bool, len(requested))
	var resolved []Provider
	for _, name := range requested {
		key := textutil.NormalizeKey(name)
		if key == "" || seen[key] {
			continue
		}
		provider, ok := r.providers[key]
		if !ok {
			r.logger.Warn("ignoring unknown source",
				logging.String(logging.FieldSource, strings.TrimSpace(name)),
				logging.String(logging.FieldErrorHint, "known sources: "+strings.Join(r.sortedNames(), ", ")),
			)
			continue
		}
		seen[key] = true
		resolved = append(resolved, provider)
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("none of the requested sources are available: %s",
			strings.Join(requested, ", "))
	}
	return resolved, nil
}

// PickPrimary chooses the provider whose record drives descriptive fields.
// When the configured name does not match a resolved provider the last
// resolved one wins, mirroring an ordered walk where each source overwrites
// the previous.
func (r *Registry) PickPrimary(resolved []Provider, configured string) Provider {
	if len(resolved) == 0 {
		return nil
	}
	key := textutil.NormalizeKey(configured)
	for _, provider := range resolved {
		if textutil.NormalizeKey(provider.Name()) == key {
			return provider
		}
	}
	if key != "" {
		r.logger.Warn("primary source not resolved, falling back to last",
			logging.String(logging.FieldSource, configured),
		)
	}
	return resolved[len(resolved)-1]
}

func (r *Registry) sortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}
