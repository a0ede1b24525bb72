// Provider registry: prefix resolution for provider-qualified model names
package llm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Registration binds a provider prefix to its codec and transport
type Registration struct {
	Prefix    string
	Codec     Codec
	Transport Transport
}

// Registry maps provider prefixes to registrations. It is safe for concurrent
// use; lookups take a read lock only.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Registration
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Registration),
	}
}

// Register binds prefix to the given codec and transport. Prefixes are
// case-insensitive. Re-registering the identical pair is a no-op; binding an
// existing prefix to a different pair fails with *DuplicateProviderError.
func (r *Registry) Register(prefix string, codec Codec, transport Transport) error {
	prefix = normalizePrefix(prefix)
	if prefix == "" {
		return fmt.Errorf("provider prefix must not be empty")
	}
	if codec == nil {
		return fmt.Errorf("provider %q: codec must not be nil", prefix)
	}
	if transport == nil {
		return fmt.Errorf("provider %q: transport must not be nil", prefix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.providers[prefix]; ok {
		if sameBinding(existing.Codec, codec) && sameBinding(existing.Transport, transport) {
			return nil
		}
		return &DuplicateProviderError{Prefix: prefix}
	}

	r.providers[prefix] = Registration{
		Prefix:    prefix,
		Codec:     codec,
		Transport: transport,
	}
	return nil
}

// Resolve splits a provider-qualified model identifier into its registration
// and the bare model name. "openai/gpt-4o" resolves against the "openai"
// registration and yields "gpt-4o". The first separator wins, so model names
// may themselves contain slashes.
func (r *Registry) Resolve(model string) (Registration, string, error) {
	prefix, name, found := strings.Cut(model, "/")
	if !found || name == "" {
		return Registration{}, "", &UnknownProviderError{Prefix: model}
	}
	prefix = normalizePrefix(prefix)

	r.mu.RLock()
	reg, ok := r.providers[prefix]
	r.mu.RUnlock()

	if !ok {
		return Registration{}, "", &UnknownProviderError{Prefix: prefix}
	}
	return reg, name, nil
}

// Prefixes returns all registered provider prefixes, sorted
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	prefixes := lo.Keys(r.providers)
	r.mu.RUnlock()

	sort.Strings(prefixes)
	return prefixes
}

func normalizePrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix))
}

// sameBinding reports whether a and b are the same registered value. Values
// of non-comparable dynamic types are never considered identical; comparing
// them directly would panic.
func sameBinding(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
