// Package factory assembles clients from configuration: it maps provider
// names to builders that produce a (codec, transport) pair.
package factory

import (
	"sync"

	"github.com/modelmux/modelmux/pkg/llm"
)

// Builder creates the codec and transport for one provider from its
// configuration
type Builder func(config llm.ProviderConfig) (llm.Codec, llm.Transport, error)

// builderRegistry holds all registered provider builders
type builderRegistry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

var globalRegistry = &builderRegistry{
	builders: make(map[string]Builder),
}

// RegisterProvider registers a provider builder function
func RegisterProvider(name string, builder Builder) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.builders[name] = builder
}

// GetProvider returns a provider builder by name
func GetProvider(name string) (Builder, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	builder, exists := globalRegistry.builders[name]
	return builder, exists
}

// ListProviders returns all registered provider names
func ListProviders() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	names := make([]string, 0, len(globalRegistry.builders))
	for name := range globalRegistry.builders {
		names = append(names, name)
	}
	return names
}
