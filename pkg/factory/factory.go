package factory

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/modelmux/modelmux/pkg/llm"
)

// Factory creates clients based on configuration
type Factory struct {
	logger zerolog.Logger
}

// New creates a new client factory
func New() *Factory {
	return &Factory{logger: zerolog.Nop()}
}

// NewWithLogger creates a factory whose clients log through logger
func NewWithLogger(logger zerolog.Logger) *Factory {
	return &Factory{logger: logger}
}

// CreateClient builds a client with every configured provider registered and
// the configured retry and fallback policy applied
func (f *Factory) CreateClient(config llm.ClientConfig) (*llm.Client, error) {
	if len(config.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	client := llm.New(
		llm.WithLogger(f.logger),
		llm.WithPolicy(config.Policy()),
	)

	for prefix, providerCfg := range config.Providers {
		name := providerCfg.Provider
		if name == "" {
			name = prefix
		}
		name = strings.ToLower(name)

		builder, exists := GetProvider(name)
		if !exists {
			return nil, fmt.Errorf("unsupported provider: %s", name)
		}

		codec, transport, err := builder(providerCfg)
		if err != nil {
			return nil, fmt.Errorf("building provider %s: %w", name, err)
		}

		if err := client.RegisterProvider(prefix, codec, transport); err != nil {
			return nil, fmt.Errorf("registering provider %s: %w", prefix, err)
		}
	}

	// a fallback entry that cannot resolve would only fail mid-failover
	for _, model := range config.FallbackModels {
		if _, _, err := client.Registry().Resolve(model); err != nil {
			return nil, fmt.Errorf("fallback model %q: %w", model, err)
		}
	}

	return client, nil
}

// CreateClientFromEnv builds a client from environment discovery
func (f *Factory) CreateClientFromEnv() (*llm.Client, error) {
	return f.CreateClient(*llm.ClientConfigFromEnv())
}
