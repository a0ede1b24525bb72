package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/pkg/llm"
	"github.com/modelmux/modelmux/pkg/providers/mock"
)

func TestListProvidersIncludesBuiltins(t *testing.T) {
	providers := ListProviders()
	for _, name := range []string{"openai", "deepseek", "openrouter", "ollama", "mock"} {
		assert.Contains(t, providers, name)
	}
}

func TestGetProviderUnknown(t *testing.T) {
	_, exists := GetProvider("unknown-provider")
	assert.False(t, exists)
}

func TestCreateClientRegistersAllConfiguredProviders(t *testing.T) {
	factory := New()
	client, err := factory.CreateClient(llm.ClientConfig{
		Providers: map[string]llm.ProviderConfig{
			"openai": {Provider: "openai", APIKey: "sk-test"},
			"ollama": {Provider: "ollama", BaseURL: "http://localhost:11434"},
		},
		MaxRetries: 2,
	})

	require.NoError(t, err)
	prefixes := client.Registry().Prefixes()
	assert.Contains(t, prefixes, "openai")
	assert.Contains(t, prefixes, "ollama")
}

func TestCreateClientPrefixDefaultsToKey(t *testing.T) {
	factory := New()
	client, err := factory.CreateClient(llm.ClientConfig{
		Providers: map[string]llm.ProviderConfig{
			"mock": {},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, client.Registry().Prefixes(), "mock")
}

func TestCreateClientUnsupportedProvider(t *testing.T) {
	factory := New()
	_, err := factory.CreateClient(llm.ClientConfig{
		Providers: map[string]llm.ProviderConfig{
			"whatever": {Provider: "does-not-exist"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestCreateClientRejectsUnresolvableFallback(t *testing.T) {
	factory := New()
	_, err := factory.CreateClient(llm.ClientConfig{
		Providers: map[string]llm.ProviderConfig{
			"mock": {},
		},
		FallbackModels: []string{"missing/model"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback model")
}

func TestCreateClientNoProviders(t *testing.T) {
	factory := New()
	_, err := factory.CreateClient(llm.ClientConfig{})
	require.Error(t, err)
}

func TestCreateClientEndToEndWithMock(t *testing.T) {
	transport := mock.NewTransport()
	transport.EnqueueJSON(mock.NewResponse("fast-model", "wired"))

	client := llm.New()
	require.NoError(t, client.RegisterProvider("mock", mock.NewCodec(), transport))

	resp, err := client.Complete(context.Background(), llm.Request{
		Model:    "mock/fast-model",
		Messages: []llm.Message{llm.NewMessage(llm.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "wired", resp.Text())
}
