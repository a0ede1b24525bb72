package factory

import (
	"github.com/modelmux/modelmux/pkg/llm"
	"github.com/modelmux/modelmux/pkg/providers/deepseek"
	"github.com/modelmux/modelmux/pkg/providers/mock"
	"github.com/modelmux/modelmux/pkg/providers/ollama"
	"github.com/modelmux/modelmux/pkg/providers/openai"
	"github.com/modelmux/modelmux/pkg/providers/openrouter"
)

// httpTransport builds the standard HTTP transport for a provider config
func httpTransport(config llm.ProviderConfig, defaultBaseURL string) llm.Transport {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return llm.NewHTTPTransport(baseURL, config.APIKey,
		llm.WithTimeout(config.Timeout()))
}

func init() {
	RegisterProvider("openai", func(config llm.ProviderConfig) (llm.Codec, llm.Transport, error) {
		return openai.NewCodec(), httpTransport(config, openai.DefaultBaseURL), nil
	})

	RegisterProvider("deepseek", func(config llm.ProviderConfig) (llm.Codec, llm.Transport, error) {
		return deepseek.NewCodec(), httpTransport(config, deepseek.DefaultBaseURL), nil
	})

	RegisterProvider("openrouter", func(config llm.ProviderConfig) (llm.Codec, llm.Transport, error) {
		return openrouter.NewCodec(), httpTransport(config, openrouter.DefaultBaseURL), nil
	})

	RegisterProvider("ollama", func(config llm.ProviderConfig) (llm.Codec, llm.Transport, error) {
		return ollama.NewCodec(), httpTransport(config, ollama.DefaultBaseURL), nil
	})

	RegisterProvider("mock", func(config llm.ProviderConfig) (llm.Codec, llm.Transport, error) {
		return mock.NewCodec(), mock.NewTransport(), nil
	})
}
