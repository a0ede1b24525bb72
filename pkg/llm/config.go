// Configuration loading: YAML files and environment discovery
package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultDeepseekBaseURL   = "https://api.deepseek.com"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOllamaBaseURL     = "http://localhost:11434"
)

const DefaultTimeoutSeconds = 60

// ProviderConfig holds the connection settings for one provider
type ProviderConfig struct {
	Provider       string            `yaml:"provider" json:"provider"`
	APIKey         string            `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL        string            `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	TimeoutSeconds float64           `yaml:"timeout_s,omitempty" json:"timeout_s,omitempty"`
	Extra          map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Timeout returns the per-request timeout, defaulted when unset
func (c ProviderConfig) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = DefaultTimeoutSeconds
	}
	return time.Duration(secs * float64(time.Second))
}

// ClientConfig holds the full client configuration: per-provider connection
// settings keyed by prefix, plus the retry and fallback policy
type ClientConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers" json:"providers"`

	MaxRetries         int      `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	BackoffBaseSeconds float64  `yaml:"backoff_base_s,omitempty" json:"backoff_base_s,omitempty"`
	BackoffCapSeconds  float64  `yaml:"backoff_cap_s,omitempty" json:"backoff_cap_s,omitempty"`
	NoJitter           bool     `yaml:"no_jitter,omitempty" json:"no_jitter,omitempty"`
	FallbackModels     []string `yaml:"fallback_models,omitempty" json:"fallback_models,omitempty"`
}

// Policy converts the configured policy fields into a PolicyConfig,
// defaulting anything unset
func (c ClientConfig) Policy() PolicyConfig {
	policy := DefaultPolicyConfig()
	if c.MaxRetries > 0 {
		policy.MaxRetries = c.MaxRetries
	}
	if c.BackoffBaseSeconds > 0 {
		policy.BackoffBase = time.Duration(c.BackoffBaseSeconds * float64(time.Second))
	}
	if c.BackoffCapSeconds > 0 {
		policy.BackoffCap = time.Duration(c.BackoffCapSeconds * float64(time.Second))
	}
	policy.Jitter = !c.NoJitter
	policy.FallbackModels = c.FallbackModels
	return policy
}

// LoadClientConfig reads a YAML configuration file
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// parseTimeoutFromEnv parses a timeout in seconds from an environment
// variable, with a fallback default
func parseTimeoutFromEnv(envVar string, defaultSeconds float64) float64 {
	if timeoutStr := os.Getenv(envVar); timeoutStr != "" {
		if secs, err := strconv.ParseFloat(timeoutStr, 64); err == nil && secs > 0 {
			return secs
		}
	}
	return defaultSeconds
}

// ClientConfigFromEnv discovers provider configurations from the
// environment. Every provider whose API key is present is included; Ollama
// is always included since the local endpoint needs no key.
func ClientConfigFromEnv() *ClientConfig {
	cfg := &ClientConfig{
		Providers: make(map[string]ProviderConfig),
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.Providers["openai"] = ProviderConfig{
			Provider:       "openai",
			APIKey:         apiKey,
			BaseURL:        os.Getenv("OPENAI_BASE_URL"),
			TimeoutSeconds: parseTimeoutFromEnv("OPENAI_TIMEOUT", DefaultTimeoutSeconds),
		}
	}

	if apiKey := os.Getenv("DEEPSEEK_API_KEY"); apiKey != "" {
		cfg.Providers["deepseek"] = ProviderConfig{
			Provider:       "deepseek",
			APIKey:         apiKey,
			BaseURL:        os.Getenv("DEEPSEEK_BASE_URL"),
			TimeoutSeconds: parseTimeoutFromEnv("DEEPSEEK_TIMEOUT", DefaultTimeoutSeconds),
		}
	}

	if apiKey := os.Getenv("OPENROUTER_API_KEY"); apiKey != "" {
		cfg.Providers["openrouter"] = ProviderConfig{
			Provider:       "openrouter",
			APIKey:         apiKey,
			BaseURL:        os.Getenv("OPENROUTER_BASE_URL"),
			TimeoutSeconds: parseTimeoutFromEnv("OPENROUTER_TIMEOUT", DefaultTimeoutSeconds),
		}
	}

	ollamaBase := os.Getenv("OLLAMA_BASE_URL")
	if ollamaBase == "" {
		ollamaBase = DefaultOllamaBaseURL
	}
	cfg.Providers["ollama"] = ProviderConfig{
		Provider:       "ollama",
		BaseURL:        ollamaBase,
		TimeoutSeconds: parseTimeoutFromEnv("OLLAMA_TIMEOUT", DefaultTimeoutSeconds),
	}

	return cfg
}
