package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ProviderSambaNova  = "sambanova"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// discoveryOrder is the order DiscoverConfig checks the vendors' own
// API key variables.
var discoveryOrder = []string{
	ProviderSambaNova,
	ProviderGemini,
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderOpenRouter,
}

// Config selects and configures one backend.
type Config struct {
	// Provider is one of the Provider* names.
	Provider string

	SambaNova  ProviderConfig
	Anthropic  ProviderConfig
	OpenAI     ProviderConfig
	Gemini     ProviderConfig
	OpenRouter ProviderConfig

	Retry RetryConfig

	// Timeout bounds one question-generation request, retries included.
	Timeout time.Duration
}

// ProviderConfig is the per-backend connection setting. Model may be a
// friendly alias ("llama-3.1-8b") or a vendor model ID. An empty BaseURL
// means the vendor default.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:   ProviderSambaNova,
		SambaNova:  ProviderConfig{Model: "llama-3.1-8b"},
		Anthropic:  ProviderConfig{Model: "claude-haiku"},
		OpenAI:     ProviderConfig{Model: "gpt-4o-mini"},
		Gemini:     ProviderConfig{Model: "gemini-flash"},
		OpenRouter: ProviderConfig{Model: "llama-3.1-8b"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 60 * time.Second,
	}
}

// settings returns the connection block for the named backend, or nil.
func (c *Config) settings(provider string) *ProviderConfig {
	switch provider {
	case ProviderSambaNova:
		return &c.SambaNova
	case ProviderAnthropic:
		return &c.Anthropic
	case ProviderOpenAI:
		return &c.OpenAI
	case ProviderGemini:
		return &c.Gemini
	case ProviderOpenRouter:
		return &c.OpenRouter
	}
	return nil
}

// ConfigFromEnv reads ACTPREP_LLM_PROVIDER, ACTPREP_LLM_TIMEOUT and, for
// every backend, ACTPREP_<NAME>_API_KEY, _MODEL and _BASE_URL.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if p := os.Getenv("ACTPREP_LLM_PROVIDER"); p != "" {
		cfg.Provider = strings.ToLower(p)
	}
	if t := os.Getenv("ACTPREP_LLM_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	for _, name := range discoveryOrder {
		s := cfg.settings(name)
		prefix := "ACTPREP_" + strings.ToUpper(name) + "_"
		if v := os.Getenv(prefix + "API_KEY"); v != "" {
			s.APIKey = v
		}
		if v := os.Getenv(prefix + "MODEL"); v != "" {
			s.Model = v
		}
		if v := os.Getenv(prefix + "BASE_URL"); v != "" {
			s.BaseURL = v
		}
	}
	return cfg
}

// DiscoverConfig picks the first backend whose vendor key variable
// (SAMBANOVA_API_KEY, GEMINI_API_KEY, ...) is set.
func DiscoverConfig() (Config, bool) {
	for _, name := range discoveryOrder {
		key := os.Getenv(strings.ToUpper(name) + "_API_KEY")
		if key == "" {
			continue
		}
		cfg := DefaultConfig()
		cfg.Provider = name
		cfg.settings(name).APIKey = key
		return cfg, true
	}
	return Config{}, false
}

// Validate checks the selected backend exists and has a key.
func (c Config) Validate() error {
	if c.Provider == ProviderMock {
		return nil
	}
	s := c.settings(c.Provider)
	if s == nil {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if s.APIKey == "" {
		return fmt.Errorf("ACTPREP_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
	}
	return nil
}

func (c Config) hasKey() bool {
	return c.Validate() == nil
}
