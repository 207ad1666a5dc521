package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/actprep/internal/logger"
	"github.com/abhisek/actprep/internal/store"
	"github.com/abhisek/actprep/internal/telemetry"
)

// Options carries the optional collaborators wired around a base provider.
type Options struct {
	EventRepo store.EventRepo
	Logger    *logger.Logger
	Recorder  telemetry.Recorder
}

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with retry, telemetry and logging middleware.
func NewProvider(ctx context.Context, cfg Config, opts Options) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderSambaNova, ProviderOpenAI, ProviderOpenRouter:
		base, err = NewOpenAIProvider(cfg.Provider, *cfg.settings(cfg.Provider))
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Wrap with middleware: caller → retry → telemetry → logging → base
	wrapped := base
	if opts.EventRepo != nil {
		wrapped = WithLogging(wrapped, cfg.Provider, opts.EventRepo, opts.Logger)
	}
	if opts.Recorder != nil {
		wrapped = WithTelemetry(wrapped, opts.Recorder)
	}
	return WithRetry(wrapped, cfg.Retry, opts.Logger), nil
}

// NewProviderFromEnv builds a provider from ACTPREP_* variables. When the
// selected provider has no key configured it falls back to DiscoverConfig.
func NewProviderFromEnv(ctx context.Context, opts Options) (Provider, Config, error) {
	cfg := ConfigFromEnv()
	if !cfg.hasKey() {
		if discovered, ok := DiscoverConfig(); ok {
			discovered.Timeout = cfg.Timeout
			cfg = discovered
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}

	p, err := NewProvider(ctx, cfg, opts)
	return p, cfg, err
}
