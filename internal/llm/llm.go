// Package llm provides the completion services behind internal.Summarizer.
package llm

import (
	"fmt"

	"github.com/iksnae/prattle/internal"
)

// New returns the client for the configured provider
func New(settings internal.Settings) (internal.StreamingSummarizer, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s (set api_key in settings or the provider's environment variable)", settings.Provider)
	}
	switch settings.Provider {
	case internal.ProviderOpenRouter:
		return NewOpenRouter(OpenRouterConfig{APIKey: settings.APIKey}), nil
	case internal.ProviderAnthropic:
		return NewAnthropic(AnthropicConfig{APIKey: settings.APIKey}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", settings.Provider)
	}
}
