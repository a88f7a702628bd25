package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/quizforge/internal/store"
)

// NewProvider builds the fallback chain from configuration. Each
// candidate is wrapped with event logging before joining the chain, so
// every attempt against every model lands in the event log:
//
//	caller → fallback → [logging → base] per candidate
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo) (Provider, error) {
	candidates := make([]Provider, 0, len(cfg.Models))

	for _, ref := range cfg.Models {
		providerName, model, err := parseModelRef(ref)
		if err != nil {
			return nil, err
		}

		var base Provider
		switch providerName {
		case "gemini":
			base, err = NewGeminiProvider(ctx, cfg.Gemini, model)
		case "anthropic":
			base, err = NewAnthropicProvider(cfg.Anthropic, model)
		case "openai":
			base, err = NewOpenAIProvider(cfg.OpenAI, model)
		case "openrouter":
			base, err = NewOpenRouterProvider(cfg.OpenRouter, model)
		case "mock":
			base = NewNamedMockProvider(model)
		}
		if err != nil {
			return nil, fmt.Errorf("initializing candidate %s: %w", ref, err)
		}

		candidates = append(candidates, WithLogging(base, eventRepo))
	}

	return NewFallback(candidates, cfg.Retry)
}
