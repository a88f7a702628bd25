package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Models is the ordered candidate list, fastest/cheapest first.
	// Each entry is "provider:model", e.g. "gemini:gemini-flash",
	// "anthropic:claude-haiku", "openai:gpt-4o-mini".
	Models []string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout is the maximum duration for a single provider call.
	// Default: 60s.
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// RetryConfig configures per-candidate retry behavior for transient
// failures inside the fallback chain.
type RetryConfig struct {
	// MaxAttempts is the per-candidate attempt budget.
	MaxAttempts int

	// BaseWait is the first-retry wait; doubles each attempt.
	BaseWait time.Duration

	// Multiplier is the exponential growth factor.
	Multiplier float64

	// RetryAfterMargin pads provider-supplied retry hints so the retry
	// lands after the quota window actually resets.
	RetryAfterMargin time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Models: []string{
			"gemini:gemini-flash",
			"gemini:gemini-pro",
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			BaseWait:         2 * time.Second,
			Multiplier:       2.0,
			RetryAfterMargin: 1 * time.Second,
		},
		Timeout: 60 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if m := os.Getenv("QUIZFORGE_MODELS"); m != "" {
		cfg.Models = splitModels(m)
	}

	if k := os.Getenv("QUIZFORGE_GEMINI_API_KEY"); k != "" {
		cfg.Gemini.APIKey = k
	}
	if k := os.Getenv("QUIZFORGE_ANTHROPIC_API_KEY"); k != "" {
		cfg.Anthropic.APIKey = k
	}
	if k := os.Getenv("QUIZFORGE_OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
	}
	if u := os.Getenv("QUIZFORGE_OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}
	if k := os.Getenv("QUIZFORGE_OPENROUTER_API_KEY"); k != "" {
		cfg.OpenRouter.APIKey = k
	}

	// Bare keys work too, for parity with the provider CLIs.
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenRouter.APIKey == "" {
		cfg.OpenRouter.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}

	return cfg
}

// splitModels parses a comma-separated candidate list.
func splitModels(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that every listed candidate has its provider's API key
// set and uses a known provider name.
func (c Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one candidate model is required")
	}
	for _, ref := range c.Models {
		provider, _, err := parseModelRef(ref)
		if err != nil {
			return err
		}
		switch provider {
		case "gemini":
			if c.Gemini.APIKey == "" {
				return fmt.Errorf("QUIZFORGE_GEMINI_API_KEY is required for candidate %q", ref)
			}
		case "anthropic":
			if c.Anthropic.APIKey == "" {
				return fmt.Errorf("QUIZFORGE_ANTHROPIC_API_KEY is required for candidate %q", ref)
			}
		case "openai":
			if c.OpenAI.APIKey == "" {
				return fmt.Errorf("QUIZFORGE_OPENAI_API_KEY is required for candidate %q", ref)
			}
		case "openrouter":
			if c.OpenRouter.APIKey == "" {
				return fmt.Errorf("QUIZFORGE_OPENROUTER_API_KEY is required for candidate %q", ref)
			}
		case "mock":
			// No API key needed.
		}
	}
	return nil
}

// parseModelRef splits a "provider:model" candidate reference.
func parseModelRef(ref string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(ref, ":")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid model reference %q, want provider:model", ref)
	}
	switch provider {
	case "gemini", "anthropic", "openai", "openrouter", "mock":
		return provider, model, nil
	default:
		return "", "", fmt.Errorf("unknown LLM provider: %q", provider)
	}
}
