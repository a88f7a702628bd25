package quizgen

import "time"

// Config controls the behavior of the Service.
type Config struct {
	// BatchSize is the number of questions requested per provider call.
	BatchSize int

	// InterBatchDelay is the pause before every batch after the first.
	InterBatchDelay time.Duration

	// MaxTokens is the token budget for each LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64
}

// DefaultConfig returns a Config with the recommended defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       2,
		InterBatchDelay: time.Second,
		MaxTokens:       4096,
		Temperature:     0.7,
	}
}
