package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	// RetryAfter is the provider-supplied wait hint, zero if absent.
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrOverloaded indicates the provider reported temporary overload (503
// or an "overloaded" message). Retryable like a rate limit.
type ErrOverloaded struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrOverloaded) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model overloaded: %v", e.Err)
	}
	return "model overloaded"
}

func (e *ErrOverloaded) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the LLM returned content that could not be
// used even after repair.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated because it
// hit the MaxTokens limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// ErrExhausted indicates every candidate model in the fallback list was
// tried and failed. Last holds the final observed failure.
type ErrExhausted struct {
	Attempted []string
	Last      error
}

func (e *ErrExhausted) Error() string {
	return fmt.Sprintf("all %d candidate models exhausted: %v", len(e.Attempted), e.Last)
}

func (e *ErrExhausted) Unwrap() error { return e.Last }

// IsTransient reports whether err is worth retrying against the same
// candidate model. Only quota (429) and overload (503) qualify. Anything
// else fails over to the next candidate immediately.
func IsTransient(err error) bool {
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return true
	}
	var ov *ErrOverloaded
	if errors.As(err, &ov) {
		return true
	}
	return false
}

// retryHintPattern matches provider-supplied wait hints embedded in error
// payloads, e.g. "Please retry in 21.5s" or "retry after 30 seconds".
var retryHintPattern = regexp.MustCompile(`(?i)retry(?:\s+again)?\s+(?:in|after)\s+([0-9]+(?:\.[0-9]+)?)\s*s`)

// parseRetryHint extracts a wait duration from an error message.
// Returns zero when no hint is present.
func parseRetryHint(msg string) time.Duration {
	m := retryHintPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// parseRetryAfterHeader converts a Retry-After header value (delta
// seconds form) to a duration. Returns zero for absent or HTTP-date
// values, which are not worth the parsing complexity here.
func parseRetryAfterHeader(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
