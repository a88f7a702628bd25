package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// FallbackProvider tries an ordered list of candidate models. Transient
// failures (quota, overload) are retried in place with backoff; anything
// else, or retry exhaustion, advances to the next candidate. The list is
// ordered fastest/cheapest first, so each call starts fresh at the top.
// There is no circuit breaking across calls; a model that recovers
// between requests is picked up immediately.
type FallbackProvider struct {
	candidates []Provider
	config     RetryConfig
}

// NewFallback builds a FallbackProvider over the given candidates.
func NewFallback(candidates []Provider, cfg RetryConfig) (*FallbackProvider, error) {
	if len(candidates) == 0 {
		return nil, errors.New("fallback requires at least one candidate provider")
	}
	return &FallbackProvider{candidates: candidates, config: cfg}, nil
}

// Generate runs the request against each candidate in order and returns
// the first success. It fails only when every candidate is exhausted,
// wrapping the last observed error in *ErrExhausted.
func (f *FallbackProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	attempted := make([]string, 0, len(f.candidates))

	for _, candidate := range f.candidates {
		attempted = append(attempted, candidate.ModelID())

		for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
			resp, err := candidate.Generate(ctx, req)
			if err == nil {
				return resp, nil
			}
			lastErr = err

			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			// Fatal for this candidate: move on without burning retries.
			if !IsTransient(err) {
				break
			}

			if attempt == f.config.MaxAttempts {
				break
			}

			wait := Backoff(f.config, attempt, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return nil, &ErrExhausted{Attempted: attempted, Last: lastErr}
}

// ModelID identifies the fallback chain by its candidates.
func (f *FallbackProvider) ModelID() string {
	ids := make([]string, len(f.candidates))
	for i, c := range f.candidates {
		ids[i] = c.ModelID()
	}
	return fmt.Sprintf("fallback(%s)", strings.Join(ids, ","))
}

// Backoff computes the wait before retrying the given 1-based attempt.
// A provider-supplied retry hint wins, padded with a safety margin so we
// land after the quota window actually resets. Otherwise the wait grows
// exponentially from BaseWait.
func Backoff(cfg RetryConfig, attempt int, err error) time.Duration {
	if hint := retryHint(err); hint > 0 {
		return hint + cfg.RetryAfterMargin
	}
	return time.Duration(float64(cfg.BaseWait) * math.Pow(cfg.Multiplier, float64(attempt-1)))
}

// retryHint extracts the provider wait hint carried on transient errors.
func retryHint(err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	var ov *ErrOverloaded
	if errors.As(err, &ov) && ov.RetryAfter > 0 {
		return ov.RetryAfter
	}
	return 0
}
