package llm

import (
	"errors"
	"testing"
	"time"
)

func TestParseRetryHint(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
	}{
		{"Resource has been exhausted. Please retry in 21.5s", 21500 * time.Millisecond},
		{"quota exceeded, retry after 30 seconds", 30 * time.Second},
		{"Please retry again in 5s.", 5 * time.Second},
		{"no hint here", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseRetryHint(tt.msg); got != tt.want {
			t.Errorf("parseRetryHint(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestParseRetryAfterHeader(t *testing.T) {
	if got := parseRetryAfterHeader("30"); got != 30*time.Second {
		t.Errorf("parseRetryAfterHeader(30) = %s, want 30s", got)
	}
	if got := parseRetryAfterHeader(""); got != 0 {
		t.Errorf("parseRetryAfterHeader(empty) = %s, want 0", got)
	}
	// HTTP-date form is intentionally not parsed.
	if got := parseRetryAfterHeader("Wed, 21 Oct 2026 07:28:00 GMT"); got != 0 {
		t.Errorf("parseRetryAfterHeader(date) = %s, want 0", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &ErrRateLimit{Err: errors.New("429")}, true},
		{"overloaded", &ErrOverloaded{}, true},
		{"wrapped rate limit", &ErrExhausted{Last: &ErrRateLimit{}}, true},
		{"invalid response", &ErrInvalidResponse{Err: errors.New("bad")}, false},
		{"max tokens", &ErrMaxTokensExceeded{}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrExhausted_Unwrap(t *testing.T) {
	inner := errors.New("last failure")
	err := &ErrExhausted{Attempted: []string{"a", "b"}, Last: inner}
	if !errors.Is(err, inner) {
		t.Fatal("ErrExhausted must wrap the last error")
	}
}
