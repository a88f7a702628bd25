package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fallbackConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:      3,
		BaseWait:         1 * time.Millisecond,
		Multiplier:       2.0,
		RetryAfterMargin: 1 * time.Millisecond,
	}
}

func TestFallback_SucceedsOnFirstAttempt(t *testing.T) {
	primary := NewNamedMockProvider("model-a",
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	secondary := NewNamedMockProvider("model-b",
		MockResponse{Content: json.RawMessage(`{"wrong":true}`)},
	)
	f, err := NewFallback([]Provider{primary, secondary}, fallbackConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := f.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if primary.CallCount() != 1 {
		t.Fatalf("expected 1 call to primary, got %d", primary.CallCount())
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary must not be called, got %d calls", secondary.CallCount())
	}
}

func TestFallback_TwoTransientThenSuccessStaysOnPrimary(t *testing.T) {
	primary := NewNamedMockProvider("model-a",
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Err: &ErrOverloaded{Err: errors.New("503")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	secondary := NewNamedMockProvider("model-b")
	f, _ := NewFallback([]Provider{primary, secondary}, fallbackConfig())

	resp, err := f.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if primary.CallCount() != 3 {
		t.Fatalf("expected 3 calls to primary, got %d", primary.CallCount())
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary must not be called, got %d calls", secondary.CallCount())
	}
}

func TestFallback_TransientExhaustionFailsOver(t *testing.T) {
	primary := NewNamedMockProvider("model-a",
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
	)
	secondary := NewNamedMockProvider("model-b",
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	f, _ := NewFallback([]Provider{primary, secondary}, fallbackConfig())

	resp, err := f.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if primary.CallCount() != 3 {
		t.Fatalf("expected primary exhausted with 3 calls, got %d", primary.CallCount())
	}
	if secondary.CallCount() != 1 {
		t.Fatalf("expected 1 call to secondary, got %d", secondary.CallCount())
	}
}

func TestFallback_FatalAdvancesImmediately(t *testing.T) {
	primary := NewNamedMockProvider("model-a",
		MockResponse{Err: errors.New("400 malformed request")},
	)
	secondary := NewNamedMockProvider("model-b",
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	f, _ := NewFallback([]Provider{primary, secondary}, fallbackConfig())

	resp, err := f.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}
	if primary.CallCount() != 1 {
		t.Fatalf("expected 1 call to primary (no retry on fatal), got %d", primary.CallCount())
	}
}

func TestFallback_AllExhaustedWrapsLastError(t *testing.T) {
	lastErr := errors.New("auth failure")
	primary := NewNamedMockProvider("model-a",
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
	)
	secondary := NewNamedMockProvider("model-b",
		MockResponse{Err: lastErr},
	)
	f, _ := NewFallback([]Provider{primary, secondary}, fallbackConfig())

	_, err := f.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	var exhausted *ErrExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ErrExhausted, got %T", err)
	}
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected last error to be wrapped, got: %v", err)
	}
	if len(exhausted.Attempted) != 2 {
		t.Fatalf("expected 2 attempted candidates, got %d", len(exhausted.Attempted))
	}
}

func TestFallback_ContextCancellation(t *testing.T) {
	primary := NewNamedMockProvider("model-a",
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	f, _ := NewFallback([]Provider{primary}, fallbackConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Generate(ctx, Request{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFallback_FreshStartPerCall(t *testing.T) {
	primary := NewNamedMockProvider("model-a",
		MockResponse{Err: errors.New("fatal")},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	secondary := NewNamedMockProvider("model-b",
		MockResponse{Content: json.RawMessage(`{"from":"b"}`)},
	)
	f, _ := NewFallback([]Provider{primary, secondary}, fallbackConfig())

	// First call fails over to secondary.
	resp, err := f.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"from":"b"}` {
		t.Fatalf("unexpected content: %s", resp.Content)
	}

	// Second call starts back at the primary, which has recovered.
	resp, err = f.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"ok":true}` {
		t.Fatalf("expected recovered primary result, got: %s", resp.Content)
	}
}

func TestFallback_RequiresCandidates(t *testing.T) {
	if _, err := NewFallback(nil, fallbackConfig()); err == nil {
		t.Fatal("expected error for empty candidate list")
	}
}

func TestBackoff_ExponentialSchedule(t *testing.T) {
	cfg := RetryConfig{
		BaseWait:         2 * time.Second,
		Multiplier:       2.0,
		RetryAfterMargin: 1 * time.Second,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, tt := range tests {
		got := Backoff(cfg, tt.attempt, errors.New("plain"))
		if got != tt.want {
			t.Errorf("Backoff(attempt=%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_RetryHintWinsWithMargin(t *testing.T) {
	cfg := RetryConfig{
		BaseWait:         2 * time.Second,
		Multiplier:       2.0,
		RetryAfterMargin: 1 * time.Second,
	}

	err := &ErrRateLimit{RetryAfter: 5 * time.Second, Err: errors.New("429")}
	for attempt := 1; attempt <= 3; attempt++ {
		got := Backoff(cfg, attempt, err)
		if got != 6*time.Second {
			t.Errorf("Backoff(attempt=%d) = %s, want 6s", attempt, got)
		}
	}

	ovErr := &ErrOverloaded{RetryAfter: 5 * time.Second}
	if got := Backoff(cfg, 1, ovErr); got != 6*time.Second {
		t.Errorf("Backoff(overloaded hint) = %s, want 6s", got)
	}
}
