package quizgen

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/quizforge/internal/cache"
	"github.com/abhisek/quizforge/internal/extract"
	"github.com/abhisek/quizforge/internal/llm"
	"github.com/abhisek/quizforge/internal/mcq"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InterBatchDelay = time.Millisecond
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// batchJSON builds a canned provider response holding n records.
func batchJSON(n int, prefix string) json.RawMessage {
	recs := make([]mcq.MCQ, n)
	for i := range recs {
		recs[i] = mcq.MCQ{
			Question: fmt.Sprintf("%s question %d", prefix, i+1),
			Options:  mcq.Options{A: "one", B: "two", C: "three", D: "four"},
			Answer:   mcq.OptionB,
		}
	}
	data, _ := json.Marshal(recs)
	return data
}

func genRequest() mcq.GenerationRequest {
	return mcq.GenerationRequest{
		Text:   "Photosynthesis converts light energy into chemical energy.",
		Counts: mcq.TierCounts{Easy: 3, Medium: 1},
	}
}

func TestGenerate_OneChunkPerBatchPlusTerminal(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(2, "first")},
		llm.MockResponse{Content: batchJSON(2, "second")},
	)
	svc := New(provider, nil, testConfig(), testLogger())

	var sink CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &sink); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if provider.CallCount() != 2 {
		t.Errorf("provider calls = %d, want 2", provider.CallCount())
	}
	if len(sink.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(sink.Chunks), sink.Chunks)
	}

	first, second, terminal := sink.Chunks[0], sink.Chunks[1], sink.Chunks[2]
	if first.Completed || second.Completed {
		t.Error("content chunks must not be marked completed")
	}
	if first.Total != 4 || second.Total != 4 {
		t.Errorf("totals = %d, %d, want 4", first.Total, second.Total)
	}
	if first.Current != 2 || second.Current != 4 {
		t.Errorf("currents = %d, %d, want 2, 4", first.Current, second.Current)
	}
	if !terminal.Completed || len(terminal.Records) != 0 || terminal.Error != "" {
		t.Errorf("terminal chunk = %+v", terminal)
	}
	if len(sink.Records()) != 4 {
		t.Errorf("records = %d, want 4", len(sink.Records()))
	}
}

func TestGenerate_BatchesRunSequentiallyWithDelay(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(2, "first")},
		llm.MockResponse{Content: batchJSON(2, "second")},
	)
	cfg := testConfig()
	cfg.InterBatchDelay = 50 * time.Millisecond
	svc := New(provider, nil, cfg, testLogger())

	start := time.Now()
	var sink CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &sink); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("two batches finished in %v, expected at least one inter-batch delay", elapsed)
	}
}

func TestGenerate_FailedBatchIsReportedAndSkipped(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Err: errors.New("model returned garbage")},
		llm.MockResponse{Content: batchJSON(2, "second")},
	)
	svc := New(provider, nil, testConfig(), testLogger())

	var sink CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &sink); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(sink.Chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(sink.Chunks), sink.Chunks)
	}
	errChunk := sink.Chunks[0]
	if errChunk.Error == "" || len(errChunk.Records) != 0 || errChunk.Completed {
		t.Errorf("expected error chunk, got %+v", errChunk)
	}
	if errChunk.Current != 0 || errChunk.Total != 4 {
		t.Errorf("error chunk progress = %d/%d, want 0/4", errChunk.Current, errChunk.Total)
	}
	if got := sink.Chunks[1]; got.Current != 2 || len(got.Records) != 2 {
		t.Errorf("surviving batch chunk = %+v", got)
	}
	if !sink.Chunks[2].Completed {
		t.Error("stream must still terminate after a failed batch")
	}
}

func TestGenerate_MalformedBatchIsReportedAndSkipped(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`["junk", 42]`)},
		llm.MockResponse{Content: batchJSON(2, "second")},
	)
	svc := New(provider, nil, testConfig(), testLogger())

	var sink CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &sink); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if sink.Chunks[0].Error == "" {
		t.Errorf("expected error chunk for malformed batch, got %+v", sink.Chunks[0])
	}
	if len(sink.Records()) != 2 {
		t.Errorf("records = %d, want 2", len(sink.Records()))
	}
}

func TestGenerate_CacheHitSkipsProvider(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(2, "first")},
		llm.MockResponse{Content: batchJSON(2, "second")},
	)
	c := cache.New()
	svc := New(provider, c, testConfig(), testLogger())

	var warm CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &warm); err != nil {
		t.Fatalf("warm Generate failed: %v", err)
	}
	if provider.CallCount() != 2 {
		t.Fatalf("warm run made %d calls, want 2", provider.CallCount())
	}

	var hit CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &hit); err != nil {
		t.Fatalf("cached Generate failed: %v", err)
	}
	if provider.CallCount() != 2 {
		t.Errorf("cache hit still called the provider (%d calls)", provider.CallCount())
	}
	if len(hit.Chunks) != 2 {
		t.Fatalf("expected single content chunk plus terminal, got %d chunks", len(hit.Chunks))
	}
	if len(hit.Chunks[0].Records) != 4 || !hit.Chunks[1].Completed {
		t.Errorf("cache hit chunks = %+v", hit.Chunks)
	}
}

func TestGenerate_PartialResultIsNotCached(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Err: errors.New("all candidate models exhausted")},
		llm.MockResponse{Content: batchJSON(2, "second")},
		llm.MockResponse{Content: batchJSON(2, "retry first")},
		llm.MockResponse{Content: batchJSON(2, "retry second")},
	)
	c := cache.New()
	svc := New(provider, c, testConfig(), testLogger())

	var first CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &first); err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	if len(first.Records()) != 2 {
		t.Fatalf("first run delivered %d records, want 2", len(first.Records()))
	}
	if c.Len() != 0 {
		t.Fatalf("partial set was cached: %d entries", c.Len())
	}

	var retry CollectSink
	if err := svc.Generate(context.Background(), genRequest(), &retry); err != nil {
		t.Fatalf("retry Generate failed: %v", err)
	}
	if provider.CallCount() != 4 {
		t.Errorf("provider calls = %d, want 4 (retry must reach the provider)", provider.CallCount())
	}
	if len(retry.Records()) != 4 {
		t.Errorf("retry delivered %d records, want the full 4", len(retry.Records()))
	}

	// The complete retry is cacheable.
	if c.Len() != 1 {
		t.Errorf("cache entries = %d, want 1 after a fully successful run", c.Len())
	}
}

func TestGenerate_AttachmentRequestBypassesCache(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(1, "first")},
		llm.MockResponse{Content: batchJSON(1, "second")},
	)
	c := cache.New()
	svc := New(provider, c, testConfig(), testLogger())

	req := mcq.GenerationRequest{
		Attachment: &llm.Attachment{MIME: "application/pdf", Data: []byte("%PDF-1.4")},
		Counts:     mcq.TierCounts{Easy: 1},
	}
	for i := 0; i < 2; i++ {
		var sink CollectSink
		if err := svc.Generate(context.Background(), req, &sink); err != nil {
			t.Fatalf("Generate %d failed: %v", i+1, err)
		}
	}
	if provider.CallCount() != 2 {
		t.Errorf("provider calls = %d, want 2 (attachment requests must not cache)", provider.CallCount())
	}
	if c.Len() != 0 {
		t.Errorf("cache holds %d entries, want 0", c.Len())
	}
}

func TestGenerate_PresentationAttachmentIsExtracted(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("ppt/slides/slide1.xml")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(w, `<p:sld xmlns:a="a" xmlns:p="p"><a:p><a:r><a:t>Mitochondria produce ATP.</a:t></a:r></a:p></p:sld>`)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	provider := llm.NewMockProvider(llm.MockResponse{Content: batchJSON(1, "first")})
	svc := New(provider, nil, testConfig(), testLogger())

	req := mcq.GenerationRequest{
		Attachment: &llm.Attachment{MIME: extract.MIMEPPTX, Data: buf.Bytes()},
		Counts:     mcq.TierCounts{Easy: 1},
	}
	var sink CollectSink
	if err := svc.Generate(context.Background(), req, &sink); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	call := provider.Calls[0]
	if call.Attachment != nil {
		t.Error("extracted presentation must not reach the provider as an attachment")
	}
	if !strings.Contains(call.Messages[0].Content, "Mitochondria produce ATP.") {
		t.Errorf("slide text missing from prompt:\n%s", call.Messages[0].Content)
	}
}

func TestGenerate_RequestValidation(t *testing.T) {
	svc := New(llm.NewMockProvider(), nil, testConfig(), testLogger())

	tests := []struct {
		name string
		req  mcq.GenerationRequest
	}{
		{"no material", mcq.GenerationRequest{Counts: mcq.TierCounts{Easy: 1}}},
		{"zero counts", mcq.GenerationRequest{Text: "m"}},
		{"negative count", mcq.GenerationRequest{Text: "m", Counts: mcq.TierCounts{Easy: -1, Medium: 2}}},
		{"over limit", mcq.GenerationRequest{Text: "m", Counts: mcq.TierCounts{Easy: 600, Medium: 401}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sink CollectSink
			if err := svc.Generate(context.Background(), tt.req, &sink); err == nil {
				t.Error("expected validation error")
			}
			if len(sink.Chunks) != 0 {
				t.Errorf("invalid request still streamed %d chunks", len(sink.Chunks))
			}
		})
	}
}

func TestSolve_SingleCallSingleChunk(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: batchJSON(3, "solved")})
	svc := New(provider, cache.New(), testConfig(), testLogger())

	req := mcq.SolvingRequest{Text: "1. What organelle produces ATP?\nA) Nucleus B) Mitochondria C) Ribosome D) Golgi"}
	var sink CollectSink
	if err := svc.Solve(context.Background(), req, &sink); err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if provider.CallCount() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.CallCount())
	}
	if len(sink.Chunks) != 2 {
		t.Fatalf("expected content chunk plus terminal, got %d", len(sink.Chunks))
	}
	content := sink.Chunks[0]
	if len(content.Records) != 3 || content.Total != 3 || content.Current != 3 {
		t.Errorf("content chunk = %+v", content)
	}
	if !sink.Chunks[1].Completed {
		t.Error("missing terminal chunk")
	}
}

func TestSolve_NeverCaches(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(1, "first")},
		llm.MockResponse{Content: batchJSON(1, "second")},
	)
	c := cache.New()
	svc := New(provider, c, testConfig(), testLogger())

	req := mcq.SolvingRequest{Text: "Some questions"}
	for i := 0; i < 2; i++ {
		var sink CollectSink
		if err := svc.Solve(context.Background(), req, &sink); err != nil {
			t.Fatalf("Solve %d failed: %v", i+1, err)
		}
	}
	if provider.CallCount() != 2 {
		t.Errorf("provider calls = %d, want 2", provider.CallCount())
	}
	if c.Len() != 0 {
		t.Errorf("solving populated the cache with %d entries", c.Len())
	}
}

func TestGenerate_ContextCancellationStopsBetweenBatches(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: batchJSON(2, "first")},
		llm.MockResponse{Content: batchJSON(2, "second")},
	)
	cfg := testConfig()
	cfg.InterBatchDelay = time.Second
	svc := New(provider, nil, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	var sink CollectSink
	done := make(chan error, 1)
	go func() { done <- svc.Generate(ctx, genRequest(), &sink) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not stop after cancellation")
	}
	if provider.CallCount() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.CallCount())
	}
}
