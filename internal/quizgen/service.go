package quizgen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/quizforge/internal/cache"
	"github.com/abhisek/quizforge/internal/extract"
	"github.com/abhisek/quizforge/internal/llm"
	"github.com/abhisek/quizforge/internal/mcq"
)

// Service orchestrates question generation and solving: it plans
// batches, drives the provider sequentially, normalizes each response,
// and streams results to a sink.
type Service struct {
	provider   llm.Provider
	normalizer *mcq.Normalizer
	cache      *cache.Cache
	config     Config
	logger     *slog.Logger
}

// New creates a Service. A nil cache disables caching; a nil logger
// falls back to slog.Default.
func New(provider llm.Provider, c *cache.Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:   provider,
		normalizer: mcq.NewNormalizer(logger),
		cache:      c,
		config:     cfg,
		logger:     logger,
	}
}

// Generate produces a question set for req, streaming one chunk per
// batch to sink followed by a terminal chunk. Batches run strictly
// sequentially with the configured delay between them. A failed batch
// is reported as an error chunk and skipped; the stream still
// terminates normally. Returns an error only when the whole request
// cannot proceed or the sink fails.
func (s *Service) Generate(ctx context.Context, req mcq.GenerationRequest, sink Sink) error {
	if err := req.Validate(); err != nil {
		return err
	}

	requestID := uuid.NewString()
	ctx = llm.WithRequestID(ctx, requestID)
	ctx = llm.WithPurpose(ctx, "quiz-gen")
	logger := s.logger.With("request_id", requestID)

	cacheable := req.Attachment == nil && s.cache != nil
	var key cache.Key
	if cacheable {
		key = cache.KeyFor(req)
		if set, ok := s.cache.Get(key); ok {
			logger.Info("serving question set from cache", "records", len(set))
			if err := sink.Send(Chunk{Records: set, Total: len(set), Current: len(set)}); err != nil {
				return err
			}
			return sink.Send(Chunk{Completed: true})
		}
	}

	material, attachment, err := s.prepareSource(req)
	if err != nil {
		return err
	}

	batches := PlanBatches(req.Counts, s.config.BatchSize)
	total := req.Counts.Total()
	logger.Info("starting generation", "total", total, "batches", len(batches))

	var all []mcq.MCQ
	current := 0
	batchFailed := false
	for i, batch := range batches {
		if i > 0 {
			if err := sleepCtx(ctx, s.config.InterBatchDelay); err != nil {
				return err
			}
		}

		records, err := s.generateBatch(ctx, material, attachment, batch, req.Explain)
		if err != nil {
			logger.Warn("batch failed, skipping", "batch", i+1, "error", err)
			batchFailed = true
			if serr := sink.Send(Chunk{Total: total, Current: current, Error: err.Error()}); serr != nil {
				return serr
			}
			continue
		}

		current += len(records)
		all = append(all, records...)
		if err := sink.Send(Chunk{Records: records, Total: total, Current: current}); err != nil {
			return err
		}
	}

	// A partial set must never become resident: it would shadow an
	// identical retry that could deliver the full count.
	if cacheable && !batchFailed {
		s.cache.Put(key, all)
	}
	return sink.Send(Chunk{Completed: true})
}

// Solve answers the questions in req with a single provider call,
// streamed as one content chunk and a terminal chunk. Solving responses
// are never cached.
func (s *Service) Solve(ctx context.Context, req mcq.SolvingRequest, sink Sink) error {
	if err := req.Validate(); err != nil {
		return err
	}

	requestID := uuid.NewString()
	ctx = llm.WithRequestID(ctx, requestID)
	ctx = llm.WithPurpose(ctx, "quiz-solve")

	text := req.Text
	attachment := req.Attachment
	if e := extract.ForAttachment(attachment); e != nil {
		extracted, err := e.Extract(attachment)
		if err != nil {
			return fmt.Errorf("extracting attachment text: %w", err)
		}
		text = joinMaterial(text, extracted)
		attachment = nil
	}

	llmReq := llm.Request{
		System: solveSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildSolveMessage(text, req.Explain)},
		},
		Attachment:  attachment,
		Schema:      mcq.SetSchema,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}
	resp, err := s.provider.Generate(ctx, llmReq)
	if err != nil {
		return fmt.Errorf("LLM solving failed: %w", err)
	}
	records, err := s.normalizer.Normalize(resp.Content)
	if err != nil {
		return fmt.Errorf("normalizing solving response: %w", err)
	}

	if err := sink.Send(Chunk{Records: records, Total: len(records), Current: len(records)}); err != nil {
		return err
	}
	return sink.Send(Chunk{Completed: true})
}

// prepareSource resolves the request material: extractable attachments
// become text, everything else passes through to the provider natively.
func (s *Service) prepareSource(req mcq.GenerationRequest) (string, *llm.Attachment, error) {
	material := req.Text
	attachment := req.Attachment
	if e := extract.ForAttachment(attachment); e != nil {
		extracted, err := e.Extract(attachment)
		if err != nil {
			return "", nil, fmt.Errorf("extracting attachment text: %w", err)
		}
		material = joinMaterial(material, extracted)
		attachment = nil
	}
	return material, attachment, nil
}

func (s *Service) generateBatch(ctx context.Context, material string, attachment *llm.Attachment, batch mcq.TierCounts, explain bool) ([]mcq.MCQ, error) {
	req := llm.Request{
		System: generateSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildGenerateMessage(material, batch, explain)},
		},
		Attachment:  attachment,
		Schema:      mcq.SetSchema,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	records, err := s.normalizer.Normalize(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("normalizing batch response: %w", err)
	}
	return records, nil
}

func joinMaterial(text, extracted string) string {
	if text == "" {
		return extracted
	}
	return text + "\n\n" + extracted
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
