package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"MetadataExtractor/internal/config"
	"MetadataExtractor/internal/domain"
	"MetadataExtractor/internal/ports"
)

const (
	defaultConcurrency = 8
	taskHeader         = "X-Extractor-Task"
)

// GeminiClient implements ports.TextGenerator on top of Gemini's OpenAI-compatible
// chat completions endpoint. A batch is fanned out as concurrent completions.
type GeminiClient struct {
	client      openai.Client
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
	tracer      trace.Tracer
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(cfg config.GeminiConfig, logger *slog.Logger) *GeminiClient {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &GeminiClient{
		client:      openai.NewClient(opts...),
		concurrency: concurrency,
		limiter:     rate.NewLimiter(limit, concurrency),
		logger:      logger,
		tracer:      otel.Tracer("MetadataExtractor/llm"),
	}
}

// GenerateBatch sends every request and returns one slot per request in the same order.
// A request that fails or yields no text leaves its slot nil. The call fails as a whole
// only when the context ends or when no request of a non-empty batch succeeded.
func (c *GeminiClient) GenerateBatch(ctx context.Context, model string, task domain.Task, requests []domain.GenerationRequest) (domain.BatchResult, error) {
	ctx, span := c.tracer.Start(ctx, "llm.generate_batch", trace.WithAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.task", task.String()),
		attribute.Int("llm.batch_size", len(requests)),
	))
	defer span.End()

	results := make(domain.BatchResult, len(requests))
	errs := make([]error, len(requests))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, req := range requests {
		g.Go(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				errs[i] = err
				return nil
			}
			text, err := c.generate(ctx, model, task, req)
			if err != nil {
				errs[i] = err
				return nil
			}
			if strings.TrimSpace(text) == "" {
				return nil
			}
			results[i] = &domain.RawResponse{Key: req.Key, Content: text}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return nil, fmt.Errorf("generate batch %s: %w", task, err)
	}

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		c.logger.WarnContext(ctx, "generation request failed",
			"task", task.String(),
			"request_key", requests[i].Key,
			"error", err)
	}

	span.SetAttributes(attribute.Int("llm.failed", failed))
	if len(requests) > 0 && failed == len(requests) {
		err := fmt.Errorf("generate batch %s: all %d requests failed: %w", task, failed, errors.Join(errs...))
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		return nil, err
	}

	return results, nil
}

func (c *GeminiClient) generate(ctx context.Context, model string, task domain.Task, req domain.GenerationRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if req.Effort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.Effort)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params, option.WithHeader(taskHeader, task.String()))
	if err != nil {
		return "", fmt.Errorf("chat completion %s: %w", req.Key, err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}

	return completion.Choices[0].Message.Content, nil
}
