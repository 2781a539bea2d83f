package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"MetadataExtractor/internal/domain"
	"MetadataExtractor/internal/extract"
	"MetadataExtractor/internal/ports"
)

// Reasons stored with failed attempts.
const (
	reasonRejected = "rejected"
	reasonBatch    = "batch_failed"
	reasonMissing  = "missing_response"
	reasonParse    = "parse_failed"
	reasonMetadata = "metadata_failed"
)

var attemptReasons = []string{reasonRejected, reasonBatch, reasonMissing, reasonParse, reasonMetadata}

var errNoProgress = errors.New("full page committed nothing")

// Settings tunes a pipeline run.
type Settings struct {
	Template     string
	Model        string
	Task         domain.Task
	SystemPrompt string
	Effort       domain.Effort

	// PageSize is the selection limit; a page shorter than PageThreshold ends the run.
	PageSize      int
	PageThreshold int

	MaxConsecutiveBatchFailures int
	RetryDelay                  time.Duration
}

// PipelineDeps wires all driven adapters into the extraction pipeline.
// Attempts, Claimer and Notifier are optional.
type PipelineDeps struct {
	Selector  ports.ArticleSelector
	Generator ports.TextGenerator
	Reports   ports.ReportStore
	Metadata  ports.MetadataStore
	Attempts  ports.AttemptStore
	Claimer   ports.Claimer
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Settings  Settings
}

// Pipeline selects pending articles page by page and extracts their metadata.
type Pipeline struct {
	selector  ports.ArticleSelector
	generator ports.TextGenerator
	attempts  ports.AttemptStore
	claimer   ports.Claimer
	notifier  ports.Notifier
	cascade   *Cascade
	settings  Settings
	logger    *slog.Logger
	tracer    trace.Tracer
}

// RunReport summarizes one run.
type RunReport struct {
	Pages            int
	Selected         int
	Persisted        int
	MissingSlots     int
	ParseFailures    int
	MetadataFailures int
	Rejected         int
	BatchFailures    int
	Unresolved       []uuid.UUID
}

// LogValue groups the counters in structured logs.
func (r RunReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pages", r.Pages),
		slog.Int("selected", r.Selected),
		slog.Int("persisted", r.Persisted),
		slog.Int("missing_slots", r.MissingSlots),
		slog.Int("parse_failures", r.ParseFailures),
		slog.Int("metadata_failures", r.MetadataFailures),
		slog.Int("rejected", r.Rejected),
		slog.Int("batch_failures", r.BatchFailures),
		slog.Int("unresolved", len(r.Unresolved)),
	)
}

type pageOutcome struct {
	claimed   int
	committed int
	err       error
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := deps.Settings
	if settings.PageSize <= 0 {
		settings.PageSize = 1000
	}
	if settings.PageThreshold <= 0 || settings.PageThreshold > settings.PageSize {
		settings.PageThreshold = settings.PageSize
	}
	if settings.MaxConsecutiveBatchFailures <= 0 {
		settings.MaxConsecutiveBatchFailures = 1
	}
	if settings.Template == "" {
		settings.Template = extract.DefaultTemplate()
	}

	return &Pipeline{
		selector:  deps.Selector,
		generator: deps.Generator,
		attempts:  deps.Attempts,
		claimer:   deps.Claimer,
		notifier:  deps.Notifier,
		cascade:   NewCascade(deps.Reports, deps.Metadata, logger.With("component", "cascade")),
		settings:  settings,
		logger:    logger,
		tracer:    otel.Tracer("MetadataExtractor/usecase"),
	}
}

// Run processes pages until a short page is seen, the circuit breaker opens or ctx is cancelled.
// Cancellation is not an error: the page in flight finishes persisting and the run stops.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	report, err := p.run(ctx)

	if err != nil {
		p.logger.Error("extraction run aborted", "report", report, "error", err)
	} else {
		p.logger.Info("extraction run finished", "report", report)
	}

	p.notify(context.WithoutCancel(ctx), report, err)
	return report, err
}

func (p *Pipeline) run(ctx context.Context) (RunReport, error) {
	var report RunReport
	if p.selector == nil || p.generator == nil {
		return report, nil
	}

	consecutiveFailures := 0
	for {
		if ctx.Err() != nil {
			p.logger.Info("shutdown requested, no further pages are selected")
			return report, nil
		}

		articles, err := p.selector.SelectPending(ctx, p.settings.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				return report, nil
			}
			return report, fmt.Errorf("select pending articles: %w", err)
		}
		report.Pages++
		report.Selected += len(articles)
		lastPage := len(articles) < p.settings.PageThreshold

		if len(articles) == 0 {
			return report, nil
		}

		outcome := p.processPage(ctx, articles, &report)
		if outcome.err == nil && outcome.claimed == 0 {
			p.logger.Info("every selected article is leased by another instance", "selected", len(articles))
			return report, nil
		}
		if outcome.err == nil && p.attempts == nil && outcome.committed == 0 && !lastPage {
			outcome.err = errNoProgress
		}

		if outcome.err != nil {
			if ctx.Err() != nil {
				p.logger.Info("shutdown requested during batch call", "error", outcome.err)
				return report, nil
			}

			report.BatchFailures++
			consecutiveFailures++
			if consecutiveFailures >= p.settings.MaxConsecutiveBatchFailures {
				return report, fmt.Errorf("%w: %d in a row: %w", domain.ErrCircuitOpen, consecutiveFailures, outcome.err)
			}

			p.logger.Warn("page deferred after batch failure",
				"consecutive_failures", consecutiveFailures,
				"retry_in", p.settings.RetryDelay,
				"error", outcome.err,
			)
			if !wait(ctx, p.settings.RetryDelay) {
				return report, nil
			}
			continue
		}
		consecutiveFailures = 0

		if lastPage {
			return report, nil
		}
	}
}

func (p *Pipeline) processPage(ctx context.Context, articles []domain.Article, report *RunReport) pageOutcome {
	ctx, span := p.tracer.Start(ctx, "extractor.page", trace.WithAttributes(
		attribute.Int("extractor.page.selected", len(articles)),
	))
	defer span.End()

	// Writes outlive a shutdown signal so a page never half-commits.
	persistCtx := context.WithoutCancel(ctx)

	claimed, err := p.claim(ctx, articles)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		return pageOutcome{err: fmt.Errorf("claim articles: %w", err)}
	}
	if len(claimed) == 0 {
		return pageOutcome{}
	}
	defer p.release(persistCtx, claimed)

	failed := make(map[string][]uuid.UUID)
	defer func() { p.recordAttempts(persistCtx, failed) }()

	batch := make([]domain.Article, 0, len(claimed))
	requests := make([]domain.GenerationRequest, 0, len(claimed))
	for _, article := range claimed {
		req, err := extract.BuildRequest(p.settings.Template, article)
		if err != nil {
			report.Rejected++
			failed[reasonRejected] = append(failed[reasonRejected], article.ID)
			p.logger.Warn("article rejected before prompting", "article_id", article.ID, "error", err)
			continue
		}
		batch = append(batch, article)
		requests = append(requests, domain.GenerationRequest{
			Key:          article.ID.String(),
			SystemPrompt: p.settings.SystemPrompt,
			UserPrompt:   req.Prompt,
			Effort:       p.settings.Effort,
		})
	}

	outcome := pageOutcome{claimed: len(claimed)}
	if len(requests) == 0 {
		return outcome
	}

	result, err := p.generator.GenerateBatch(ctx, p.settings.Model, p.settings.Task, requests)
	if err == nil {
		err = checkAlignment(requests, result)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		if ctx.Err() == nil {
			for _, article := range batch {
				failed[reasonBatch] = append(failed[reasonBatch], article.ID)
			}
		}
		outcome.err = fmt.Errorf("generate batch: %w", err)
		return outcome
	}

	for i, slot := range result {
		article := batch[i]

		if slot == nil {
			report.MissingSlots++
			failed[reasonMissing] = append(failed[reasonMissing], article.ID)
			p.logger.Debug("no response for article", "article_id", article.ID)
			continue
		}

		resp, err := extract.ParseResponse(slot.Content)
		if err != nil {
			report.ParseFailures++
			failed[reasonParse] = append(failed[reasonParse], article.ID)
			p.logger.Warn("skipping unparseable response",
				"article_id", article.ID,
				"raw_response", slot.Content,
				"error", err,
			)
			continue
		}

		cascade := p.cascade.Persist(persistCtx, article, slot.Content, resp)
		if !cascade.Committed {
			report.MetadataFailures++
			report.Unresolved = append(report.Unresolved, article.ID)
			failed[reasonMetadata] = append(failed[reasonMetadata], article.ID)
			continue
		}
		report.Persisted++
		outcome.committed++
	}

	span.SetAttributes(attribute.Int("extractor.page.committed", outcome.committed))
	return outcome
}

// checkAlignment verifies the result has one slot per request and that every
// slot carrying a key answers the request at the same index.
func checkAlignment(requests []domain.GenerationRequest, result domain.BatchResult) error {
	if len(result) != len(requests) {
		return fmt.Errorf("%w: %d slots for %d requests", domain.ErrMisalignedBatch, len(result), len(requests))
	}
	for i, slot := range result {
		if slot != nil && slot.Key != "" && slot.Key != requests[i].Key {
			return fmt.Errorf("%w: slot %d answers %s, want %s", domain.ErrMisalignedBatch, i, slot.Key, requests[i].Key)
		}
	}
	return nil
}

func (p *Pipeline) claim(ctx context.Context, articles []domain.Article) ([]domain.Article, error) {
	if p.claimer == nil {
		return articles, nil
	}

	ids := make([]uuid.UUID, len(articles))
	for i, article := range articles {
		ids[i] = article.ID
	}
	granted, err := p.claimer.Claim(ctx, ids)
	if err != nil {
		return nil, err
	}

	held := make(map[uuid.UUID]struct{}, len(granted))
	for _, id := range granted {
		held[id] = struct{}{}
	}
	claimed := make([]domain.Article, 0, len(granted))
	for _, article := range articles {
		if _, ok := held[article.ID]; ok {
			claimed = append(claimed, article)
		}
	}
	return claimed, nil
}

func (p *Pipeline) release(ctx context.Context, articles []domain.Article) {
	if p.claimer == nil {
		return
	}

	ids := make([]uuid.UUID, len(articles))
	for i, article := range articles {
		ids[i] = article.ID
	}
	if err := p.claimer.Release(ctx, ids); err != nil {
		p.logger.Warn("release claims failed", "count", len(ids), "error", err)
	}
}

func (p *Pipeline) recordAttempts(ctx context.Context, failed map[string][]uuid.UUID) {
	if p.attempts == nil {
		return
	}
	for _, reason := range attemptReasons {
		ids := failed[reason]
		if len(ids) == 0 {
			continue
		}
		if err := p.attempts.RecordAttempts(ctx, ids, reason); err != nil {
			p.logger.Warn("record extraction attempts failed", "reason", reason, "count", len(ids), "error", err)
		}
	}
}

func (p *Pipeline) notify(ctx context.Context, report RunReport, runErr error) {
	if p.notifier == nil || (runErr == nil && len(report.Unresolved) == 0) {
		return
	}
	if err := p.notifier.PublishReport(ctx, buildRunMessage(report, runErr)); err != nil {
		p.logger.Warn("publish run report failed", "error", err)
	}
}

// Telegram rejects messages longer than maxMessageRunes. The full unresolved
// list is logged with the run report.
const (
	maxMessageRunes   = 4096
	maxErrorRunes     = 512
	maxUnresolvedList = 50
)

func buildRunMessage(report RunReport, runErr error) string {
	var b strings.Builder

	if runErr != nil {
		fmt.Fprintf(&b, "Metadata extraction aborted: %s\n", truncateRunes(runErr.Error(), maxErrorRunes))
	} else {
		b.WriteString("Metadata extraction finished\n")
	}
	fmt.Fprintf(&b, "Pages: %d, selected: %d, persisted: %d\n", report.Pages, report.Selected, report.Persisted)
	fmt.Fprintf(&b, "Missing: %d, unparseable: %d, rejected: %d, batch failures: %d\n",
		report.MissingSlots, report.ParseFailures, report.Rejected, report.BatchFailures)

	if len(report.Unresolved) > 0 {
		fmt.Fprintf(&b, "Unresolved (metadata write failed): %d\n", len(report.Unresolved))
		shown := report.Unresolved[:min(len(report.Unresolved), maxUnresolvedList)]
		for _, id := range shown {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		if rest := len(report.Unresolved) - len(shown); rest > 0 {
			fmt.Fprintf(&b, "... and %d more\n", rest)
		}
	}

	return truncateRunes(b.String(), maxMessageRunes)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// wait sleeps for d and reports whether ctx is still live afterwards.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
