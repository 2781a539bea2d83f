package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"MetadataExtractor/internal/config"
	"MetadataExtractor/internal/domain"
	"MetadataExtractor/internal/extract"
	"MetadataExtractor/internal/infrastructure/claims"
	"MetadataExtractor/internal/infrastructure/llm"
	"MetadataExtractor/internal/infrastructure/scheduler"
	"MetadataExtractor/internal/infrastructure/storage"
	"MetadataExtractor/internal/infrastructure/telegram"
	"MetadataExtractor/internal/logging"
	"MetadataExtractor/internal/ports"
	"MetadataExtractor/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New connects to the stores and builds the pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format, false)
	}

	effort, err := domain.ParseEffort(cfg.Gemini.Effort)
	if err != nil {
		return nil, err
	}

	template, err := extract.LoadTemplate(cfg.Pipeline.PromptPath)
	if err != nil {
		return nil, fmt.Errorf("load prompt template: %w", err)
	}

	pool, err := storage.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	application := &Application{cfg: cfg, logger: baseLogger, pool: pool}

	repository := storage.NewPostgresRepository(pool, cfg.Pipeline.MaxAttemptsPerArticle)
	generator := llm.NewGeminiClient(cfg.Gemini, baseLogger.With("component", "llm.gemini"))

	var claimer ports.Claimer = claims.Local{}
	if cfg.Claims.RedisAddr != "" {
		application.redis = redis.NewClient(&redis.Options{Addr: cfg.Claims.RedisAddr})
		if err := application.redis.Ping(ctx).Err(); err != nil {
			application.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		claimer = claims.NewRedis(application.redis, instanceOwner(), cfg.Claims.LeaseTTL)
		baseLogger.Info("article claims enabled", "redis", cfg.Claims.RedisAddr, "lease_ttl", cfg.Claims.LeaseTTL)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	application.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Selector:  repository,
		Generator: generator,
		Reports:   repository,
		Metadata:  repository,
		Attempts:  repository,
		Claimer:   claimer,
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "pipeline"),
		Settings: usecase.Settings{
			Template:     template,
			Model:        cfg.Gemini.Model,
			Task:         domain.Task{Tag: cfg.Gemini.TaskTag, Subtask: cfg.Gemini.SubtaskTag},
			SystemPrompt: cfg.Gemini.SystemPrompt,
			Effort:       effort,

			PageSize:                    cfg.Pipeline.PageSize,
			PageThreshold:               cfg.Pipeline.PageThreshold,
			MaxConsecutiveBatchFailures: cfg.Pipeline.MaxConsecutiveBatchFailures,
			RetryDelay:                  cfg.Pipeline.RetryDelay,
		},
	})

	if cfg.Scheduler.CronExpression != "" {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
		application.scheduler = usecase.NewScheduler(driver, application.pipeline, baseLogger.With("component", "scheduler"))
	}

	return application, nil
}

// Run executes a single extraction run, or keeps the cron schedule alive until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler == nil {
		_, err := a.pipeline.Run(ctx)
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String(),
	)

	<-ctx.Done()

	stopCtx, cancel := stopContext(ctx, a.cfg.Scheduler.ShutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// Close releases the connections opened by New.
func (a *Application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// stopContext outlives ctx so a running job can finish its page before Close
// releases the pool. A zero timeout waits without a deadline.
func stopContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, timeout)
}

func instanceOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()
}
