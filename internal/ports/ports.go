package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"MetadataExtractor/internal/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks

// ArticleSelector returns articles that have no metadata record yet, in a stable order.
type ArticleSelector interface {
	SelectPending(ctx context.Context, limit int) ([]domain.Article, error)
}

// TextGenerator submits a batch of prompts. The result has one slot per request, in request order.
type TextGenerator interface {
	GenerateBatch(ctx context.Context, model string, task domain.Task, requests []domain.GenerationRequest) (domain.BatchResult, error)
}

// ReportStore appends raw model output for auditing.
type ReportStore interface {
	InsertReport(ctx context.Context, report domain.AgentReport) error
}

// MetadataStore owns metadata records and their theme/place children.
type MetadataStore interface {
	InsertMetadata(ctx context.Context, articleID uuid.UUID, title string, metadata domain.NewMetadata) (int64, error)
	InsertThemes(ctx context.Context, metadataID int64, themes []domain.Theme) error
	InsertPlaces(ctx context.Context, metadataID int64, places []domain.MentionedPlace) error
}

// AttemptStore counts failed extraction attempts so exhausted articles stop being selected.
type AttemptStore interface {
	RecordAttempts(ctx context.Context, articleIDs []uuid.UUID, reason string) error
}

// Claimer leases articles to one pipeline instance at a time.
type Claimer interface {
	Claim(ctx context.Context, articleIDs []uuid.UUID) ([]uuid.UUID, error)
	Release(ctx context.Context, articleIDs []uuid.UUID) error
}

// Notifier sends operator-facing run reports.
type Notifier interface {
	PublishReport(ctx context.Context, message string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
