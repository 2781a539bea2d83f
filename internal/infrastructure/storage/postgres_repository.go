package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"MetadataExtractor/internal/domain"
	"MetadataExtractor/internal/ports"
)

// PostgresRepository reads pending articles and writes extraction results into Postgres.
type PostgresRepository struct {
	db          DB
	maxAttempts int
	psql        sq.StatementBuilderType
}

var (
	_ ports.ArticleSelector = (*PostgresRepository)(nil)
	_ ports.ReportStore     = (*PostgresRepository)(nil)
	_ ports.MetadataStore   = (*PostgresRepository)(nil)
	_ ports.AttemptStore    = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a pgx handle. Articles with maxAttempts recorded
// failures are no longer selected; zero disables that filter.
func NewPostgresRepository(db DB, maxAttempts int) *PostgresRepository {
	return &PostgresRepository{
		db:          db,
		maxAttempts: maxAttempts,
		psql:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SelectPending returns up to limit articles without a metadata record, ordered by id.
func (r *PostgresRepository) SelectPending(ctx context.Context, limit int) ([]domain.Article, error) {
	if r.db == nil || limit <= 0 {
		return nil, nil
	}

	q := r.psql.Select("a.id", "a.title", "a.content").
		From("articles a").
		LeftJoin("article_metadata m ON m.article_id = a.id").
		Where(sq.Eq{"m.id": nil}).
		OrderBy("a.id").
		Limit(uint64(limit))
	if r.maxAttempts > 0 {
		q = q.LeftJoin("extraction_attempts x ON x.article_id = a.id").
			Where(sq.Or{sq.Eq{"x.attempts": nil}, sq.Lt{"x.attempts": r.maxAttempts}})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pending: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Content); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// InsertReport appends an agent report row.
func (r *PostgresRepository) InsertReport(ctx context.Context, report domain.AgentReport) error {
	query, args, err := r.psql.Insert("agent_reports").
		Columns("article_id", "kind", "content").
		Values(report.ArticleID, string(report.Kind), report.Content).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert report: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// InsertMetadata writes the parent metadata record and returns its generated id.
func (r *PostgresRepository) InsertMetadata(ctx context.Context, articleID uuid.UUID, title string, metadata domain.NewMetadata) (int64, error) {
	keywords := metadata.SummaryKeywords
	if keywords == nil {
		keywords = []string{}
	}

	query, args, err := r.psql.Insert("article_metadata").
		Columns("article_id", "title", "post_type", "companion", "duration",
			"budget_level", "best_season", "has_cost_breakdown", "summary_keywords").
		Values(articleID, title, string(metadata.PostType), metadata.Companion, metadata.Duration,
			metadata.BudgetLevel, metadata.BestSeason, metadata.HasCostBreakdown, keywords).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert metadata: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert metadata for %s: %w", articleID, err)
	}
	return id, nil
}

// InsertThemes writes all themes of a metadata record in one statement.
func (r *PostgresRepository) InsertThemes(ctx context.Context, metadataID int64, themes []domain.Theme) error {
	if len(themes) == 0 {
		return nil
	}

	b := r.psql.Insert("metadata_themes").Columns("metadata_id", "name", "score")
	for _, t := range themes {
		b = b.Values(metadataID, t.Name, t.Score)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build insert themes: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert themes for metadata %d: %w", metadataID, err)
	}
	return nil
}

// InsertPlaces writes all mentioned places of a metadata record in one statement.
func (r *PostgresRepository) InsertPlaces(ctx context.Context, metadataID int64, places []domain.MentionedPlace) error {
	if len(places) == 0 {
		return nil
	}

	b := r.psql.Insert("metadata_mentioned_places").Columns("metadata_id", "name", "category", "context")
	for _, p := range places {
		b = b.Values(metadataID, p.Name, p.Category, p.Context)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build insert places: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert places for metadata %d: %w", metadataID, err)
	}
	return nil
}

// RecordAttempts bumps the failure counter of each article.
func (r *PostgresRepository) RecordAttempts(ctx context.Context, articleIDs []uuid.UUID, reason string) error {
	if len(articleIDs) == 0 {
		return nil
	}

	b := r.psql.Insert("extraction_attempts").Columns("article_id", "attempts", "last_reason")
	for _, id := range articleIDs {
		b = b.Values(id, 1, reason)
	}
	b = b.Suffix(`ON CONFLICT (article_id) DO UPDATE
              SET attempts = extraction_attempts.attempts + 1,
                  last_reason = EXCLUDED.last_reason,
                  updated_at = NOW()`)

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build record attempts: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record attempts: %w", err)
	}
	return nil
}
