package usecase

import (
	"context"
	"log/slog"

	"MetadataExtractor/internal/domain"
	"MetadataExtractor/internal/ports"
)

// CascadeOutcome reports which writes of one article's cascade went through.
type CascadeOutcome struct {
	MetadataID   int64
	Committed    bool
	ReportFailed bool
	ThemesFailed bool
	PlacesFailed bool
}

// Cascade persists one parsed extraction: report, then metadata, then themes and places.
//
// Only the metadata write gates the rest. Report, theme and place writes are
// best-effort and never roll back the metadata record; children can be
// re-inserted later against the same metadata id.
type Cascade struct {
	reports  ports.ReportStore
	metadata ports.MetadataStore
	logger   *slog.Logger
}

// NewCascade builds the persistence cascade.
func NewCascade(reports ports.ReportStore, metadata ports.MetadataStore, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{reports: reports, metadata: metadata, logger: logger}
}

// Persist runs the cascade for article. raw is the unparsed model output stored in the audit row.
func (c *Cascade) Persist(ctx context.Context, article domain.Article, raw string, resp domain.ExtractionResponse) CascadeOutcome {
	var outcome CascadeOutcome
	log := c.logger.With("article_id", article.ID)

	err := c.reports.InsertReport(ctx, domain.AgentReport{
		ArticleID: article.ID,
		Kind:      domain.ReportKindExtract,
		Content:   raw,
	})
	if err != nil {
		outcome.ReportFailed = true
		log.Warn("insert agent report failed", "error", err)
	}

	metadataID, err := c.metadata.InsertMetadata(ctx, article.ID, article.TitleText(), resp.MetadataRecord())
	if err != nil {
		log.Error("insert metadata failed, article unresolved",
			"title", article.TitleText(),
			"raw_response", raw,
			"error", err,
		)
		return outcome
	}
	outcome.MetadataID = metadataID
	outcome.Committed = true

	if themes := resp.Themes(); len(themes) > 0 {
		if err := c.metadata.InsertThemes(ctx, metadataID, themes); err != nil {
			outcome.ThemesFailed = true
			log.Warn("insert themes failed", "metadata_id", metadataID, "count", len(themes), "error", err)
		}
	}

	if len(resp.MentionedPlaces) > 0 {
		if err := c.metadata.InsertPlaces(ctx, metadataID, resp.MentionedPlaces); err != nil {
			outcome.PlacesFailed = true
			log.Warn("insert mentioned places failed", "metadata_id", metadataID, "count", len(resp.MentionedPlaces), "error", err)
		}
	}

	return outcome
}
