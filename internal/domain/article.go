package domain

import "github.com/google/uuid"

// Article is a travel post owned by the content store. Title and content may be NULL upstream.
type Article struct {
	ID      uuid.UUID
	Title   *string
	Content *string
}

// TitleText returns the title or an empty string when absent.
func (a Article) TitleText() string {
	if a.Title == nil {
		return ""
	}
	return *a.Title
}

// ContentText returns the raw content or an empty string when absent.
func (a Article) ContentText() string {
	if a.Content == nil {
		return ""
	}
	return *a.Content
}

// ExtractionRequest pairs an article with the prompt rendered for it.
type ExtractionRequest struct {
	ArticleID uuid.UUID
	Prompt    string
}

// ReportKind names the agent that produced an AgentReport.
type ReportKind string

const (
	ReportKindFilter  ReportKind = "filter"
	ReportKindExtract ReportKind = "extract"
)

// AgentReport is the append-only audit row holding raw model output.
type AgentReport struct {
	ArticleID uuid.UUID
	Kind      ReportKind
	Content   string
}

// NewMetadata is the parent record derived from an ExtractionResponse.
type NewMetadata struct {
	PostType         PostType
	Companion        *string
	Duration         *string
	BudgetLevel      *string
	BestSeason       *string
	HasCostBreakdown bool
	SummaryKeywords  []string
}
