package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// PostType classifies a travel post.
type PostType string

const (
	PostTypeCourse PostType = "course"
	PostTypeSpot   PostType = "spot"
	PostTypeTip    PostType = "tip"
)

// UnmarshalJSON accepts any casing ("Spot", "spot") and normalizes to lowercase.
func (p *PostType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PostType(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// ExtractionResponse is the structured payload the model is asked to emit.
type ExtractionResponse struct {
	Metadata        *ExtractedMetadata `json:"metadata" validate:"required"`
	SummaryKeywords []string           `json:"summary_keywords" validate:"required"`
	MentionedPlaces []MentionedPlace   `json:"mentioned_places" validate:"required,dive"`
}

// ExtractedMetadata is the metadata block of an ExtractionResponse.
type ExtractedMetadata struct {
	PostType         PostType `json:"post_type" validate:"required,oneof=course spot tip"`
	Companion        *string  `json:"companion"`
	Duration         *string  `json:"duration"`
	BudgetLevel      *string  `json:"budget_level"`
	BestSeason       *string  `json:"best_season"`
	HasCostBreakdown *bool    `json:"has_cost_breakdown" validate:"required"`
	Themes           []Theme  `json:"themes" validate:"required,dive"`
}

// Theme is a scored topic of a post.
type Theme struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// UnmarshalJSON requires name and score to be present. An empty name is accepted.
func (t *Theme) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name  *string `json:"name"`
		Score *int    `json:"score"`
	}
	if err := decodeStrict(data, &wire); err != nil {
		return err
	}
	if wire.Name == nil || wire.Score == nil {
		return errors.New("theme requires name and score")
	}
	*t = Theme{Name: *wire.Name, Score: *wire.Score}
	return nil
}

// MentionedPlace is a place named in a post together with the sentence it appeared in.
type MentionedPlace struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Context  string `json:"context"`
}

// UnmarshalJSON requires every field to be present. Empty strings are accepted.
func (p *MentionedPlace) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name     *string `json:"name"`
		Category *string `json:"category"`
		Context  *string `json:"context"`
	}
	if err := decodeStrict(data, &wire); err != nil {
		return err
	}
	if wire.Name == nil || wire.Category == nil || wire.Context == nil {
		return errors.New("mentioned place requires name, category and context")
	}
	*p = MentionedPlace{Name: *wire.Name, Category: *wire.Category, Context: *wire.Context}
	return nil
}

// decodeStrict keeps unknown-field rejection for types with their own UnmarshalJSON,
// which the outer decoder does not propagate.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// MetadataRecord derives the parent record. Callers must have validated the response.
func (r ExtractionResponse) MetadataRecord() NewMetadata {
	m := r.Metadata
	return NewMetadata{
		PostType:         m.PostType,
		Companion:        m.Companion,
		Duration:         m.Duration,
		BudgetLevel:      m.BudgetLevel,
		BestSeason:       m.BestSeason,
		HasCostBreakdown: m.HasCostBreakdown != nil && *m.HasCostBreakdown,
		SummaryKeywords:  r.SummaryKeywords,
	}
}

// Themes returns the themes of the metadata block.
func (r ExtractionResponse) Themes() []Theme {
	if r.Metadata == nil {
		return nil
	}
	return r.Metadata.Themes
}
