package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MetadataExtractor/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestNormalizeContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips tags", in: "<p>Visited <b>Busan</b>.</p>", want: "Visited Busan."},
		{name: "trims whitespace", in: "  \n<div> hello </div>\t", want: "hello"},
		{name: "tolerates unbalanced markup", in: "<p>open <b>bold</p> tail <", want: "open bold tail <"},
		{name: "keeps entities", in: "<span>fish &amp; chips</span>", want: "fish &amp; chips"},
		{name: "plain text untouched", in: "Jeju in spring", want: "Jeju in spring"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NormalizeContent(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeContent(got), "normalizing twice must not change the result")
		})
	}
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	req, err := BuildRequest("Title: {title}\nBody: {content}", domain.Article{
		ID:      id,
		Title:   strPtr("Day Trip"),
		Content: strPtr("<p>Visited <b>Busan</b>.</p>"),
	})
	require.NoError(t, err)
	assert.Equal(t, id, req.ArticleID)
	assert.Equal(t, "Title: Day Trip\nBody: Visited Busan.", req.Prompt)
}

func TestBuildRequest_RepeatedPlaceholders(t *testing.T) {
	t.Parallel()

	req, err := BuildRequest("{title}|{title}|{content}", domain.Article{
		ID:      uuid.New(),
		Title:   strPtr("A"),
		Content: strPtr("B"),
	})
	require.NoError(t, err)
	assert.Equal(t, "A|A|B", req.Prompt)
}

func TestBuildRequest_RejectsMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		article domain.Article
		wantErr error
	}{
		{name: "nil title", article: domain.Article{Content: strPtr("body")}, wantErr: domain.ErrMissingTitle},
		{name: "blank title", article: domain.Article{Title: strPtr("  "), Content: strPtr("body")}, wantErr: domain.ErrMissingTitle},
		{name: "nil content", article: domain.Article{Title: strPtr("t")}, wantErr: domain.ErrMissingContent},
		{name: "empty content", article: domain.Article{Title: strPtr("t"), Content: strPtr("")}, wantErr: domain.ErrMissingContent},
		{name: "blank content", article: domain.Article{Title: strPtr("t"), Content: strPtr(" \n\t")}, wantErr: domain.ErrMissingContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := BuildRequest(DefaultTemplate(), tt.article)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoadTemplate(t *testing.T) {
	t.Parallel()

	tpl, err := LoadTemplate("")
	require.NoError(t, err)
	assert.Contains(t, tpl, "{title}")
	assert.Contains(t, tpl, "{content}")

	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("T={title} C={content}"), 0o600))
	tpl, err = LoadTemplate(good)
	require.NoError(t, err)
	assert.Equal(t, "T={title} C={content}", tpl)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("no placeholders"), 0o600))
	_, err = LoadTemplate(bad)
	assert.Error(t, err)

	_, err = LoadTemplate(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "single line", in: "```json{\"a\":1}```", want: `{"a":1}`},
		{name: "surrounding whitespace", in: "\n  ```json\n{\"a\":1}\n```  \n", want: `{"a":1}`},
		{name: "no fence", in: ` {"a":1} `, want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

const validBody = `{
  "metadata": {
    "post_type": "spot",
    "companion": "friends",
    "duration": null,
    "budget_level": "low",
    "has_cost_breakdown": false,
    "themes": [{"name": "beach", "score": 8}]
  },
  "summary_keywords": ["beach"],
  "mentioned_places": []
}`

func TestParseResponse_FencedSpot(t *testing.T) {
	t.Parallel()

	resp, err := ParseResponse("```json\n" + validBody + "\n```")
	require.NoError(t, err)

	record := resp.MetadataRecord()
	assert.Equal(t, domain.PostTypeSpot, record.PostType)
	assert.Equal(t, "friends", *record.Companion)
	assert.Nil(t, record.Duration)
	assert.Nil(t, record.BestSeason)
	assert.False(t, record.HasCostBreakdown)
	assert.Equal(t, []string{"beach"}, record.SummaryKeywords)
	assert.Empty(t, resp.MentionedPlaces)
	assert.NotNil(t, resp.MentionedPlaces)
	assert.Equal(t, []domain.Theme{{Name: "beach", Score: 8}}, resp.Themes())
}

func TestParseResponse_PostTypeCasing(t *testing.T) {
	t.Parallel()

	resp, err := ParseResponse(strings.Replace(validBody, `"spot"`, `"Course"`, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.PostTypeCourse, resp.Metadata.PostType)
}

func TestParseResponse_Places(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		place string
		want  domain.MentionedPlace
	}{
		{
			name:  "complete",
			place: `{"name": "Haeundae", "category": "beach", "context": "We swam at Haeundae."}`,
			want:  domain.MentionedPlace{Name: "Haeundae", Category: "beach", Context: "We swam at Haeundae."},
		},
		{
			name:  "empty category",
			place: `{"name": "Haeundae", "category": "", "context": "We swam."}`,
			want:  domain.MentionedPlace{Name: "Haeundae", Context: "We swam."},
		},
		{
			name:  "empty strings",
			place: `{"name": "", "category": "", "context": ""}`,
			want:  domain.MentionedPlace{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := strings.Replace(validBody, `"mentioned_places": []`, `"mentioned_places": [`+tt.place+`]`, 1)
			resp, err := ParseResponse(body)
			require.NoError(t, err)
			require.Len(t, resp.MentionedPlaces, 1)
			assert.Equal(t, tt.want, resp.MentionedPlaces[0])
		})
	}
}

func TestParseResponse_ThemeWithEmptyName(t *testing.T) {
	t.Parallel()

	resp, err := ParseResponse(strings.Replace(validBody, `"name": "beach"`, `"name": ""`, 1))
	require.NoError(t, err)
	assert.Equal(t, []domain.Theme{{Name: "", Score: 8}}, resp.Themes())
}

func TestParseResponse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "  "},
		{name: "not json", raw: "I could not read this article."},
		{name: "truncated", raw: "```json\n{\"metadata\": {\"post_type\": \"spot\"\n```"},
		{name: "unknown post type", raw: strings.Replace(validBody, `"spot"`, `"hotel"`, 1)},
		{name: "missing metadata", raw: `{"summary_keywords": [], "mentioned_places": []}`},
		{name: "missing keywords", raw: strings.Replace(validBody, `"summary_keywords": ["beach"],`, "", 1)},
		{name: "missing places", raw: strings.Replace(validBody, `,
  "mentioned_places": []`, "", 1)},
		{name: "missing cost flag", raw: strings.Replace(validBody, `"has_cost_breakdown": false,`, "", 1)},
		{name: "missing themes", raw: strings.Replace(validBody, `,
    "themes": [{"name": "beach", "score": 8}]`, "", 1)},
		{name: "unknown field", raw: strings.Replace(validBody, `"summary_keywords"`, `"rating": 5, "summary_keywords"`, 1)},
		{name: "place without name", raw: strings.Replace(validBody, `"mentioned_places": []`,
			`"mentioned_places": [{"category": "cafe", "context": ""}]`, 1)},
		{name: "place with null name", raw: strings.Replace(validBody, `"mentioned_places": []`,
			`"mentioned_places": [{"name": null, "category": "cafe", "context": ""}]`, 1)},
		{name: "place without context", raw: strings.Replace(validBody, `"mentioned_places": []`,
			`"mentioned_places": [{"name": "Gamcheon", "category": "village"}]`, 1)},
		{name: "place with unknown field", raw: strings.Replace(validBody, `"mentioned_places": []`,
			`"mentioned_places": [{"name": "Gamcheon", "category": "village", "context": "", "rating": 4}]`, 1)},
		{name: "null place", raw: strings.Replace(validBody, `"mentioned_places": []`, `"mentioned_places": [null]`, 1)},
		{name: "theme without score", raw: strings.Replace(validBody, `, "score": 8`, "", 1)},
		{name: "score not integer", raw: strings.Replace(validBody, `"score": 8`, `"score": "high"`, 1)},
		{name: "trailing data", raw: validBody + ` {"extra": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseResponse(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidResponse), "got %v", err)
		})
	}
}
