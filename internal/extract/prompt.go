package extract

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"MetadataExtractor/internal/domain"
)

const (
	titlePlaceholder   = "{title}"
	contentPlaceholder = "{content}"
)

//go:embed prompts/extract.txt
var defaultTemplate string

// DefaultTemplate returns the built-in extraction prompt.
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate reads a prompt template from path, or returns the built-in one when path is empty.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}

	template := string(raw)
	if !strings.Contains(template, titlePlaceholder) || !strings.Contains(template, contentPlaceholder) {
		return "", fmt.Errorf("prompt template %s must contain %s and %s", path, titlePlaceholder, contentPlaceholder)
	}
	return template, nil
}

// BuildRequest renders the template for one article.
//
// Substitution is literal and ordered: {title} first, then {content}. A title
// that itself contains "{content}" therefore receives the article body.
func BuildRequest(template string, article domain.Article) (domain.ExtractionRequest, error) {
	title, content := article.TitleText(), article.ContentText()
	if strings.TrimSpace(title) == "" {
		return domain.ExtractionRequest{}, fmt.Errorf("build prompt for %s: %w", article.ID, domain.ErrMissingTitle)
	}
	if strings.TrimSpace(content) == "" {
		return domain.ExtractionRequest{}, fmt.Errorf("build prompt for %s: %w", article.ID, domain.ErrMissingContent)
	}

	prompt := strings.ReplaceAll(template, titlePlaceholder, title)
	prompt = strings.ReplaceAll(prompt, contentPlaceholder, NormalizeContent(content))

	return domain.ExtractionRequest{ArticleID: article.ID, Prompt: prompt}, nil
}
