package extract

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// NormalizeContent removes every tag-like `<...>` substring and trims the result.
// It does not parse HTML: unbalanced markup is tolerated and entities are left as is.
func NormalizeContent(raw string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(raw, ""))
}
