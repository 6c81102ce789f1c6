package validators

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainText = bluemonday.StrictPolicy()

// unescapePasses bounds how many layers of entity encoding are peeled off.
const unescapePasses = 4

// SanitizeText strips markup from free text, trims it and caps it at maxLen
// runes. A maxLen of zero leaves the length alone. The result is plain text,
// so anything rendering it as HTML still has to escape it.
func SanitizeText(input string, maxLen int) string {
	cleaned := strings.TrimSpace(stripMarkup(input))
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			return strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

// stripMarkup sanitizes and unescapes until the text stops changing, so escaped
// tags cannot come back as live markup. Input still changing after the last pass
// is returned in its escaped form.
func stripMarkup(input string) string {
	text := input
	for range unescapePasses {
		next := html.UnescapeString(plainText.Sanitize(text))
		if next == text {
			return text
		}
		text = next
	}
	return plainText.Sanitize(text)
}

// SanitizeOptionalText is SanitizeText for optional fields. Input that is empty
// after cleaning becomes nil.
func SanitizeOptionalText(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	cleaned := SanitizeText(*input, maxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
