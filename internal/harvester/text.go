package harvester

import (
	"html"
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first, which handles double-encoded API payloads.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return strings.Join(strings.Fields(plain), " ")
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a topic into a URL path segment: "UI/UX Design" becomes
// "ui-ux-design".
func slugify(topic string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(topic), "-"), "-")
}

// clean collapses whitespace in scraped text.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
