// Package filter classifies free-form postings from boards that cannot be
// queried by category, mode or topic, and decides whether they answer a
// harvest request.
package filter

import (
	"strings"

	"github.com/amishk599/jobalert/internal/model"
)

// DefaultTopicKeywords maps each offered topic to title keywords. A topic
// missing here falls back to its own words.
var DefaultTopicKeywords = map[string][]string{
	"Python Developer":    {"python", "django", "flask", "fastapi"},
	"Web Development":     {"web", "frontend", "front-end", "full stack", "fullstack", "react"},
	"Data Science":        {"data scien", "data analyst", "analytics"},
	"Machine Learning":    {"machine learning", "ml ", "ml engineer", "deep learning", "ai engineer"},
	"Android Development": {"android", "kotlin"},
	"iOS Development":     {"ios", "swift"},
	"DevOps":              {"devops", "sre", "site reliability", "platform engineer", "infrastructure"},
	"Digital Marketing":   {"marketing", "seo", "growth"},
	"UI/UX Design":        {"ui", "ux", "product design"},
	"Content Writing":     {"content", "writer", "copywrit"},
}

// ClassifyCategory reads the category from a posting title.
func ClassifyCategory(title string) model.Category {
	if strings.Contains(strings.ToLower(title), "intern") {
		return model.CategoryInternship
	}
	return model.CategoryJob
}

// ClassifyMode reads the work mode from a location string. Anything not
// marked remote or hybrid is on-site.
func ClassifyMode(location string) model.Mode {
	loc := strings.ToLower(location)
	switch {
	case strings.Contains(loc, "hybrid"):
		return model.ModeHybrid
	case strings.Contains(loc, "remote"), strings.Contains(loc, "work from home"):
		return model.ModeRemote
	default:
		return model.ModeOnsite
	}
}

// TopicFilter matches postings against a requested (category, mode, topic)
// and an optional list of location keywords. Matching is case-insensitive.
// An empty location list matches every location.
type TopicFilter struct {
	keywords  map[string][]string
	locations []string
}

// NewTopicFilter returns a filter using keywords per topic; nil uses
// DefaultTopicKeywords.
func NewTopicFilter(keywords map[string][]string, locations []string) *TopicFilter {
	if keywords == nil {
		keywords = DefaultTopicKeywords
	}
	return &TopicFilter{keywords: keywords, locations: locations}
}

// Match reports whether p answers the request. p.Category and p.Mode must
// already be classified.
func (f *TopicFilter) Match(p model.Posting, category model.Category, mode model.Mode, topic string) bool {
	if p.Category != category {
		return false
	}
	if !model.ModeMatches(mode, p.Mode) {
		return false
	}
	if !containsAny(p.Title, f.topicKeywords(topic)) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(p.Location, f.locations) {
		return false
	}
	return true
}

func (f *TopicFilter) topicKeywords(topic string) []string {
	if kws, ok := f.keywords[topic]; ok {
		return kws
	}
	return strings.Fields(topic)
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
