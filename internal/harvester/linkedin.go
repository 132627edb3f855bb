package harvester

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobalert/internal/model"
)

const (
	LinkedInBaseURL  = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedInSource   = "LinkedIn"
	defaultMaxResult = 10
)

// LinkedIn harvests the public guest job search.
type LinkedIn struct {
	baseURL    string
	location   string
	maxResults int
	client     *http.Client
}

var _ model.Harvester = (*LinkedIn)(nil)

// NewLinkedIn returns a harvester searching in location. An empty baseURL
// uses LinkedInBaseURL.
func NewLinkedIn(baseURL, location string, maxResults int, client *http.Client) *LinkedIn {
	if baseURL == "" {
		baseURL = LinkedInBaseURL
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResult
	}
	return &LinkedIn{baseURL: baseURL, location: location, maxResults: maxResults, client: client}
}

func (l *LinkedIn) searchURL(category model.Category, mode model.Mode, topic string) string {
	q := url.Values{}
	q.Set("keywords", topic)
	q.Set("location", l.location)
	if category == model.CategoryInternship {
		q.Set("f_JT", "I")
	} else {
		q.Set("f_JT", "F")
	}
	// Hybrid is the wildcard mode, so it does not narrow the search.
	switch mode {
	case model.ModeOnsite:
		q.Set("f_WT", "1")
	case model.ModeRemote:
		q.Set("f_WT", "2")
	}
	return l.baseURL + "?" + q.Encode()
}

func (l *LinkedIn) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	resp, err := get(ctx, l.client, l.searchURL(category, mode, topic), "text/html")
	if err != nil {
		return nil, fmt.Errorf("linkedin fetch for %q: %w", topic, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("linkedin parse for %q: %w", topic, err)
	}

	var postings []model.Posting
	doc.Find("div.base-card").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := clean(card.Find("h3.base-search-card__title").First().Text())
		org := clean(card.Find("h4.base-search-card__subtitle").First().Text())
		href, ok := card.Find("a.base-card__full-link").First().Attr("href")
		if title == "" || org == "" || !ok {
			return true
		}
		location := clean(card.Find("span.job-search-card__location").First().Text())
		if location == "" {
			location = "Remote"
		}
		freshness := "Recently"
		if listed := clean(card.Find("time").First().Text()); listed != "" {
			freshness = listed
		}

		postings = append(postings, model.Posting{
			Title:        title,
			Organization: org,
			Location:     location,
			Category:     category,
			Mode:         mode,
			Topic:        topic,
			URL:          stripQuery(strings.TrimSpace(href)),
			Source:       linkedInSource,
			Freshness:    freshness,
		})
		return len(postings) < l.maxResults
	})
	return postings, nil
}

// stripQuery drops tracking parameters from a posting link.
func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
