package harvester

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobalert/internal/model"
)

const (
	InternshalaBaseURL = "https://internshala.com"
	internshalaSource  = "Internshala"
)

// Internshala harvests the internship and job listing pages.
type Internshala struct {
	baseURL    string
	maxResults int
	client     *http.Client
}

var _ model.Harvester = (*Internshala)(nil)

// NewInternshala returns a harvester. An empty baseURL uses
// InternshalaBaseURL.
func NewInternshala(baseURL string, maxResults int, client *http.Client) *Internshala {
	if baseURL == "" {
		baseURL = InternshalaBaseURL
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResult
	}
	return &Internshala{baseURL: strings.TrimRight(baseURL, "/"), maxResults: maxResults, client: client}
}

func (h *Internshala) listingURL(category model.Category, mode model.Mode, topic string) string {
	kind := "jobs"
	if category == model.CategoryInternship {
		kind = "internships"
	}
	path := fmt.Sprintf("%s/%s/%s-%s", h.baseURL, kind, slugify(topic), kind)
	if mode == model.ModeRemote {
		path = fmt.Sprintf("%s/%s/work-from-home-%s-%s", h.baseURL, kind, slugify(topic), kind)
	}
	return path
}

func (h *Internshala) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	resp, err := get(ctx, h.client, h.listingURL(category, mode, topic), "text/html")
	if err != nil {
		return nil, fmt.Errorf("internshala fetch for %q: %w", topic, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("internshala parse for %q: %w", topic, err)
	}

	cards := doc.Find("div.individual_internship")
	if cards.Length() == 0 {
		cards = doc.Find("div.internship_meta")
	}

	var postings []model.Posting
	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		title := clean(firstText(card, "h3", "h4.heading_4_5"))
		org := clean(firstText(card, "p.company-name", "div.company"))
		if title == "" || org == "" {
			return true
		}
		location := clean(firstText(card, "span.location_link", "a.location_link"))
		if location == "" {
			location = "India"
		}

		var link string
		if href, ok := card.Find("a.view_detail_button").First().Attr("href"); ok {
			link = href
		} else if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			link = href
		}
		if strings.HasPrefix(link, "/") {
			link = h.baseURL + link
		}

		postings = append(postings, model.Posting{
			Title:        title,
			Organization: org,
			Location:     location,
			Category:     category,
			Mode:         mode,
			Topic:        topic,
			URL:          link,
			Source:       internshalaSource,
			Freshness:    "Recently",
		})
		return len(postings) < h.maxResults
	})
	return postings, nil
}

// firstText returns the text of the first selector that matches.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			return found.Text()
		}
	}
	return ""
}
