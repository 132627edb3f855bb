package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/jobalert/internal/filter"
	"github.com/amishk599/jobalert/internal/model"
)

const (
	GemBaseURL = "https://api.gem.com/job_board/v0"
	gemSource  = "Gem"
)

type gemJob struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Location       gemLocation `json:"location"`
	AbsoluteURL    string      `json:"absolute_url"`
	FirstPublished string      `json:"first_published_at"`
	Content        string      `json:"content"`
	ContentPlain   string      `json:"content_plain"`
}

type gemLocation struct {
	Name string `json:"name"`
}

// Gem harvests Gem-hosted job boards.
type Gem struct {
	baseURL    string
	boards     []string
	filter     *filter.TopicFilter
	maxResults int
	client     *http.Client
}

var _ model.Harvester = (*Gem)(nil)

// NewGem returns a harvester over the given board tokens. An empty baseURL
// uses GemBaseURL.
func NewGem(baseURL string, boards []string, f *filter.TopicFilter, maxResults int, client *http.Client) *Gem {
	if baseURL == "" {
		baseURL = GemBaseURL
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResult
	}
	return &Gem{
		baseURL:    strings.TrimRight(baseURL, "/"),
		boards:     boards,
		filter:     f,
		maxResults: maxResults,
		client:     client,
	}
}

func (g *Gem) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	return collectBoards(ctx, g.boards, g.filter, g.maxResults, category, mode, topic, g.fetchBoard)
}

func (g *Gem) fetchBoard(ctx context.Context, board, topic string) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s/job_posts/", g.baseURL, board)

	resp, err := get(ctx, g.client, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("gem fetch for %s: %w", board, err)
	}
	defer resp.Body.Close()

	var jobs []gemJob
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("gem fetch for %s: %w", board, err)
	}

	postings := make([]model.Posting, 0, len(jobs))
	for _, gj := range jobs {
		desc := clean(gj.ContentPlain)
		if desc == "" {
			desc = extractText(gj.Content)
		}
		postings = append(postings, model.Posting{
			Title:        gj.Title,
			Organization: board,
			Location:     gj.Location.Name,
			Category:     filter.ClassifyCategory(gj.Title),
			Mode:         filter.ClassifyMode(gj.Location.Name),
			Topic:        topic,
			URL:          gj.AbsoluteURL,
			Description:  truncate(desc, descriptionLimit),
			Source:       gemSource,
			Freshness:    freshnessDate(gj.FirstPublished),
		})
	}
	return postings, nil
}
