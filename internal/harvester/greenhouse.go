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
	GreenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"
	greenhouseSource  = "Greenhouse"
	descriptionLimit  = 1000
)

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Location    greenhouseLocation `json:"location"`
	AbsoluteURL string             `json:"absolute_url"`
	UpdatedAt   string             `json:"updated_at"`
	CompanyName string             `json:"company_name"`
	Content     string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// Greenhouse harvests company job boards. Boards cannot be searched, so
// every job is classified and kept only when the filter accepts it.
type Greenhouse struct {
	baseURL    string
	boards     []string
	filter     *filter.TopicFilter
	maxResults int
	client     *http.Client
}

var _ model.Harvester = (*Greenhouse)(nil)

// NewGreenhouse returns a harvester over the given board tokens. An empty
// baseURL uses GreenhouseBaseURL.
func NewGreenhouse(baseURL string, boards []string, f *filter.TopicFilter, maxResults int, client *http.Client) *Greenhouse {
	if baseURL == "" {
		baseURL = GreenhouseBaseURL
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResult
	}
	return &Greenhouse{
		baseURL:    strings.TrimRight(baseURL, "/"),
		boards:     boards,
		filter:     f,
		maxResults: maxResults,
		client:     client,
	}
}

func (g *Greenhouse) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	return collectBoards(ctx, g.boards, g.filter, g.maxResults, category, mode, topic, g.fetchBoard)
}

func (g *Greenhouse) fetchBoard(ctx context.Context, board, topic string) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", g.baseURL, board)

	resp, err := get(ctx, g.client, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", board, err)
	}
	defer resp.Body.Close()

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", board, err)
	}
	postings := make([]model.Posting, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		postings = append(postings, g.toPosting(board, gj, topic))
	}
	return postings, nil
}

func (g *Greenhouse) toPosting(board string, gj greenhouseJob, topic string) model.Posting {
	org := gj.CompanyName
	if org == "" {
		org = board
	}
	return model.Posting{
		Title:        gj.Title,
		Organization: org,
		Location:     gj.Location.Name,
		Category:     filter.ClassifyCategory(gj.Title),
		Mode:         filter.ClassifyMode(gj.Location.Name),
		Topic:        topic,
		URL:          gj.AbsoluteURL,
		Description:  truncate(extractText(gj.Content), descriptionLimit),
		Source:       greenhouseSource,
		Freshness:    freshnessDate(gj.UpdatedAt),
	}
}
