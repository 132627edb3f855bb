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
	AshbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"
	ashbySource  = "Ashby"
)

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	Title            string `json:"title"`
	Location         string `json:"location"`
	JobURL           string `json:"jobUrl"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
	IsRemote         bool   `json:"isRemote"`
	WorkplaceType    string `json:"workplaceType"`
	EmploymentType   string `json:"employmentType"`
	DescriptionPlain string `json:"descriptionPlain"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// Ashby harvests the public job board API of Ashby-hosted boards.
type Ashby struct {
	baseURL    string
	boards     []string
	filter     *filter.TopicFilter
	maxResults int
	client     *http.Client
}

var _ model.Harvester = (*Ashby)(nil)

// NewAshby returns a harvester over the given board tokens. An empty baseURL
// uses AshbyBaseURL.
func NewAshby(baseURL string, boards []string, f *filter.TopicFilter, maxResults int, client *http.Client) *Ashby {
	if baseURL == "" {
		baseURL = AshbyBaseURL
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResult
	}
	return &Ashby{
		baseURL:    strings.TrimRight(baseURL, "/"),
		boards:     boards,
		filter:     f,
		maxResults: maxResults,
		client:     client,
	}
}

func (a *Ashby) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	return collectBoards(ctx, a.boards, a.filter, a.maxResults, category, mode, topic, a.fetchBoard)
}

func (a *Ashby) fetchBoard(ctx context.Context, board, topic string) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s", a.baseURL, board)

	resp, err := get(ctx, a.client, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", board, err)
	}
	defer resp.Body.Close()

	var ashbyResp ashbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&ashbyResp); err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", board, err)
	}

	postings := make([]model.Posting, 0, len(ashbyResp.Jobs))
	for _, aj := range ashbyResp.Jobs {
		if !aj.IsListed {
			continue
		}

		category := filter.ClassifyCategory(aj.Title)
		if strings.EqualFold(aj.EmploymentType, "Intern") {
			category = model.CategoryInternship
		}
		mode := workplaceMode(aj.WorkplaceType, aj.Location)
		if aj.WorkplaceType == "" && aj.IsRemote {
			mode = model.ModeRemote
		}

		postings = append(postings, model.Posting{
			Title:        aj.Title,
			Organization: board,
			Location:     aj.Location,
			Category:     category,
			Mode:         mode,
			Topic:        topic,
			URL:          aj.JobURL,
			Description:  truncate(clean(aj.DescriptionPlain), descriptionLimit),
			Source:       ashbySource,
			Freshness:    freshnessDate(aj.PublishedAt),
		})
	}
	return postings, nil
}
