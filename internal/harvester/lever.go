package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobalert/internal/filter"
	"github.com/amishk599/jobalert/internal/model"
)

const (
	LeverBaseURL = "https://api.lever.co/v0/postings"
	leverSource  = "Lever"
)

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"` // Unix milliseconds
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
}

// Lever harvests the public postings API of Lever-hosted boards.
type Lever struct {
	baseURL    string
	boards     []string
	filter     *filter.TopicFilter
	maxResults int
	client     *http.Client
}

var _ model.Harvester = (*Lever)(nil)

// NewLever returns a harvester over the given company slugs. An empty
// baseURL uses LeverBaseURL.
func NewLever(baseURL string, boards []string, f *filter.TopicFilter, maxResults int, client *http.Client) *Lever {
	if baseURL == "" {
		baseURL = LeverBaseURL
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResult
	}
	return &Lever{
		baseURL:    strings.TrimRight(baseURL, "/"),
		boards:     boards,
		filter:     f,
		maxResults: maxResults,
		client:     client,
	}
}

func (l *Lever) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	return collectBoards(ctx, l.boards, l.filter, l.maxResults, category, mode, topic, l.fetchBoard)
}

func (l *Lever) fetchBoard(ctx context.Context, board, topic string) ([]model.Posting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", l.baseURL, board)

	resp, err := get(ctx, l.client, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", board, err)
	}
	defer resp.Body.Close()

	var jobs []leverJob
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", board, err)
	}

	postings := make([]model.Posting, 0, len(jobs))
	for _, lj := range jobs {
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		category := filter.ClassifyCategory(lj.Text)
		if strings.Contains(strings.ToLower(lj.Categories.Commitment), "intern") {
			category = model.CategoryInternship
		}

		freshness := "Recently"
		if lj.CreatedAt > 0 {
			freshness = time.UnixMilli(lj.CreatedAt).UTC().Format(time.DateOnly)
		}

		postings = append(postings, model.Posting{
			Title:        lj.Text,
			Organization: board,
			Location:     location,
			Category:     category,
			Mode:         workplaceMode(lj.WorkplaceType, location),
			Topic:        topic,
			URL:          lj.HostedURL,
			Description:  truncate(clean(lj.DescriptionPlain), descriptionLimit),
			Source:       leverSource,
			Freshness:    freshness,
		})
	}
	return postings, nil
}

// workplaceMode maps an explicit workplace type, falling back to the
// location text when the board leaves it unset.
func workplaceMode(workplaceType, location string) model.Mode {
	switch strings.ToLower(workplaceType) {
	case "remote":
		return model.ModeRemote
	case "hybrid":
		return model.ModeHybrid
	case "onsite", "on-site":
		return model.ModeOnsite
	}
	return filter.ClassifyMode(location)
}
