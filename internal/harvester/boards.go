package harvester

import (
	"context"

	"github.com/amishk599/jobalert/internal/filter"
	"github.com/amishk599/jobalert/internal/model"
)

// boardFetcher lists every posting on one company board, already classified.
type boardFetcher func(ctx context.Context, board, topic string) ([]model.Posting, error)

// collectBoards walks the boards in order and keeps the postings the filter
// accepts for the request, up to maxResults. The first failing board aborts.
func collectBoards(
	ctx context.Context,
	boards []string,
	f *filter.TopicFilter,
	maxResults int,
	category model.Category,
	mode model.Mode,
	topic string,
	fetch boardFetcher,
) ([]model.Posting, error) {
	var postings []model.Posting
	for _, board := range boards {
		all, err := fetch(ctx, board, topic)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			if !f.Match(p, category, mode, topic) {
				continue
			}
			postings = append(postings, p)
			if len(postings) >= maxResults {
				return postings, nil
			}
		}
	}
	return postings, nil
}

// freshnessDate returns the YYYY-MM-DD prefix of an RFC 3339 timestamp.
func freshnessDate(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return "Recently"
}
