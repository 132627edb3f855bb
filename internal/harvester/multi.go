package harvester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobalert/internal/model"
)

// Source is a named harvester.
type Source struct {
	Name      string
	Harvester model.Harvester
}

// Multi queries every source in order and concatenates the results. A
// failing source is logged and skipped; Fetch only fails when every source
// failed.
type Multi struct {
	sources []Source
	logger  *slog.Logger
}

var _ model.Harvester = (*Multi)(nil)

func NewMulti(sources []Source, logger *slog.Logger) *Multi {
	return &Multi{sources: sources, logger: logger}
}

func (m *Multi) Fetch(ctx context.Context, category model.Category, mode model.Mode, topic string) ([]model.Posting, error) {
	var (
		all  []model.Posting
		errs []error
	)
	for _, s := range m.sources {
		postings, err := s.Harvester.Fetch(ctx, category, mode, topic)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn("source failed",
				"source", s.Name, "category", category, "mode", mode, "topic", topic, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		m.logger.Debug("source harvested", "source", s.Name, "topic", topic, "postings", len(postings))
		all = append(all, postings...)
	}
	if len(m.sources) > 0 && len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	return all, nil
}
