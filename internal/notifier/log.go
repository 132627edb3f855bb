package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobalert/internal/model"
)

// Ensure LogGateway implements model.Gateway.
var _ model.Gateway = (*LogGateway)(nil)

// LogGateway writes messages to the given logger instead of delivering them.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway returns a gateway that logs each message via slog.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Send logs the message. It never fails.
func (g *LogGateway) Send(_ context.Context, subscriberID int64, msg model.Message) error {
	switch msg.Kind {
	case model.MessageSummary:
		g.logger.Info("new job alert", "subscriber", subscriberID, "count", msg.Count)
	case model.MessagePosting:
		if msg.Posting == nil {
			return nil
		}
		p := msg.Posting
		g.logger.Info("posting",
			"subscriber", subscriberID,
			"organization", p.Organization,
			"title", p.Title,
			"location", p.Location,
			"mode", p.Mode,
			"url", p.URL,
		)
	case model.MessageText:
		g.logger.Info("broadcast", "subscriber", subscriberID, "text", msg.Text)
	}
	return nil
}
