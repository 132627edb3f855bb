package notifier

import (
	"context"
	"fmt"

	"github.com/amishk599/jobalert/internal/model"
)

// SendTestMessage sends a summary and a sample posting to verify the
// gateway integration works.
func SendTestMessage(ctx context.Context, g model.Gateway, to int64) error {
	sample := model.Posting{
		Title:        "Test Notification: Integration Verified",
		Organization: "jobalert",
		Location:     "Everywhere",
		Category:     model.CategoryJob,
		Mode:         model.ModeRemote,
		Topic:        "DevOps",
		URL:          "https://example.com/jobs/test",
		Source:       "test",
		Freshness:    "Just now",
	}
	if err := g.Send(ctx, to, model.Message{Kind: model.MessageSummary, Count: 1}); err != nil {
		return fmt.Errorf("sending test summary: %w", err)
	}
	if err := g.Send(ctx, to, model.Message{Kind: model.MessagePosting, Posting: &sample}); err != nil {
		return fmt.Errorf("sending test posting: %w", err)
	}
	return nil
}
