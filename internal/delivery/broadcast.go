package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobalert/internal/model"
)

// BroadcastReport tallies one broadcast.
type BroadcastReport struct {
	Recipients int
	Sent       int
	Failed     int
}

// Broadcast sends text to every active subscriber, pausing delay between
// sends. A failed send is logged and counted; the rest still go out. Nothing
// is recorded in the ledger.
func Broadcast(ctx context.Context, subs Subscribers, gateway model.Gateway, text string, delay time.Duration, logger *slog.Logger) (BroadcastReport, error) {
	var rep BroadcastReport
	if text == "" {
		return rep, errors.New("broadcast: empty message")
	}

	ids, err := subs.ActiveSubscriberIDs(ctx)
	if err != nil {
		return rep, fmt.Errorf("broadcast: loading subscribers: %w", err)
	}
	rep.Recipients = len(ids)

	msg := model.Message{Kind: model.MessageText, Text: text}
	for i, id := range ids {
		if i > 0 {
			if err := sleep(ctx, delay); err != nil {
				return rep, err
			}
		}
		if err := gateway.Send(ctx, id, msg); err != nil {
			rep.Failed++
			logger.Warn("broadcast send failed", "subscriber", id, "error", err)
			continue
		}
		rep.Sent++
	}

	logger.Info("broadcast finished", "recipients", rep.Recipients, "sent", rep.Sent, "failed", rep.Failed)
	return rep, nil
}
