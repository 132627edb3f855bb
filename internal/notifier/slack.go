package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobalert/internal/model"
)

// Ensure SlackGateway implements model.Gateway.
var _ model.Gateway = (*SlackGateway)(nil)

// SlackGateway posts messages to one Slack channel via an Incoming Webhook.
// The channel is shared, so the subscriber id only appears in the context
// line of each message.
type SlackGateway struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackGateway returns a gateway that posts to the webhook.
func NewSlackGateway(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackGateway {
	return &SlackGateway{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send posts msg as a Block Kit payload. A 429 is returned as an HTTPError
// carrying Retry-After so the retry policy can wait it out.
func (s *SlackGateway) Send(ctx context.Context, subscriberID int64, msg model.Message) error {
	payload, err := buildPayload(subscriberID, msg)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpErr := &model.HTTPError{StatusCode: resp.StatusCode, Err: fmt.Errorf("slack webhook rejected message")}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			httpErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return httpErr
	}
	s.logger.Debug("slack message sent", "subscriber", subscriberID, "kind", msg.Kind)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
	// Elements holds slackButton values in actions blocks and slackText
	// values in context blocks.
	Elements []any `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackButton struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

func buildPayload(subscriberID int64, msg model.Message) (slackPayload, error) {
	switch msg.Kind {
	case model.MessageSummary:
		text := fmt.Sprintf("🔔 New Job Alert! Found %d new opportunities", msg.Count)
		return slackPayload{
			Text: text,
			Blocks: []slackBlock{
				{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*" + text + "*"}},
				contextBlock(subscriberID),
			},
		}, nil
	case model.MessagePosting:
		if msg.Posting == nil {
			return slackPayload{}, fmt.Errorf("posting message without a posting")
		}
		return postingPayload(subscriberID, msg.Posting), nil
	case model.MessageText:
		if msg.Text == "" {
			return slackPayload{}, fmt.Errorf("text message without text")
		}
		text := "📢 Admin Message: " + msg.Text
		return slackPayload{
			Text: text,
			Blocks: []slackBlock{
				{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*📢 Admin Message:*\n" + msg.Text}},
				contextBlock(subscriberID),
			},
		}, nil
	default:
		return slackPayload{}, fmt.Errorf("unknown message kind %d", msg.Kind)
	}
}

func contextBlock(subscriberID int64) slackBlock {
	return slackBlock{
		Type:     "context",
		Elements: []any{slackText{Type: "mrkdwn", Text: fmt.Sprintf("for subscriber `%d`", subscriberID)}},
	}
}

func postingPayload(subscriberID int64, p *model.Posting) slackPayload {
	org := capitalize(p.Organization)
	header := "💼 " + org + ": " + p.Title

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: header},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + org},
				{Type: "mrkdwn", Text: "*Location:*\n" + p.Location},
				{Type: "mrkdwn", Text: "*Type:*\n" + string(p.Category)},
				{Type: "mrkdwn", Text: "*Mode:*\n" + string(p.Mode)},
				{Type: "mrkdwn", Text: "*Domain:*\n" + p.Topic},
				{Type: "mrkdwn", Text: "*Posted:*\n" + p.Freshness},
			},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: preview(p.Description)},
		},
	}

	if p.URL != "" {
		blocks = append(blocks, slackBlock{
			Type: "actions",
			Elements: []any{slackButton{
				Type:  "button",
				Text:  slackText{Type: "plain_text", Text: "View Details"},
				URL:   p.URL,
				Style: "primary",
			}},
		})
	}

	blocks = append(blocks, contextBlock(subscriberID), slackBlock{Type: "divider"})
	return slackPayload{Text: header, Blocks: blocks}
}
