package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobalert/internal/model"
)

// TelegramAPIURL is the Bot API endpoint root.
const TelegramAPIURL = "https://api.telegram.org"

// Ensure TelegramGateway implements model.Gateway.
var _ model.Gateway = (*TelegramGateway)(nil)

// TelegramGateway delivers messages to subscribers' chats through the
// Telegram Bot API. Subscriber ids are chat ids.
type TelegramGateway struct {
	apiURL     string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTelegramGateway returns a gateway for the bot token. An empty apiURL
// uses TelegramAPIURL.
func NewTelegramGateway(apiURL, token string, httpClient *http.Client, logger *slog.Logger) *TelegramGateway {
	if apiURL == "" {
		apiURL = TelegramAPIURL
	}
	return &TelegramGateway{
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// sendMessageRequest is the payload for the sendMessage method.
type sendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview"`
	ReplyMarkup           *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type inlineKeyboardButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send renders msg as HTML and sends it to the subscriber's chat. Postings
// with a link get a "View Details" button.
func (g *TelegramGateway) Send(ctx context.Context, subscriberID int64, msg model.Message) error {
	req := sendMessageRequest{
		ChatID:                subscriberID,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}
	switch msg.Kind {
	case model.MessageSummary:
		req.Text = summaryHTML(msg.Count)
	case model.MessagePosting:
		if msg.Posting == nil {
			return fmt.Errorf("posting message without a posting")
		}
		req.Text = postingHTML(msg.Posting)
		if msg.Posting.URL != "" {
			req.ReplyMarkup = &inlineKeyboardMarkup{
				InlineKeyboard: [][]inlineKeyboardButton{{{Text: "🔗 View Details", URL: msg.Posting.URL}}},
			}
		}
	case model.MessageText:
		if msg.Text == "" {
			return fmt.Errorf("text message without text")
		}
		req.Text = textHTML(msg.Text)
	default:
		return fmt.Errorf("unknown message kind %d", msg.Kind)
	}
	return g.call(ctx, "sendMessage", req)
}

func (g *TelegramGateway) call(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", g.apiURL, g.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of logs.
		return fmt.Errorf("telegram %s: request failed", method)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if resp.StatusCode == http.StatusOK && out.OK {
		return nil
	}

	httpErr := &model.HTTPError{
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("telegram %s: %s", method, out.Description),
	}
	if out.Parameters != nil && out.Parameters.RetryAfter > 0 {
		httpErr.RetryAfter = time.Duration(out.Parameters.RetryAfter) * time.Second
	}
	return httpErr
}
