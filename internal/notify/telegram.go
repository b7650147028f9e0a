package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TelegramAPIBaseURL is the Bot API host.
const TelegramAPIBaseURL = "https://api.telegram.org"

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string // Optional, for tests
}

// Telegram posts messages to a chat through the Bot API sendMessage method.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig, client *http.Client) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = TelegramAPIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{cfg: cfg, client: client}
}

type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	data, err := json.Marshal(telegramSendMessage{
		ChatID:                t.cfg.ChatID,
		Text:                  msg.Text(),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out telegramResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.OK {
		return fmt.Errorf("telegram sendMessage returned %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}

// New returns a Telegram notifier when a bot token and chat are configured,
// otherwise Noop.
func New(cfg TelegramConfig) Notifier {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return Noop{}
	}
	return NewTelegram(cfg, nil)
}

var _ Notifier = (*Telegram)(nil)
