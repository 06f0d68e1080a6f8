package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/amirphl/Injera-Promo/config"
)

// TelegramButton is an inline URL button attached under a message
type TelegramButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// TelegramSendOptions tunes a single message
type TelegramSendOptions struct {
	Button *TelegramButton
}

// TelegramClient delivers bot messages. Callers treat a nil error as "issued";
// delivery confirmation is not reported.
type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *TelegramSendOptions, metadata map[string]string) error
}

// TelegramClientImpl calls the Bot API sendMessage method
type TelegramClientImpl struct {
	cfg    *config.TelegramConfig
	client *http.Client
}

type telegramInlineKeyboard struct {
	InlineKeyboard [][]TelegramButton `json:"inline_keyboard"`
}

type telegramSendMessageRequest struct {
	ChatID      int64                   `json:"chat_id"`
	Text        string                  `json:"text"`
	ParseMode   string                  `json:"parse_mode,omitempty"`
	ReplyMarkup *telegramInlineKeyboard `json:"reply_markup,omitempty"`
}

type telegramAPIResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// NewTelegramClient creates a client for cfg. Mock mode returns an in-memory client.
func NewTelegramClient(cfg *config.TelegramConfig) TelegramClient {
	if cfg.MockMode() {
		return NewMockTelegramClient()
	}
	return &TelegramClientImpl{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// SendMessage posts text to chatID. metadata is not sent to Telegram; it exists for
// implementations that log or trace deliveries.
func (c *TelegramClientImpl) SendMessage(ctx context.Context, chatID int64, text string, opts *TelegramSendOptions, metadata map[string]string) error {
	payload := telegramSendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: c.cfg.ParseMode,
	}
	if opts != nil && opts.Button != nil {
		payload.ReplyMarkup = &telegramInlineKeyboard{
			InlineKeyboard: [][]TelegramButton{{*opts.Button}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.cfg.APIDomain, "/"), c.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var apiResp telegramAPIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("telegram http status %d: undecodable response", resp.StatusCode)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram sendMessage failed (%d): %s", apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}

// MockTelegramClient implements TelegramClient for testing and local runs
type MockTelegramClient struct {
	mu       sync.Mutex
	Messages []MockTelegramMessage
	// Err is returned from every SendMessage call when set
	Err error
}

// MockTelegramMessage represents a captured bot message
type MockTelegramMessage struct {
	ChatID   int64
	Text     string
	Options  *TelegramSendOptions
	Metadata map[string]string
}

// NewMockTelegramClient creates a new mock Telegram client
func NewMockTelegramClient() *MockTelegramClient {
	return &MockTelegramClient{}
}

// SendMessage records the message
func (m *MockTelegramClient) SendMessage(ctx context.Context, chatID int64, text string, opts *TelegramSendOptions, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, MockTelegramMessage{ChatID: chatID, Text: text, Options: opts, Metadata: metadata})
	return m.Err
}
