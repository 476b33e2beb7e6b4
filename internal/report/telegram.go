package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

// TelegramNotifier posts summaries through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
	baseURL  string
	logger   logging.Logger
}

// NewTelegramNotifier creates a notifier for one bot and chat.
func NewTelegramNotifier(botToken, chatID string, logger logging.Logger) *TelegramNotifier {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  "https://api.telegram.org",
		logger:   logger,
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends the text to the configured chat. The bot token never appears
// in errors or logs.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("report: encode telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("report: build telegram request: %w", redactToken(err, t.botToken))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("report: send telegram message: %w", redactToken(err, t.botToken))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("report: read telegram response: %w", err)
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("report: telegram returned status %d with unparseable body", resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("report: telegram rejected message (status %d): %s", resp.StatusCode, parsed.Description)
	}
	return nil
}

// redactToken scrubs the bot token from an error, since transport errors
// embed the request URL.
func redactToken(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), token, "[redacted]")
	return fmt.Errorf("%s", msg)
}

// LogNotifier writes summaries to the application log. It is the fallback
// channel when Telegram is not configured.
type LogNotifier struct {
	logger logging.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the summary at info level.
func (l *LogNotifier) Notify(_ context.Context, text string) error {
	l.logger.Info("transaction summary", logging.Field{Key: "summary", Value: text})
	return nil
}
