// Package telegram runs interviews over a Telegram bot.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultAPIURL = "https://api.telegram.org"

// New creates a bot for token. apiURL may be empty.
func New(token, apiURL string, pollTimeout time.Duration) *Bot {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	secs := int(pollTimeout.Seconds())
	if secs <= 0 {
		secs = 30
	}
	return &Bot{
		baseURL:     fmt.Sprintf("%s/bot%s", apiURL, token),
		client:      &http.Client{Timeout: time.Duration(secs+10) * time.Second},
		pollTimeout: secs,
	}
}

// GetUpdates long-polls for updates starting at offset.
func (b *Bot) GetUpdates(ctx context.Context, offset int) ([]Update, error) {
	url := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=%d", b.baseURL, offset, b.pollTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp apiResponse[[]Update]
	if err := b.do(req, &resp); err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}
	return resp.Result, nil
}

// SendMessage sends text to chatID as Markdown. Text the API cannot parse as Markdown,
// which is common for model output, is resent without formatting.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	err := b.sendMessage(ctx, SendMessageRequest{ChatID: chatID, Text: text, ParseMode: "Markdown"})
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		err = b.sendMessage(ctx, SendMessageRequest{ChatID: chatID, Text: text})
	}
	return err
}

func (b *Bot) sendMessage(ctx context.Context, msg SendMessageRequest) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp apiResponse[*Message]
	if err := b.do(req, &resp); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

// APIError is a reply with ok=false.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error (status %d): %s", e.StatusCode, e.Description)
}

func (b *Bot) do(req *http.Request, out interface{ ok() (bool, string) }) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response (status %d): %w", resp.StatusCode, err)
	}
	if ok, desc := out.ok(); !ok {
		return &APIError{StatusCode: resp.StatusCode, Description: desc}
	}
	return nil
}

func (r *apiResponse[T]) ok() (bool, string) {
	return r.OK, r.Description
}

// StartPolling feeds updates to handler until ctx is cancelled.
func (b *Bot) StartPolling(ctx context.Context, logger *slog.Logger, handler func(context.Context, Update)) error {
	offset := 0
	for {
		updates, err := b.GetUpdates(ctx, offset)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			logger.Error("telegram polling failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			go handler(ctx, update)
		}
	}
}
