// Package notify posts clip notifications to a Discord-compatible webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/clipbot/telemetry"
)

// Webhook posts plain-text messages to a fixed webhook URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier with a 10s request timeout.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type payload struct {
	Content string `json:"content"`
}

// Post sends content as {"content": ...}. Any non-2xx response is an error.
func (w *Webhook) Post(ctx context.Context, content string) error {
	body, err := json.Marshal(payload{Content: content})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// Notify posts content and swallows failures after logging them, so a broken
// webhook never stops the chat poller.
func (w *Webhook) Notify(ctx context.Context, content string) {
	ctx, span := telemetry.StartSpan(ctx, "notify", "webhook.post")
	defer span.End()

	if err := w.Post(ctx, content); err != nil {
		telemetry.NotificationsFailed.Inc()
		telemetry.RecordError(span, err)
		telemetry.LoggerWithCorr(ctx).Error("webhook notification failed", slog.Any("err", err))
		return
	}
	telemetry.NotificationsSent.Inc()
	telemetry.SetSpanSuccess(span)
	telemetry.LoggerWithCorr(ctx).Info("webhook notification sent")
}
