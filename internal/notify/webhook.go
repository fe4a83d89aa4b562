package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flowline-ai/flowline/internal/workflow"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// WebhookPayload is posted to the configured alert webhook.
type WebhookPayload struct {
	Channel string `json:"channel,omitempty"`
	Mention string `json:"mention,omitempty"`
	Text    string `json:"text"`
}

// WebhookSink posts alert messages to a workflow's alert webhook.
type WebhookSink struct {
	httpClient *http.Client
	logger     *logging.Logger
}

func NewWebhookSink(logger *logging.Logger) *WebhookSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookSink{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Post sends one alert line to the webhook. A missing URL is a no-op so
// unconfigured workflows cost nothing.
func (s *WebhookSink) Post(ctx context.Context, hook workflow.AlertWebhook, text string) error {
	if hook.URL == "" {
		return nil
	}

	mention := hook.MentionTarget
	if mention != "" {
		text = fmt.Sprintf("<%s> %s", mention, text)
	}
	body, err := json.Marshal(WebhookPayload{
		Channel: hook.Channel,
		Mention: mention,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("alert webhook post failed", "error", err, "url", hook.URL)
		return fmt.Errorf("notify: post alert webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		s.logger.Error("alert webhook returned error status", "status", resp.StatusCode, "url", hook.URL)
		return fmt.Errorf("notify: alert webhook returned status %d", resp.StatusCode)
	}

	s.logger.Info("alert webhook delivered", "channel", hook.Channel, "status", resp.StatusCode)
	return nil
}
