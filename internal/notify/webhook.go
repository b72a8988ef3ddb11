package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
)

// Webhook forwards domain events to an external endpoint as JSON.
type Webhook struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhook returns nil when no URL is configured.
func NewWebhook(cfg config.NotificationConfig, logger *zap.Logger) *Webhook {
	if cfg.WebhookURL == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &Webhook{httpClient: client, url: cfg.WebhookURL, logger: logger}
}

// Post delivers the payload. Non-2xx replies are errors.
func (w *Webhook) Post(ctx context.Context, eventType string, payload any) error {
	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", eventType).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: endpoint returned %d", resp.StatusCode())
	}
	w.logger.Debug("webhook delivered", zap.String("event_type", eventType), zap.Int("status_code", resp.StatusCode()))
	return nil
}
