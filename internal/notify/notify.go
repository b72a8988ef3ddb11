package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
)

// SMSRequest is the gateway payload.
type SMSRequest struct {
	To      string `json:"to"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// SMSResponse is the gateway reply.
type SMSResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Deliverer sends customer and technician messages. SMS goes through an HTTP gateway;
// email is handed to the log until a mail relay is configured.
type Deliverer struct {
	httpClient *resty.Client
	cfg        config.NotificationConfig
	logger     *zap.Logger
}

// NewDeliverer builds a deliverer from the notification config.
func NewDeliverer(cfg config.NotificationConfig, logger *zap.Logger) *Deliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.SMSGatewayURL != "" {
		client.SetBaseURL(strings.TrimRight(cfg.SMSGatewayURL, "/"))
	}
	if cfg.SMSAPIKey != "" {
		client.SetHeader("X-API-Key", cfg.SMSAPIKey)
	}
	return &Deliverer{httpClient: client, cfg: cfg, logger: logger}
}

// SendSMS posts a message to the gateway. Without a gateway the message is only logged.
func (d *Deliverer) SendSMS(ctx context.Context, mobile, message string) error {
	if strings.TrimSpace(mobile) == "" {
		return fmt.Errorf("sms: empty recipient")
	}
	if d.cfg.SMSGatewayURL == "" {
		d.logger.Info("sms gateway not configured, message logged", zap.String("to", mobile))
		return nil
	}

	var response SMSResponse
	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetBody(SMSRequest{To: mobile, Sender: d.cfg.SMSSenderID, Message: message}).
		SetResult(&response).
		SetError(&response).
		Post("/messages")
	if err != nil {
		d.logger.Error("sms gateway call failed", zap.String("to", mobile), zap.Error(err))
		return fmt.Errorf("sms: %w", err)
	}
	if resp.IsError() {
		d.logger.Error("sms gateway rejected message",
			zap.String("to", mobile),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", response.Error))
		return fmt.Errorf("sms: gateway returned %d: %s", resp.StatusCode(), response.Error)
	}
	d.logger.Debug("sms sent", zap.String("to", mobile), zap.String("message_id", response.MessageID))
	return nil
}

// SendEmail logs the message with the configured sender.
func (d *Deliverer) SendEmail(_ context.Context, to, subject, _ string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("email: empty recipient")
	}
	d.logger.Info("email queued",
		zap.String("from", d.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
