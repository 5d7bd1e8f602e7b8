package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/stockroom-backend/pkg/config"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	"github.com/go-resty/resty/v2"
)

type chatPayload struct {
	Text string `json:"text"`
}

// ChatSender posts alerts to an incoming-webhook URL.
type ChatSender struct {
	webhookURL string
	client     *resty.Client
}

func NewChatSender(cfg config.NotificationsConfig) *ChatSender {
	client := resty.New().
		SetTimeout(cfg.SendTimeout).
		SetHeader("Content-Type", "application/json")
	return &ChatSender{webhookURL: cfg.ChatWebhookURL, client: client}
}

func (s *ChatSender) Channel() enums.NotificationChannel {
	return enums.NotificationChannelChat
}

func (s *ChatSender) Enabled() bool {
	return strings.TrimSpace(s.webhookURL) != ""
}

func (s *ChatSender) Send(ctx context.Context, delivery Delivery) error {
	if !s.Enabled() {
		return ErrChannelDisabled
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(chatPayload{Text: delivery.Text}).
		Post(s.webhookURL)
	if err != nil {
		return fmt.Errorf("post chat webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("chat webhook returned %d", resp.StatusCode())
	}
	return nil
}
