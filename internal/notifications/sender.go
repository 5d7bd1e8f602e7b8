package notifications

import (
	"context"
	"errors"

	"github.com/angelmondragon/stockroom-backend/pkg/enums"
)

// ErrChannelDisabled is returned by a sender whose endpoint is not configured.
var ErrChannelDisabled = errors.New("notification channel not configured")

const alertSubject = "Low stock alert"

// Delivery is one outbound alert. Recipient is ignored by channels without
// per-user addressing.
type Delivery struct {
	Recipient string
	Subject   string
	Text      string
}

// Sender delivers alerts over one channel.
type Sender interface {
	Channel() enums.NotificationChannel
	Enabled() bool
	Send(ctx context.Context, delivery Delivery) error
}
