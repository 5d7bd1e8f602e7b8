package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/angelmondragon/stockroom-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Alert is one low-stock condition to fan out.
type Alert struct {
	TenantID uuid.UUID
	ItemID   uuid.UUID
	ItemName string
	Message  string
}

// DispatchResult summarises one Dispatch call. Err aggregates every swallowed
// failure for logging and tests; callers must not treat it as fatal.
type DispatchResult struct {
	Sent    int
	Failed  int
	Skipped int
	Err     error
}

// DispatcherParams wires the dispatcher. DefaultEmailTo receives alerts for
// tenants without users.
type DispatcherParams struct {
	Repo           Repository
	Email          Sender
	Chat           Sender
	DefaultEmailTo string
	Metrics        *metrics.StockMetrics
	Logger         *logger.Logger
	Clock          func() time.Time
}

// Dispatcher routes alert text to each user's preferred channel and records
// every successful delivery.
type Dispatcher struct {
	repo           Repository
	email          Sender
	chat           Sender
	defaultEmailTo string
	metrics        *metrics.StockMetrics
	logg           *logger.Logger
	now            func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Email == nil || params.Chat == nil {
		return nil, fmt.Errorf("email and chat senders required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		repo:           params.Repo,
		email:          params.Email,
		chat:           params.Chat,
		defaultEmailTo: params.DefaultEmailTo,
		metrics:        params.Metrics,
		logg:           params.Logger,
		now:            clock,
	}, nil
}

type target struct {
	sender    Sender
	recipient string
}

// Dispatch never returns an error: delivery failures are logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert, users []models.User) DispatchResult {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"tenant_id": alert.TenantID.String(),
		"item_id":   alert.ItemID.String(),
		"item":      alert.ItemName,
	})

	var (
		result  DispatchResult
		targets []target
	)
	if len(users) == 0 {
		targets = d.fallbackTargets()
	} else {
		for _, user := range users {
			t, ok := d.targetFor(logCtx, user)
			if !ok {
				result.Skipped++
				continue
			}
			targets = append(targets, t)
		}
	}

	for _, t := range targets {
		channel := t.sender.Channel()
		err := t.sender.Send(ctx, Delivery{Recipient: t.recipient, Subject: alertSubject, Text: alert.Message})
		d.metrics.ObserveDelivery(channel.String(), err)
		if err != nil {
			result.Failed++
			result.Err = multierr.Append(result.Err, fmt.Errorf("%s: %w", channel, err))
			d.logg.Warn(d.logg.WithField(logCtx, "channel", channel.String()), fmt.Sprintf("low stock alert not delivered: %v", err))
			continue
		}
		result.Sent++

		entry := &models.Notification{
			TenantID:  alert.TenantID,
			ItemID:    alert.ItemID,
			Message:   alert.Message,
			Channel:   channel,
			CreatedAt: d.now().UTC(),
		}
		if err := d.repo.Create(ctx, entry); err != nil {
			result.Err = multierr.Append(result.Err, fmt.Errorf("record %s notification: %w", channel, err))
			d.logg.Error(logCtx, "failed to record notification", err)
		}
	}
	return result
}

func (d *Dispatcher) targetFor(ctx context.Context, user models.User) (target, bool) {
	switch user.NotificationPreference {
	case enums.NotificationChannelEmail:
		return target{sender: d.email, recipient: user.Email}, true
	case enums.NotificationChannelChat:
		return target{sender: d.chat}, true
	case enums.NotificationChannelNone:
		return target{}, false
	default:
		d.logg.Warn(d.logg.WithField(ctx, "user_id", user.ID.String()),
			fmt.Sprintf("unknown notification preference %q", user.NotificationPreference))
		return target{}, false
	}
}

func (d *Dispatcher) fallbackTargets() []target {
	var targets []target
	if d.email.Enabled() && d.defaultEmailTo != "" {
		targets = append(targets, target{sender: d.email, recipient: d.defaultEmailTo})
	}
	if d.chat.Enabled() {
		targets = append(targets, target{sender: d.chat})
	}
	return targets
}
