package notifications

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/db/models"
	"github.com/angelmondragon/stockroom-backend/pkg/enums"
	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	channel    enums.NotificationChannel
	enabled    bool
	err        error
	deliveries []Delivery
}

func (f *fakeSender) Channel() enums.NotificationChannel { return f.channel }

func (f *fakeSender) Enabled() bool { return f.enabled }

func (f *fakeSender) Send(_ context.Context, delivery Delivery) error {
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, delivery)
	return nil
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	repo       *fakeRepository
	email      *fakeSender
	chat       *fakeSender
}

func newDispatcherFixture(t *testing.T, defaultEmailTo string) *dispatcherFixture {
	t.Helper()
	repo := &fakeRepository{}
	email := &fakeSender{channel: enums.NotificationChannelEmail, enabled: true}
	chat := &fakeSender{channel: enums.NotificationChannelChat, enabled: true}
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	d, err := NewDispatcher(DispatcherParams{
		Repo:           repo,
		Email:          email,
		Chat:           chat,
		DefaultEmailTo: defaultEmailTo,
		Logger:         logger.New(logger.Options{ServiceName: "notifications-test", Level: zerolog.Disabled, Output: io.Discard}),
		Clock:          func() time.Time { return fixed },
	})
	require.NoError(t, err)
	return &dispatcherFixture{dispatcher: d, repo: repo, email: email, chat: chat}
}

func lowStockAlert() Alert {
	return Alert{
		TenantID: uuid.New(),
		ItemID:   uuid.New(),
		ItemName: "paper",
		Message:  "paper is below threshold: 0 < 1",
	}
}

func TestDispatchRoutesByPreference(t *testing.T) {
	f := newDispatcherFixture(t, "")
	alert := lowStockAlert()
	users := []models.User{
		{ID: uuid.New(), Email: "e1@example.com", NotificationPreference: enums.NotificationChannelEmail},
		{ID: uuid.New(), Email: "s1@example.com", NotificationPreference: enums.NotificationChannelChat},
		{ID: uuid.New(), Email: "n1@example.com", NotificationPreference: enums.NotificationChannelNone},
	}

	result := f.dispatcher.Dispatch(context.Background(), alert, users)

	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.NoError(t, result.Err)

	require.Len(t, f.email.deliveries, 1)
	assert.Equal(t, "e1@example.com", f.email.deliveries[0].Recipient)
	assert.Equal(t, alert.Message, f.email.deliveries[0].Text)
	require.Len(t, f.chat.deliveries, 1)

	require.Len(t, f.repo.created, 2)
	for _, entry := range f.repo.created {
		assert.Equal(t, alert.ItemID, entry.ItemID)
		assert.Equal(t, alert.TenantID, entry.TenantID)
		assert.Equal(t, alert.Message, entry.Message)
	}
	assert.Equal(t, enums.NotificationChannelEmail, f.repo.created[0].Channel)
	assert.Equal(t, enums.NotificationChannelChat, f.repo.created[1].Channel)
}

func TestDispatchSwallowsSenderFailures(t *testing.T) {
	f := newDispatcherFixture(t, "")
	f.email.err = errors.New("smtp down")
	users := []models.User{
		{ID: uuid.New(), Email: "e1@example.com", NotificationPreference: enums.NotificationChannelEmail},
		{ID: uuid.New(), NotificationPreference: enums.NotificationChannelChat},
	}

	result := f.dispatcher.Dispatch(context.Background(), lowStockAlert(), users)

	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Error(t, result.Err)
	require.Len(t, f.repo.created, 1)
	assert.Equal(t, enums.NotificationChannelChat, f.repo.created[0].Channel)
}

func TestDispatchDisabledChannelCountsAsFailure(t *testing.T) {
	f := newDispatcherFixture(t, "")
	f.chat.err = ErrChannelDisabled
	users := []models.User{{ID: uuid.New(), NotificationPreference: enums.NotificationChannelChat}}

	result := f.dispatcher.Dispatch(context.Background(), lowStockAlert(), users)

	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.ErrorIs(t, result.Err, ErrChannelDisabled)
	assert.Empty(t, f.repo.created)
}

func TestDispatchFallsBackToDefaultsWithoutUsers(t *testing.T) {
	f := newDispatcherFixture(t, "ops@example.com")

	result := f.dispatcher.Dispatch(context.Background(), lowStockAlert(), nil)

	assert.Equal(t, 2, result.Sent)
	require.Len(t, f.email.deliveries, 1)
	assert.Equal(t, "ops@example.com", f.email.deliveries[0].Recipient)
	assert.Len(t, f.chat.deliveries, 1)
	assert.Len(t, f.repo.created, 2)
}

func TestDispatchFallbackSkipsUnconfiguredChannels(t *testing.T) {
	f := newDispatcherFixture(t, "")
	f.chat.enabled = false

	result := f.dispatcher.Dispatch(context.Background(), lowStockAlert(), nil)

	assert.Equal(t, DispatchResult{}, result)
	assert.Empty(t, f.email.deliveries)
	assert.Empty(t, f.chat.deliveries)
}

func TestDispatchRecordFailureKeepsDelivery(t *testing.T) {
	f := newDispatcherFixture(t, "")
	f.repo.createFn = func(context.Context, *models.Notification) error { return errors.New("db down") }
	users := []models.User{{ID: uuid.New(), Email: "e1@example.com", NotificationPreference: enums.NotificationChannelEmail}}

	result := f.dispatcher.Dispatch(context.Background(), lowStockAlert(), users)

	assert.Equal(t, 1, result.Sent)
	assert.Error(t, result.Err)
	assert.Len(t, f.email.deliveries, 1)
}
