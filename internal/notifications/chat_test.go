package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/stockroom-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSenderPostsText(t *testing.T) {
	var got chatPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewChatSender(config.NotificationsConfig{ChatWebhookURL: server.URL, SendTimeout: time.Second})
	require.True(t, sender.Enabled())

	err := sender.Send(context.Background(), Delivery{Text: "paper is below threshold: 0 < 1"})
	require.NoError(t, err)
	assert.Equal(t, "paper is below threshold: 0 < 1", got.Text)
}

func TestChatSenderReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewChatSender(config.NotificationsConfig{ChatWebhookURL: server.URL, SendTimeout: time.Second})
	err := sender.Send(context.Background(), Delivery{Text: "x"})
	assert.Error(t, err)
}

func TestChatSenderDisabledWithoutWebhook(t *testing.T) {
	sender := NewChatSender(config.NotificationsConfig{})
	assert.False(t, sender.Enabled())
	assert.ErrorIs(t, sender.Send(context.Background(), Delivery{Text: "x"}), ErrChannelDisabled)
}
