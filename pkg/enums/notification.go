package enums

import "fmt"

// NotificationChannel is a user's preferred low-stock alert channel.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelChat  NotificationChannel = "chat"
	NotificationChannelNone  NotificationChannel = "none"
)

var validNotificationChannels = []NotificationChannel{
	NotificationChannelEmail,
	NotificationChannelChat,
	NotificationChannelNone,
}

// String implements fmt.Stringer.
func (n NotificationChannel) String() string {
	return string(n)
}

// IsValid checks whether the channel matches the canonical enum.
func (n NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == n {
			return true
		}
	}
	return false
}

// Delivers reports whether the channel results in an outbound message.
func (n NotificationChannel) Delivers() bool {
	return n == NotificationChannelEmail || n == NotificationChannelChat
}

// ParseNotificationChannel converts raw strings into NotificationChannel.
func ParseNotificationChannel(value string) (NotificationChannel, error) {
	for _, candidate := range validNotificationChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification channel %q", value)
}
