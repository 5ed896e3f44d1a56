package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/tracker/internal/ports"
)

// Notifier publishes notifications as JSON on a pub/sub channel. A
// notification service subscribes and fans out to email or in-app inboxes.
type Notifier struct {
	client  redis.UniversalClient
	channel string
}

// NewNotifier creates a publisher for the given channel
func NewNotifier(client redis.UniversalClient, channel string) *Notifier {
	return &Notifier{client: client, channel: channel}
}

// Notify publishes one notification
func (n *Notifier) Notify(ctx context.Context, notification ports.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
