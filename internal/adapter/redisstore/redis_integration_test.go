package redisstore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/ports"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client, err := NewClient(context.Background(), Config{Addr: addr, Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRunLock_ExclusiveUntilReleased(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	lock := NewRunLock(client)
	name := "test:purge:" + uuid.NewString()

	release, err := lock.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, name, time.Minute)
	assert.ErrorIs(t, err, ports.ErrLockHeld)

	require.NoError(t, release(ctx))

	again, err := lock.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRunLock_ReleaseLeavesForeignToken(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	lock := NewRunLock(client)
	name := "test:purge:" + uuid.NewString()

	release, err := lock.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)

	// Simulate expiry followed by another process taking the lock.
	require.NoError(t, client.Set(ctx, name, "someone-else", time.Minute).Err())
	require.NoError(t, release(ctx))

	val, err := client.Get(ctx, name).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	client.Del(ctx, name)
}

func TestNotifier_PublishesJSON(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	channel := "test:notify:" + uuid.NewString()

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := ports.Notification{
		Type:           ports.NotificationTypeMovedToTrash,
		OrganizationID: "org-a",
		Recipient:      "creator",
		EntityType:     domain.EntityTypeProject,
		EntityID:       "p1",
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewNotifier(client, channel).Notify(ctx, n))

	select {
	case msg := <-sub.Channel():
		var got ports.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, n, got)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
}
