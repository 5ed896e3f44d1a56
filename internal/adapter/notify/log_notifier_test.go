package notify

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

func TestLogNotifier_Notify(t *testing.T) {
	base, hook := test.NewNullLogger()
	notifier := NewLogNotifier(logger.FromLogrus(base, "test"))

	purgeAfter := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	err := notifier.Notify(context.Background(), ports.Notification{
		Type:           ports.NotificationTypeMovedToTrash,
		OrganizationID: "org-a",
		Recipient:      "user-1",
		EntityType:     domain.EntityTypeProject,
		EntityID:       "p1",
		EntityKey:      "OPS",
		ActorID:        "admin-1",
		PurgeAfter:     &purgeAfter,
	})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Notification", entry.Message)
	assert.Equal(t, "user-1", entry.Data["recipient"])
	assert.Equal(t, "notifier", entry.Data["component"])
	assert.Equal(t, &purgeAfter, entry.Data["purge_after"])
}
