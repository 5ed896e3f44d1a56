// Package notify provides notifiers that do not depend on external services
package notify

import (
	"context"

	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

// LogNotifier writes notifications to the structured log. It is used when no
// message broker is configured.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a notifier that logs at info level
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithFields(map[string]interface{}{"component": "notifier"})}
}

// Notify logs the notification and never fails
func (n *LogNotifier) Notify(ctx context.Context, notification ports.Notification) error {
	fields := map[string]interface{}{
		"type":            notification.Type,
		"organization_id": notification.OrganizationID,
		"recipient":       notification.Recipient,
		"entity_type":     notification.EntityType,
		"entity_id":       notification.EntityID,
		"entity_key":      notification.EntityKey,
		"actor_id":        notification.ActorID,
	}
	if notification.PurgeAfter != nil {
		fields["purge_after"] = notification.PurgeAfter
	}
	n.logger.Info(ctx, "Notification", fields)
	return nil
}
