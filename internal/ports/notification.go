package ports

import (
	"context"
	"time"

	"github.com/fixora/tracker/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeMovedToTrash NotificationType = "moved_to_trash"
	NotificationTypeRestored     NotificationType = "restored"
)

// Notification is a fire-and-forget message to the creator of an entity
type Notification struct {
	Type           NotificationType  `json:"type"`
	OrganizationID string            `json:"organization_id"`
	Recipient      string            `json:"recipient"`
	EntityType     domain.EntityType `json:"entity_type"`
	EntityID       string            `json:"entity_id"`
	EntityKey      string            `json:"entity_key"`
	ActorID        string            `json:"actor_id"`
	PurgeAfter     *time.Time        `json:"purge_after,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Notifier delivers notifications. Callers ignore its errors.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}
