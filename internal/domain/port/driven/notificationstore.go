package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// ErrNotificationNotFound indicates the requested notification does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationStore defines the driven port for the notification history.
type NotificationStore interface {
	Add(ctx context.Context, n model.Notification) error
	// ListRecent returns up to limit notifications, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Notification, error)
	// MarkRead flags a notification as read. Returns ErrNotificationNotFound if absent.
	MarkRead(ctx context.Context, id string) error
}
