package driven

import (
	"context"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
)

// Notifier shows a notification to the user through some OS or logging facility.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}
