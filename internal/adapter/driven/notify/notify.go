// Package notify implements the Notifier port with desktop, log and fan-out adapters.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/ericfisherdev/ciwatch/internal/domain/model"
	"github.com/ericfisherdev/ciwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Notifier = (*Desktop)(nil)
	_ driven.Notifier = (*Log)(nil)
	_ driven.Notifier = Multi(nil)
	_ driven.Notifier = Nop{}
)

// Desktop shows native OS notifications through beeep.
type Desktop struct {
	icon string
	show func(title, message, icon string) error
}

// NewDesktop creates a Desktop notifier. icon may be empty or a path to an image file.
func NewDesktop(icon string) *Desktop {
	return &Desktop{icon: icon, show: beeep.Notify}
}

// Notify shows the notification. When it links to a dialog page the URL is
// appended to the body, since beeep toasts have no click action.
func (d *Desktop) Notify(_ context.Context, n model.Notification) error {
	body := n.Body
	if n.DialogURL != "" {
		body += "\n" + n.DialogURL
	}
	if err := d.show(n.Title, body, d.icon); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}

// Log writes notifications to a structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify logs the notification at warn level.
func (l *Log) Notify(ctx context.Context, n model.Notification) error {
	l.logger.WarnContext(ctx, n.Title,
		"repo", n.RepoFullName,
		"pr", n.PRNumber,
		"sha", model.ShortSHA(n.HeadSHA),
		"failed_checks", n.FailedChecks,
		"body", n.Body,
		"dialog_url", n.DialogURL,
	)
	return nil
}

// Multi fans a notification out to every notifier. All notifiers are called
// even if some fail; the errors are joined.
type Multi []driven.Notifier

// Notify delivers n to each notifier in order.
func (m Multi) Notify(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, model.Notification) error { return nil }

// New builds the notifier selected by name: "desktop" (desktop toast plus a
// log line), "log", or "none".
func New(name string, logger *slog.Logger) (driven.Notifier, error) {
	switch name {
	case "desktop":
		return Multi{NewDesktop(""), NewLog(logger)}, nil
	case "log":
		return NewLog(logger), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", name)
	}
}
