// Package notify delivers user visible notifications.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/peebo/peebo/internal/channel"
	"github.com/peebo/peebo/internal/log"
)

// Events.
const (
	EventTaskCompleted = "task_completed"
	EventTaskFailed    = "task_failed"
	EventTaskCancelled = "task_cancelled"
)

// Notification is one user visible message.
type Notification struct {
	Event   string
	Title   string
	Message string
	Data    map[string]any
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc is a helper to use functions as Notifiers.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify satisfies Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Noop drops every notification.
var Noop = NotifierFunc(func(context.Context, Notification) error { return nil })

// NewLogNotifier returns a notifier that writes notifications to the log.
func NewLogNotifier(logger log.Logger) Notifier {
	if logger == nil {
		logger = log.Noop
	}
	logger = logger.WithValues(log.Kv{"svc": "notify.Log"})

	return NotifierFunc(func(ctx context.Context, n Notification) error {
		logger.WithValues(log.Kv{"event": n.Event}).Infof("%s: %s", n.Title, n.Message)
		return nil
	})
}

// Pusher sends out of band notifications over the command channel.
// channel.Server and channel.Client satisfy it.
type Pusher interface {
	Notify(ctx context.Context, n channel.Notification) error
}

// NewChannelNotifier returns a notifier that pushes to the connected peer.
func NewChannelNotifier(p Pusher) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) error {
		err := p.Notify(ctx, channel.Notification{
			Event:   n.Event,
			Title:   n.Title,
			Message: n.Message,
			Data:    n.Data,
		})
		if err != nil {
			return fmt.Errorf("could not push notification: %w", err)
		}
		return nil
	})
}

// Multi delivers to every notifier, a failing one does not stop the rest.
func Multi(ns ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) error {
		var errs []error
		for _, nt := range ns {
			if err := nt.Notify(ctx, n); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
