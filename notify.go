// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import "context"

// NotificationTrigger tells the notification service when to show a
// [NotificationRequest].
type NotificationTrigger int

const (
	// TriggerImmediate shows the notification as soon as it is enqueued.
	TriggerImmediate NotificationTrigger = iota
)

// NotificationRequest is a user-facing notification.
type NotificationRequest struct {
	// Identifier identifies the notification; a later request with the
	// same identifier replaces the earlier one.
	Identifier string

	// Title is the notification title.
	Title string

	// Body is the notification text.
	Body string

	// Trigger is when to show the notification.
	Trigger NotificationTrigger
}

// UIRequiredNotificationID is the identifier of the notification sent by
// the authenticate handler while the app is in background.
const UIRequiredNotificationID = "UIRequiredNotification"

// Notifier enqueues notifications to the platform notification service.
//
// Add blocks until the request is enqueued or fails. The [*Dispatcher]
// calls it on a dedicated goroutine, never on the [*Queue].
type Notifier interface {
	Add(ctx context.Context, req NotificationRequest) error
}

// NotifierFunc adapts a function to the [Notifier] interface.
type NotifierFunc func(ctx context.Context, req NotificationRequest) error

var _ Notifier = NotifierFunc(nil)

// Add implements [Notifier].
func (f NotifierFunc) Add(ctx context.Context, req NotificationRequest) error {
	return f(ctx, req)
}

// DefaultNotifier fails every request with [ErrNoNotifier].
var DefaultNotifier = NotifierFunc(func(context.Context, NotificationRequest) error {
	return ErrNoNotifier
})

// AppState tells whether the user has the helper app in foreground.
type AppState interface {
	Foreground() bool
}

// AppStateFunc adapts a function to the [AppState] interface.
type AppStateFunc func() bool

var _ AppState = AppStateFunc(nil)

// Foreground implements [AppState].
func (f AppStateFunc) Foreground() bool {
	return f()
}

// AlwaysForeground is the default [AppState].
var AlwaysForeground = AppStateFunc(func() bool { return true })
