// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import "errors"

var (
	// ErrAlreadyDelivered is returned when delivering a second response
	// for a [*Command] that has already been answered.
	ErrAlreadyDelivered = errors.New("hotspot: response already delivered")

	// ErrAlreadyRegistered is returned by [*Manager.Register] after a
	// successful registration. This is a fatal configuration error.
	ErrAlreadyRegistered = errors.New("hotspot: helper already registered")

	// ErrRegistrationRefused is returned by [*Manager.Register] when the
	// [Subsystem] refuses the registration. This is a fatal configuration error.
	ErrRegistrationRefused = errors.New("hotspot: subsystem refused registration")

	// ErrQueueClosed is returned when submitting work to a closed [*Queue].
	ErrQueueClosed = errors.New("hotspot: queue closed")

	// ErrNoNotifier is returned by the default [Notifier].
	ErrNoNotifier = errors.New("hotspot: no notifier configured")

	// ErrProbeBodyTooLarge is returned when the probe response body
	// exceeds [Policy.ProbeMaxBodySize].
	ErrProbeBodyTooLarge = errors.New("hotspot: probe response body too large")

	// ErrInvalidCommandType is returned by [ParseCommandType].
	ErrInvalidCommandType = errors.New("hotspot: invalid command type")

	// ErrInvalidConfidence is returned by [ParseConfidence].
	ErrInvalidConfidence = errors.New("hotspot: invalid confidence")

	// ErrInvalidStatus is returned by [ParseStatus].
	ErrInvalidStatus = errors.New("hotspot: invalid status")

	// ErrInvalidPolicy is returned by [*Policy.Validate].
	ErrInvalidPolicy = errors.New("hotspot: invalid policy")

	// ErrNoSuchInterface is returned by dialers created using
	// [NewInterfaceDialer] when the interface cannot be used.
	ErrNoSuchInterface = errors.New("hotspot: no usable network interface")
)
