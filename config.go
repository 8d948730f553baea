// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"context"
	"net"
	"time"
)

// Dialer abstracts the [*net.Dialer] behavior.
//
// A [*Command] may carry a Dialer bound to the network the command is
// about (see [NewInterfaceDialer]). The probe and the resolver dial through
// it so that traffic leaves via the candidate network rather than the
// default route, which would otherwise fail with no connectivity.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds the runtime dependencies shared by the [*Dispatcher] and
// the [*ProbeSession] instances it creates.
//
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Dialer is used when a [*Command] does not carry its own Dialer.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Resolver resolves the probe host through the command's Dialer.
	//
	// Set by [NewConfig] to nil, meaning that the Dialer resolves.
	Resolver Resolver

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		ErrClassifier: DefaultErrClassifier,
		Resolver:      nil,
		TimeNow:       time.Now,
	}
}
