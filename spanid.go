// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// Every [*Command] gets a span ID at construction so that all the log
// entries emitted while handling it (dispatch, probe, notification,
// response delivery) can be correlated.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
