// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bassosimone/runtimex"
)

// Subsystem is the OS hotspot subsystem.
type Subsystem interface {
	// Register registers handler as the hotspot helper. The subsystem
	// must invoke handler on queue. Returns false if the OS refuses.
	Register(displayName string, queue *Queue, handler CommandHandler) bool

	// SupportedNetworkInterfaces returns the managed interfaces, or nil
	// if none. The first element is the active network.
	SupportedNetworkInterfaces() NetworkList

	// Logoff starts a logoff of network. Returns false if the OS could
	// not start it.
	Logoff(network *Network) bool
}

// Manager registers a [*Dispatcher] with a [Subsystem] exactly once and
// exposes the operations that need the OS.
//
// Construct using [NewManager].
type Manager struct {
	// Logger is the [SLogger] to use.
	//
	// Set by [NewManager] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewManager] from the dispatcher.
	TimeNow func() time.Time

	// dispatcher handles the commands.
	dispatcher *Dispatcher

	// queue is where registration and commands run.
	queue *Queue

	// regErr is the sticky registration error. Queue only.
	regErr error

	// registered indicates a successful registration. Queue only.
	registered bool

	// sys is the OS subsystem.
	sys Subsystem
}

// NewManager creates a [*Manager].
func NewManager(sys Subsystem, queue *Queue, d *Dispatcher, logger SLogger) *Manager {
	runtimex.Assert(sys != nil && queue != nil && d != nil)
	return &Manager{
		Logger:     logger,
		TimeNow:    d.TimeNow,
		dispatcher: d,
		queue:      queue,
		sys:        sys,
	}
}

// Register registers the dispatcher as the hotspot helper.
//
// An empty displayName registers without a display name option. It runs
// on the queue and blocks until done, so it must not be called from the
// queue. Returns [ErrAlreadyRegistered] after a successful registration
// and, once the OS has refused, the same [ErrRegistrationRefused] error
// on every later call.
func (m *Manager) Register(displayName string) error {
	var err error
	qerr := m.queue.Do(func() {
		err = m.register(displayName)
	})
	if qerr != nil {
		return qerr
	}
	return err
}

func (m *Manager) register(displayName string) error {
	if m.regErr != nil {
		return m.regErr
	}
	if m.registered {
		return ErrAlreadyRegistered
	}

	t0 := m.TimeNow()
	m.Logger.Info(
		"registerStart",
		slog.String("displayName", displayName),
		slog.Time("t", t0),
	)

	ok := m.sys.Register(displayName, m.queue, m.dispatcher.Dispatch)

	m.Logger.Info(
		"registerDone",
		slog.String("displayName", displayName),
		slog.Bool("ok", ok),
		slog.Time("t0", t0),
		slog.Time("t", m.TimeNow()),
	)

	if !ok {
		m.regErr = fmt.Errorf("%w: %q", ErrRegistrationRefused, displayName)
		return m.regErr
	}
	m.registered = true

	if network := m.ActiveNetwork(); network != nil {
		m.Logger.Info(
			"activeNetworkAtRegistration",
			slog.Any("network", network),
			slog.Time("t", m.TimeNow()),
		)
	}
	return nil
}

// ActiveNetwork returns the first managed interface, or nil.
func (m *Manager) ActiveNetwork() *Network {
	list := m.sys.SupportedNetworkInterfaces()
	if len(list) <= 0 {
		return nil
	}
	return list[0]
}

// PerformLogoff asks the OS to log off the active network and reports
// whether the logoff was started.
func (m *Manager) PerformLogoff() bool {
	network := m.ActiveNetwork()
	started := network != nil && m.sys.Logoff(network)
	m.Logger.Info(
		"performLogoff",
		slog.Any("network", network),
		slog.Bool("started", started),
		slog.Time("t", m.TimeNow()),
	)
	return started
}
