// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bassosimone/runtimex"
)

// CommandHandler handles a [*Command]. The [Subsystem] invokes it on the
// [*Queue] it received at registration.
type CommandHandler func(cmd *Command)

// Dispatcher routes each [*Command] to the handler for its type and owns
// the state shared by the handlers.
//
// All the methods except [*Dispatcher.Close] must run on the [*Queue]
// passed to [NewDispatcher]; that is what [*Manager.Register] arranges.
//
// All fields are safe to modify after construction but before the first
// command is dispatched.
type Dispatcher struct {
	// AppState tells whether the app is in foreground.
	//
	// Set by [NewDispatcher] to [AlwaysForeground].
	AppState AppState

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewDispatcher] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Evaluator assigns the confidence of evaluated networks.
	//
	// Set by [NewDispatcher] to [HighConfidenceEvaluator].
	Evaluator Evaluator

	// Logger is the [SLogger] to use.
	//
	// Set by [NewDispatcher] to the user-provided logger.
	Logger SLogger

	// Notifier enqueues the authentication notification.
	//
	// Set by [NewDispatcher] to [DefaultNotifier].
	Notifier Notifier

	// TimeNow is the function to get the current time.
	//
	// Set by [NewDispatcher] from [Config.TimeNow].
	TimeNow func() time.Time

	// cancel cancels ctx.
	cancel context.CancelFunc

	// ctx is the parent of notification and probe contexts.
	ctx context.Context

	// policy is the policy in use.
	policy *Policy

	// probe is the current probe session, if any. Queue only.
	probe *ProbeSession

	// probeConfig is the config for new probe sessions.
	probeConfig Config

	// queue is the serialized execution queue.
	queue *Queue
}

// NewDispatcher creates a [*Dispatcher] after validating the policy.
//
// When [Policy.ProbeDNSServer] is set and [Config.Resolver] is nil the
// probe resolves through a [*DNSResolver] querying that server over
// [Policy.ProbeDNSProtocol].
func NewDispatcher(cfg *Config, policy *Policy, queue *Queue, logger SLogger) (*Dispatcher, error) {
	runtimex.Assert(queue != nil)
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	probeConfig := *cfg
	if server, ok, _ := policy.probeDNSServer(); ok && probeConfig.Resolver == nil {
		probeConfig.Resolver = NewDNSResolver(cfg, policy.ProbeDNSProtocol, server, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		AppState:      AlwaysForeground,
		ErrClassifier: cfg.ErrClassifier,
		Evaluator:     HighConfidenceEvaluator,
		Logger:        logger,
		Notifier:      DefaultNotifier,
		TimeNow:       cfg.TimeNow,
		cancel:        cancel,
		ctx:           ctx,
		policy:        policy,
		probe:         nil,
		probeConfig:   probeConfig,
		queue:         queue,
	}
	return d, nil
}

// Dispatch routes cmd to the handler for its type.
//
// Receiving [CommandNone] or an unknown type is a contract breach by the
// OS layer and Dispatch panics.
func (d *Dispatcher) Dispatch(cmd *Command) {
	runtimex.Assert(cmd != nil)
	d.Logger.Info(
		"commandReceived",
		slog.String("commandType", cmd.Type.String()),
		slog.Time("deadline", cmd.Deadline),
		slog.String("spanID", cmd.ID),
		slog.Time("t", d.TimeNow()),
	)

	valid := cmd.Type > CommandNone && cmd.Type <= CommandLogoff
	if !valid {
		d.Logger.Error(
			"commandInvalid",
			slog.String("commandType", cmd.Type.String()),
			slog.String("spanID", cmd.ID),
			slog.Time("t", d.TimeNow()),
		)
	}
	runtimex.Assert(valid)

	switch cmd.Type {
	case CommandFilterScanList:
		d.handleFilterScanList(cmd)

	case CommandEvaluate:
		d.handleEvaluate(cmd)

	case CommandAuthenticate:
		d.handleAuthenticate(cmd)

	case CommandPresentUI:
		d.handlePresentUI(cmd)

	case CommandMaintain:
		d.handleMaintain(cmd)

	case CommandLogoff:
		d.handleLogoff(cmd)
	}
}

// Close stops the current probe, answering its command, and cancels any
// in-flight notification. Must not be called from the queue.
func (d *Dispatcher) Close() error {
	defer d.cancel()
	return d.queue.Do(func() {
		d.discardProbe("teardown")
	})
}

// respond delivers a status-only response.
func (d *Dispatcher) respond(cmd *Command, status Status) {
	d.deliver(cmd.CreateResponse(status))
}

// deliver delivers resp and logs the outcome.
func (d *Dispatcher) deliver(resp *Response) {
	cmd := resp.Command()
	now := d.TimeNow()
	late := !cmd.Deadline.IsZero() && now.After(cmd.Deadline)
	err := resp.Deliver()
	d.Logger.Info(
		"commandResponse",
		slog.String("commandType", cmd.Type.String()),
		slog.Any("err", err),
		slog.Bool("late", late),
		slog.String("spanID", cmd.ID),
		slog.String("status", resp.Status.String()),
		slog.Time("t", now),
	)
}

// missingPayload answers a command lacking its required payload.
func (d *Dispatcher) missingPayload(cmd *Command) {
	d.Logger.Warn(
		"commandMissingPayload",
		slog.String("commandType", cmd.Type.String()),
		slog.String("spanID", cmd.ID),
		slog.Time("t", d.TimeNow()),
	)
	d.respond(cmd, StatusTemporaryFailure)
}
