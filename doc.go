// SPDX-License-Identifier: GPL-3.0-or-later

// Package hotspot implements a Wi-Fi hotspot helper: the component that
// takes part in the operating system's network selection by answering the
// commands the OS sends about candidate and joined networks.
//
// # Command Protocol
//
// The OS sends a [*Command] and expects exactly one [*Response] within the
// command deadline. The command types are:
//
//   - [CommandFilterScanList]: pick the target network out of a scan and
//     attach its credential
//   - [CommandEvaluate]: assign a [Confidence] to a network
//   - [CommandAuthenticate]: require UI, notifying the user when the app is
//     in background
//   - [CommandPresentUI]: probe the network through its own connectivity
//     context and report whether the probe succeeded
//   - [CommandMaintain]: heartbeat; a just-joined network requires
//     authentication
//   - [CommandLogoff]: drop the credential and any probe for the network
//
// A command is missing its payload when the [*Network] or [NetworkList]
// it requires is nil. Such commands are answered with
// [StatusTemporaryFailure]. [CommandNone] is never valid and dispatching it
// panics.
//
// # Execution Model
//
// Every command of a registration runs on a single [*Queue]. The probe and
// the notification run on their own goroutines and post their continuation
// back onto the queue, so the [*Dispatcher] state is never shared across
// goroutines. [*Response.Deliver] enforces the single response per command.
//
// # Wiring
//
// Build a [*Config] with [NewConfig] and a [*Policy] with [DefaultPolicy] or
// [LoadPolicy], create a [*Queue], a [*Dispatcher] and a [*Manager] for the
// [Subsystem], then call [*Manager.Register] exactly once.
//
// # Observability
//
// All components log through [SLogger], which [*slog.Logger] satisfies. By
// default logging is disabled. Spans are *Start/*Done event pairs carrying
// t0, t, err and errClass; every event related to a command carries the
// command spanID (see [NewSpanID]). Per-I/O probe events use
// [slog.LevelDebug].
package hotspot
