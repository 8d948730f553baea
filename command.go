// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"fmt"
	"sync/atomic"
	"time"
)

// CommandType is the tag of a [*Command].
type CommandType int

const (
	// CommandNone is the invalid sentinel. Receiving it is a contract
	// breach by the OS layer and [*Dispatcher.Dispatch] panics.
	CommandNone CommandType = iota

	// CommandFilterScanList carries the networks visible in a scan.
	CommandFilterScanList

	// CommandEvaluate asks for the confidence of a network.
	CommandEvaluate

	// CommandAuthenticate asks to authenticate on a joined network.
	CommandAuthenticate

	// CommandPresentUI runs the interactive authentication flow.
	CommandPresentUI

	// CommandMaintain is the periodic heartbeat on a joined network.
	CommandMaintain

	// CommandLogoff asks to log off from a network.
	CommandLogoff
)

var commandTypeNames = map[CommandType]string{
	CommandNone:           "none",
	CommandFilterScanList: "filterScanList",
	CommandEvaluate:       "evaluate",
	CommandAuthenticate:   "authenticate",
	CommandPresentUI:      "presentUI",
	CommandMaintain:       "maintain",
	CommandLogoff:         "logoff",
}

// String implements [fmt.Stringer].
func (t CommandType) String() string {
	if name, ok := commandTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CommandType(%d)", int(t))
}

// ParseCommandType is the inverse of [CommandType.String].
//
// It accepts "none" and returns [CommandNone], leaving it to the caller
// to refuse the sentinel.
func ParseCommandType(s string) (CommandType, error) {
	for ctype, name := range commandTypeNames {
		if name == s {
			return ctype, nil
		}
	}
	return CommandNone, fmt.Errorf("%w: %q", ErrInvalidCommandType, s)
}

// Status is the outcome carried by a [*Response].
type Status int

const (
	// StatusSuccess means the command was handled.
	StatusSuccess Status = iota

	// StatusTemporaryFailure means the command could not be handled now.
	StatusTemporaryFailure

	// StatusUIRequired means the OS should issue a presentUI command.
	StatusUIRequired

	// StatusAuthenticationRequired means the OS should issue an
	// authenticate command for the network.
	StatusAuthenticationRequired
)

var statusNames = map[Status]string{
	StatusSuccess:                "success",
	StatusTemporaryFailure:       "temporaryFailure",
	StatusUIRequired:             "uiRequired",
	StatusAuthenticationRequired: "authenticationRequired",
}

// String implements [fmt.Stringer].
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus is the inverse of [Status.String].
func ParseStatus(s string) (Status, error) {
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}
	return StatusTemporaryFailure, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// DeliverFunc receives the [*Response] to a [*Command].
//
// This is the OS side of the response protocol. It is invoked at most
// once per command, on the goroutine delivering the response.
type DeliverFunc func(resp *Response)

// Command is a command sent by the OS.
//
// The OS layer constructs a command using [NewCommand], fills the payload
// matching its Type and hands it to the registered [CommandHandler].
//
// Fields must not be mutated after the command has been handed over.
type Command struct {
	// Type is the command tag.
	Type CommandType

	// Network is the network the command is about, if any.
	Network *Network

	// NetworkList is the scan list for [CommandFilterScanList].
	NetworkList NetworkList

	// Dialer is the connectivity context bound to this command. When nil
	// the probe uses [Config.Dialer].
	Dialer Dialer

	// Deadline is the time by which the OS expects a response. The zero
	// value means no deadline, as for [CommandPresentUI].
	Deadline time.Time

	// ID is the span ID used to correlate log entries.
	//
	// Set by [NewCommand] using [NewSpanID].
	ID string

	// Deliver receives the response.
	//
	// Set by [NewCommand] to the user-provided function.
	Deliver DeliverFunc

	// delivered tracks whether a response has been delivered.
	delivered atomic.Bool
}

// NewCommand creates a [*Command] with the given type and delivery
// function. The payload fields are left empty.
func NewCommand(ctype CommandType, deliver DeliverFunc) *Command {
	return &Command{
		Type:    ctype,
		ID:      NewSpanID(),
		Deliver: deliver,
	}
}

// CreateResponse returns a status-only [*Response] bound to the command.
func (c *Command) CreateResponse(status Status) *Response {
	return &Response{Status: status, cmd: c}
}

// Delivered returns whether a response for the command has been delivered.
func (c *Command) Delivered() bool {
	return c.delivered.Load()
}

// Response is the answer to a [*Command].
//
// Build using [*Command.CreateResponse]. Network and NetworkList are
// mutually exclusive and both are unset for status-only responses.
type Response struct {
	// Status is the command outcome.
	Status Status

	// Network is the single network payload.
	Network *Network

	// NetworkList is the network list payload.
	NetworkList NetworkList

	// cmd is the command this response answers.
	cmd *Command
}

// SetNetwork sets the single network payload, clearing the list.
func (r *Response) SetNetwork(network *Network) {
	r.Network = network
	r.NetworkList = nil
}

// SetNetworkList sets the network list payload, clearing the network.
func (r *Response) SetNetworkList(list NetworkList) {
	r.NetworkList = list
	r.Network = nil
}

// Command returns the command this response answers.
func (r *Response) Command() *Command {
	return r.cmd
}

// Deliver delivers the response to the OS.
//
// Each command accepts exactly one response: any further call, on this
// or another response of the same command, returns [ErrAlreadyDelivered]
// and does not reach the OS.
func (r *Response) Deliver() error {
	if !r.cmd.delivered.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: command %s (%s)", ErrAlreadyDelivered, r.cmd.ID, r.cmd.Type)
	}
	if r.cmd.Deliver != nil {
		r.cmd.Deliver(r)
	}
	return nil
}
