// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"fmt"
	"log/slog"
)

// Confidence is the signal given to the OS about how strongly a network
// is recommended for auto-join.
type Confidence int

const (
	// ConfidenceNone means the helper has no opinion on the network.
	ConfidenceNone Confidence = iota

	// ConfidenceLow means the helper may be able to handle the network.
	ConfidenceLow

	// ConfidenceHigh means the helper can handle the network.
	ConfidenceHigh
)

// String implements [fmt.Stringer].
func (c Confidence) String() string {
	switch c {
	case ConfidenceNone:
		return "none"
	case ConfidenceLow:
		return "low"
	case ConfidenceHigh:
		return "high"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// ParseConfidence is the inverse of [Confidence.String].
func ParseConfidence(s string) (Confidence, error) {
	switch s {
	case "", "none":
		return ConfidenceNone, nil
	case "low":
		return ConfidenceLow, nil
	case "high":
		return ConfidenceHigh, nil
	default:
		return ConfidenceNone, fmt.Errorf("%w: %q", ErrInvalidConfidence, s)
	}
}

// Network is a Wi-Fi network as described by the OS in a [*Command].
//
// Networks are transient: the OS supplies them with each command and this
// package never persists them. Handlers may mutate a network (confidence,
// credential) before returning it to the OS in a [*Response].
type Network struct {
	// SSID is the human-readable network name.
	SSID string

	// BSSID is the hardware identifier of the access point.
	BSSID string

	// SignalStrength is the signal strength in the [0, 1] range.
	SignalStrength float64

	// Secure indicates that the network requires a credential to join.
	Secure bool

	// AutoJoined indicates that the OS joined the network automatically.
	AutoJoined bool

	// JustJoined indicates that the network was joined since the
	// previous maintain command.
	JustJoined bool

	// Confidence is the confidence assigned by the evaluate handler.
	Confidence Confidence

	// password is the credential set by policy.
	password string
}

// SetPassword sets the credential the OS should use to join the network.
//
// An empty string clears the credential.
func (n *Network) SetPassword(password string) {
	n.password = password
}

// Password returns the credential set with [*Network.SetPassword].
func (n *Network) Password() string {
	return n.password
}

// SetConfidence sets the network confidence.
func (n *Network) SetConfidence(c Confidence) {
	n.Confidence = c
}

// Clone returns a copy of the network, credential included.
func (n *Network) Clone() *Network {
	if n == nil {
		return nil
	}
	clone := *n
	return &clone
}

// SameAs returns whether other identifies the same access point.
func (n *Network) SameAs(other *Network) bool {
	if n == nil || other == nil {
		return false
	}
	return n.SSID == other.SSID && n.BSSID == other.BSSID
}

// String implements [fmt.Stringer]. The credential is never included.
func (n *Network) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ssid=<%s> bssid=<%s>", n.SSID, n.BSSID)
}

var _ slog.LogValuer = &Network{}

// LogValue implements [slog.LogValuer]. The credential is never included.
func (n *Network) LogValue() slog.Value {
	if n == nil {
		return slog.AnyValue(nil)
	}
	return slog.GroupValue(
		slog.String("ssid", n.SSID),
		slog.String("bssid", n.BSSID),
		slog.Float64("signalStrength", n.SignalStrength),
		slog.Bool("secure", n.Secure),
		slog.Bool("autoJoined", n.AutoJoined),
		slog.Bool("justJoined", n.JustJoined),
		slog.String("confidence", n.Confidence.String()),
		slog.Bool("hasPassword", n.password != ""),
	)
}

// NetworkList is an ordered list of networks.
//
// A nil NetworkList means the list is absent; a non-nil empty list
// means the OS supplied a list without entries.
type NetworkList []*Network

// Index returns the index of the first network with the given SSID or -1.
func (l NetworkList) Index(ssid string) int {
	for idx, network := range l {
		if network != nil && network.SSID == ssid {
			return idx
		}
	}
	return -1
}
