// SPDX-License-Identifier: GPL-3.0-or-later

package bridge

import (
	"github.com/bassosimone/hotspot"
)

// commandRequest is the body of POST /v1/commands.
type commandRequest struct {
	// Type is the command type name (e.g., "presentUI").
	Type string `json:"type"`

	// Interface optionally names the interface the command is about, in
	// which case the command traffic is bound to it.
	Interface string `json:"interface,omitempty"`

	// Network is the network payload.
	Network *networkJSON `json:"network,omitempty"`

	// NetworkList is the network list payload. Absent and empty differ.
	NetworkList []networkJSON `json:"networkList"`
}

// commandResponse is the body of a successful POST /v1/commands.
type commandResponse struct {
	Status      string        `json:"status"`
	Network     *networkJSON  `json:"network,omitempty"`
	NetworkList []networkJSON `json:"networkList,omitempty"`
}

// networkJSON is the wire representation of a [*hotspot.Network].
type networkJSON struct {
	SSID           string  `json:"ssid"`
	BSSID          string  `json:"bssid"`
	SignalStrength float64 `json:"signalStrength"`
	Secure         bool    `json:"secure"`
	AutoJoined     bool    `json:"autoJoined"`
	JustJoined     bool    `json:"justJoined"`
	Confidence     string  `json:"confidence,omitempty"`
	Password       string  `json:"password,omitempty"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// logoffResponse is the body of POST /v1/logoff.
type logoffResponse struct {
	Started bool `json:"started"`
}

// uiClientMessage is a message sent by a UI client.
type uiClientMessage struct {
	// State is either "foreground" or "background".
	State string `json:"state"`
}

// uiNotification is the notification pushed to UI clients.
type uiNotification struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Trigger    string `json:"trigger"`
}

func decodeNetwork(value *networkJSON) (*hotspot.Network, error) {
	if value == nil {
		return nil, nil
	}
	confidence, err := hotspot.ParseConfidence(value.Confidence)
	if err != nil {
		return nil, err
	}
	network := &hotspot.Network{
		SSID:           value.SSID,
		BSSID:          value.BSSID,
		SignalStrength: value.SignalStrength,
		Secure:         value.Secure,
		AutoJoined:     value.AutoJoined,
		JustJoined:     value.JustJoined,
		Confidence:     confidence,
	}
	network.SetPassword(value.Password)
	return network, nil
}

func decodeNetworkList(values []networkJSON) (hotspot.NetworkList, error) {
	if values == nil {
		return nil, nil
	}
	list := make(hotspot.NetworkList, 0, len(values))
	for idx := range values {
		network, err := decodeNetwork(&values[idx])
		if err != nil {
			return nil, err
		}
		list = append(list, network)
	}
	return list, nil
}

func encodeNetwork(network *hotspot.Network) *networkJSON {
	if network == nil {
		return nil
	}
	return &networkJSON{
		SSID:           network.SSID,
		BSSID:          network.BSSID,
		SignalStrength: network.SignalStrength,
		Secure:         network.Secure,
		AutoJoined:     network.AutoJoined,
		JustJoined:     network.JustJoined,
		Confidence:     network.Confidence.String(),
		Password:       network.Password(),
	}
}

func encodeNetworkList(list hotspot.NetworkList) []networkJSON {
	if list == nil {
		return nil
	}
	values := make([]networkJSON, 0, len(list))
	for _, network := range list {
		if value := encodeNetwork(network); value != nil {
			values = append(values, *value)
		}
	}
	return values
}

func encodeResponse(resp *hotspot.Response) *commandResponse {
	return &commandResponse{
		Status:      resp.Status.String(),
		Network:     encodeNetwork(resp.Network),
		NetworkList: encodeNetworkList(resp.NetworkList),
	}
}

func encodeNotification(req hotspot.NotificationRequest) *uiNotification {
	trigger := "immediate"
	if req.Trigger != hotspot.TriggerImmediate {
		trigger = "unknown"
	}
	return &uiNotification{
		Type:       "notification",
		Identifier: req.Identifier,
		Title:      req.Title,
		Body:       req.Body,
		Trigger:    trigger,
	}
}
