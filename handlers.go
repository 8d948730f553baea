// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"log/slog"
)

func (d *Dispatcher) handleFilterScanList(cmd *Command) {
	list := cmd.NetworkList
	if list == nil {
		d.missingPayload(cmd)
		return
	}
	for _, network := range list {
		d.Logger.Debug("filterScanListEntry", slog.Any("network", network), slog.String("spanID", cmd.ID))
	}

	resp := cmd.CreateResponse(StatusSuccess)
	if idx := d.targetIndex(list); idx >= 0 {
		network := list[idx]
		if d.policy.TargetPassword != "" {
			network.SetPassword(d.policy.TargetPassword)
		}
		d.Logger.Info("filterScanListMatch", slog.Any("network", network), slog.String("spanID", cmd.ID))
		resp.SetNetworkList(NetworkList{network})
	}
	d.deliver(resp)
}

func (d *Dispatcher) targetIndex(list NetworkList) int {
	if d.policy.TargetSSID == "" {
		return -1
	}
	return list.Index(d.policy.TargetSSID)
}

func (d *Dispatcher) handleEvaluate(cmd *Command) {
	network := cmd.Network
	if network == nil {
		d.missingPayload(cmd)
		return
	}
	network.SetConfidence(d.Evaluator.Evaluate(network))
	d.Logger.Info("evaluateNetwork", slog.Any("network", network), slog.String("spanID", cmd.ID))

	resp := cmd.CreateResponse(StatusSuccess)
	resp.SetNetwork(network)
	d.deliver(resp)
}

func (d *Dispatcher) handleAuthenticate(cmd *Command) {
	network := cmd.Network
	if network == nil {
		d.missingPayload(cmd)
		return
	}
	if d.AppState.Foreground() {
		d.respond(cmd, StatusUIRequired)
		return
	}

	req := NotificationRequest{
		Identifier: UIRequiredNotificationID,
		Title:      d.policy.NotificationTitle,
		Body:       d.policy.NotificationText(network),
		Trigger:    TriggerImmediate,
	}
	ctx := d.ctx
	go func() {
		t0 := d.TimeNow()
		d.Logger.Info(
			"notificationStart",
			slog.String("notificationID", req.Identifier),
			slog.String("spanID", cmd.ID),
			slog.Time("t", t0),
		)

		err := d.Notifier.Add(ctx, req)

		d.Logger.Info(
			"notificationDone",
			slog.Any("err", err),
			slog.String("errClass", d.ErrClassifier.Classify(err)),
			slog.String("notificationID", req.Identifier),
			slog.String("spanID", cmd.ID),
			slog.Time("t0", t0),
			slog.Time("t", d.TimeNow()),
		)

		status := StatusUIRequired
		if err != nil {
			status = StatusTemporaryFailure
		}
		d.submit(cmd, func() { d.respond(cmd, status) })
	}()
}

func (d *Dispatcher) handlePresentUI(cmd *Command) {
	network := cmd.Network
	if network == nil {
		d.missingPayload(cmd)
		return
	}
	d.discardProbe("superseded")

	var session *ProbeSession
	session, err := NewProbeSession(&d.probeConfig, d.policy, d.Logger, func(body []byte, err error) {
		d.submit(cmd, func() { d.probeDone(session, body, err) })
	})
	if err != nil {
		d.respond(cmd, StatusTemporaryFailure)
		return
	}
	d.probe = session
	session.Start(d.ctx, cmd)
}

func (d *Dispatcher) probeDone(session *ProbeSession, body []byte, err error) {
	cmd := session.Command()
	if d.probe != session {
		d.Logger.Info("probeSuperseded", slog.String("spanID", cmd.ID))
		return
	}
	d.probe = nil

	status := StatusSuccess
	if err != nil {
		status = StatusTemporaryFailure
	}
	d.respond(cmd, status)
}

// discardProbe stops the current probe and answers its pending command.
func (d *Dispatcher) discardProbe(reason string) {
	session := d.probe
	if session == nil {
		return
	}
	d.probe = nil
	session.Stop()
	if cmd := session.Command(); cmd != nil && !cmd.Delivered() {
		d.Logger.Info("probeDiscarded", slog.String("reason", reason), slog.String("spanID", cmd.ID))
		d.respond(cmd, StatusTemporaryFailure)
	}
}

func (d *Dispatcher) handleMaintain(cmd *Command) {
	network := cmd.Network
	if network == nil {
		d.missingPayload(cmd)
		return
	}
	if network.JustJoined {
		d.Logger.Info("maintainJustJoined", slog.Any("network", network), slog.String("spanID", cmd.ID))
		d.respond(cmd, StatusAuthenticationRequired)
		return
	}
	d.respond(cmd, StatusSuccess)
}

func (d *Dispatcher) handleLogoff(cmd *Command) {
	network := cmd.Network
	if network == nil {
		d.missingPayload(cmd)
		return
	}
	if d.probe != nil && d.probe.Network().SameAs(network) {
		d.discardProbe("logoff")
	}
	network.SetPassword("")
	d.Logger.Info("logoffNetwork", slog.Any("network", network), slog.String("spanID", cmd.ID))
	d.respond(cmd, StatusSuccess)
}

// submit posts a continuation for cmd on the queue.
func (d *Dispatcher) submit(cmd *Command, fn func()) {
	if err := d.queue.Submit(fn); err != nil {
		d.Logger.Warn(
			"commandDropped",
			slog.String("commandType", cmd.Type.String()),
			slog.Any("err", err),
			slog.String("spanID", cmd.ID),
			slog.Time("t", d.TimeNow()),
		)
	}
}
