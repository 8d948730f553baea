// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The discard logger must be usable wherever a logger is expected.
func TestDefaultSLogger(t *testing.T) {
	logger := DefaultSLogger()
	require.NotNil(t, logger)

	d, queue := newTestDispatcher(t, NewConfig(), DefaultPolicy(), logger)
	cmd, responses := newRecordedCommand(CommandMaintain)
	cmd.Network = &Network{SSID: "cafe"}
	dispatch(t, d, queue, cmd)

	resp := awaitResponse(t, responses)
	assert.Equal(t, StatusSuccess, resp.Status)
}

// A *slog.Logger is accepted and receives the command events.
func TestSLoggerAcceptsSlogLogger(t *testing.T) {
	slogger, records := newCapturingLogger()
	var logger SLogger = slogger

	logger.Warn("commandMissingPayload", slog.String("commandType", "evaluate"))

	require.Len(t, *records, 1)
	assert.Equal(t, "commandMissingPayload", (*records)[0].Message)
	assert.Equal(t, slog.LevelWarn, (*records)[0].Level)
}
