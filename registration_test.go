// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubsystem is a [Subsystem] recording the registrations.
type fakeSubsystem struct {
	accept     bool
	interfaces NetworkList
	logoffOK   bool

	mu            sync.Mutex
	displayNames  []string
	handler       CommandHandler
	queue         *Queue
	loggedOff     []*Network
	registerCalls int
}

var _ Subsystem = &fakeSubsystem{}

func (s *fakeSubsystem) Register(displayName string, queue *Queue, handler CommandHandler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerCalls++
	s.displayNames = append(s.displayNames, displayName)
	if s.accept {
		s.handler, s.queue = handler, queue
	}
	return s.accept
}

func (s *fakeSubsystem) SupportedNetworkInterfaces() NetworkList {
	return s.interfaces
}

func (s *fakeSubsystem) Logoff(network *Network) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOff = append(s.loggedOff, network)
	return s.logoffOK
}

func newTestManager(t *testing.T, sys *fakeSubsystem) (*Manager, *Queue) {
	t.Helper()
	logger, _ := newCapturingLogger()
	d, queue := newTestDispatcher(t, NewConfig(), DefaultPolicy(), logger)
	return NewManager(sys, queue, d, logger), queue
}

// The first registration hands the dispatcher and the queue to the OS;
// a second one fails without altering the first.
func TestManagerRegisterOnce(t *testing.T) {
	sys := &fakeSubsystem{accept: true}
	mgr, queue := newTestManager(t, sys)

	require.NoError(t, mgr.Register("HotspotHelper"))
	require.NotNil(t, sys.handler)
	assert.Same(t, queue, sys.queue)
	handler := sys.handler

	err := mgr.Register("Other")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, 1, sys.registerCalls)
	assert.Equal(t, []string{"HotspotHelper"}, sys.displayNames)

	// The existing registration still answers commands
	cmd, ch := newRecordedCommand(CommandMaintain)
	cmd.Network = &Network{SSID: "cafe"}
	require.NoError(t, queue.Submit(func() { handler(cmd) }))
	assert.Equal(t, StatusSuccess, awaitResponse(t, ch).Status)
}

// An empty display name is passed through as the no-option case.
func TestManagerRegisterEmptyDisplayName(t *testing.T) {
	sys := &fakeSubsystem{accept: true}
	mgr, _ := newTestManager(t, sys)
	require.NoError(t, mgr.Register(""))
	assert.Equal(t, []string{""}, sys.displayNames)
}

// The OS refusal is sticky.
func TestManagerRegisterRefused(t *testing.T) {
	sys := &fakeSubsystem{accept: false}
	mgr, _ := newTestManager(t, sys)

	first := mgr.Register("HotspotHelper")
	assert.ErrorIs(t, first, ErrRegistrationRefused)

	second := mgr.Register("HotspotHelper")
	assert.Same(t, first, second)
	assert.Equal(t, 1, sys.registerCalls)
}

// Registering after the queue is closed fails.
func TestManagerRegisterQueueClosed(t *testing.T) {
	sys := &fakeSubsystem{accept: true}
	queue := NewQueue()
	d, err := NewDispatcher(NewConfig(), DefaultPolicy(), queue, DefaultSLogger())
	require.NoError(t, err)
	queue.Close()

	mgr := NewManager(sys, queue, d, DefaultSLogger())
	assert.ErrorIs(t, mgr.Register("HotspotHelper"), ErrQueueClosed)
	assert.Equal(t, 0, sys.registerCalls)
}

func TestManagerActiveNetwork(t *testing.T) {
	tests := []struct {
		name       string
		interfaces NetworkList
		wantSSID   string // empty means nil
	}{
		{"absent list", nil, ""},
		{"empty list", NetworkList{}, ""},
		{"first entry", NetworkList{{SSID: "a"}, {SSID: "b"}}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, _ := newTestManager(t, &fakeSubsystem{interfaces: tt.interfaces})
			network := mgr.ActiveNetwork()
			if tt.wantSSID == "" {
				assert.Nil(t, network)
				return
			}
			require.NotNil(t, network)
			assert.Equal(t, tt.wantSSID, network.SSID)
		})
	}
}

// The active network at registration is only logged.
func TestManagerRegisterLogsActiveNetwork(t *testing.T) {
	logger, records := newCapturingLogger()
	sys := &fakeSubsystem{accept: true, interfaces: NetworkList{{SSID: "cafe"}}}
	d, queue := newTestDispatcher(t, NewConfig(), DefaultPolicy(), logger)
	mgr := NewManager(sys, queue, d, logger)

	require.NoError(t, mgr.Register("HotspotHelper"))
	assert.Contains(t, recordMessages(*records), "activeNetworkAtRegistration")
	assert.Empty(t, sys.loggedOff)
}

func TestManagerPerformLogoff(t *testing.T) {
	t.Run("no active network", func(t *testing.T) {
		sys := &fakeSubsystem{logoffOK: true}
		mgr, _ := newTestManager(t, sys)
		assert.False(t, mgr.PerformLogoff())
		assert.Empty(t, sys.loggedOff)
	})

	t.Run("OS starts the logoff", func(t *testing.T) {
		active := &Network{SSID: "cafe"}
		sys := &fakeSubsystem{interfaces: NetworkList{active}, logoffOK: true}
		mgr, _ := newTestManager(t, sys)
		assert.True(t, mgr.PerformLogoff())
		require.Len(t, sys.loggedOff, 1)
		assert.Same(t, active, sys.loggedOff[0])
	})

	t.Run("OS refuses the logoff", func(t *testing.T) {
		sys := &fakeSubsystem{interfaces: NetworkList{{SSID: "cafe"}}, logoffOK: false}
		mgr, _ := newTestManager(t, sys)
		assert.False(t, mgr.PerformLogoff())
	})
}
