// SPDX-License-Identifier: GPL-3.0-or-later

// Package bridge stands in for the OS hotspot subsystem.
//
// It speaks the command protocol over HTTP/JSON, so that an external
// process playing the OS role can drive a [*hotspot.Manager], and offers
// a WebSocket channel to UI clients, which report whether the app is in
// foreground and receive the authentication notifications.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bassosimone/hotspot"
	"github.com/gin-gonic/gin"
)

// ErrNoUIClients is returned by [*Bridge.Add] when no UI client is connected.
var ErrNoUIClients = errors.New("bridge: no UI client connected")

// Config contains the [*Bridge] settings.
//
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// CommandTimeout is the deadline of every command except presentUI,
	// which the OS does not bound while the UI is presented.
	//
	// Set by [NewConfig] to 30 seconds.
	CommandTimeout time.Duration

	// DialerFactory creates the dialer bound to a named interface.
	//
	// Set by [NewConfig] to [hotspot.NewInterfaceDialer].
	DialerFactory func(ifname string) hotspot.Dialer

	// PingPeriod is the interval between UI client pings.
	//
	// Set by [NewConfig] to 30 seconds.
	PingPeriod time.Duration

	// PongWait is how long to wait for a UI client message or pong.
	//
	// Set by [NewConfig] to 90 seconds.
	PongWait time.Duration

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// WriteWait bounds each write to a UI client.
	//
	// Set by [NewConfig] to 10 seconds.
	WriteWait time.Duration
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		CommandTimeout: 30 * time.Second,
		DialerFactory:  hotspot.NewInterfaceDialer,
		PingPeriod:     30 * time.Second,
		PongWait:       90 * time.Second,
		TimeNow:        time.Now,
		WriteWait:      10 * time.Second,
	}
}

// Bridge implements [hotspot.Subsystem], [hotspot.Notifier] and
// [hotspot.AppState] over HTTP.
//
// Construct using [New].
type Bridge struct {
	// PerformLogoff serves POST /v1/logoff. When nil the endpoint
	// answers 503.
	//
	// Set by [New] to nil. Typically [*hotspot.Manager.PerformLogoff].
	PerformLogoff func() bool

	cfg    *Config
	engine *gin.Engine
	logger hotspot.SLogger

	// mu protects the fields below.
	mu          sync.Mutex
	clients     map[*uiClient]struct{}
	displayName string
	handler     hotspot.CommandHandler
	interfaces  hotspot.NetworkList
	queue       *hotspot.Queue
}

var (
	_ hotspot.Subsystem = &Bridge{}
	_ hotspot.Notifier  = &Bridge{}
	_ hotspot.AppState  = &Bridge{}
)

// New creates a [*Bridge].
func New(cfg *Config, logger hotspot.SLogger) *Bridge {
	b := &Bridge{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*uiClient]struct{}),
	}
	b.engine = b.newEngine()
	return b
}

func (b *Bridge) newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), b.logRequests())

	v1 := engine.Group("/v1")
	v1.POST("/commands", b.postCommand)
	v1.GET("/interfaces", b.getInterfaces)
	v1.PUT("/interfaces", b.putInterfaces)
	v1.POST("/logoff", b.postLogoff)
	v1.GET("/ui", b.getUI)
	return engine
}

// Handler returns the [http.Handler] serving the bridge API.
func (b *Bridge) Handler() http.Handler {
	return b.engine
}

func (b *Bridge) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		t0 := b.cfg.TimeNow()
		c.Next()
		b.logger.Info(
			"httpRequest",
			slog.String("httpMethod", c.Request.Method),
			slog.String("httpPath", c.Request.URL.Path),
			slog.Int("httpStatus", c.Writer.Status()),
			slog.String("remoteAddr", c.ClientIP()),
			slog.Time("t0", t0),
			slog.Time("t", b.cfg.TimeNow()),
		)
	}
}

// Register implements [hotspot.Subsystem]. It accepts the first
// registration only.
func (b *Bridge) Register(displayName string, queue *hotspot.Queue, handler hotspot.CommandHandler) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler != nil {
		return false
	}
	b.displayName, b.handler, b.queue = displayName, handler, queue
	b.logger.Info(
		"bridgeRegistered",
		slog.String("displayName", displayName),
		slog.Time("t", b.cfg.TimeNow()),
	)
	return true
}

// registration returns the registered handler and queue, if any.
func (b *Bridge) registration() (hotspot.CommandHandler, *hotspot.Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler, b.queue
}

// SupportedNetworkInterfaces implements [hotspot.Subsystem].
//
// The networks are copies: the helper may mutate what it receives on the
// queue while the managed interfaces are served over HTTP.
func (b *Bridge) SupportedNetworkInterfaces() hotspot.NetworkList {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.interfaces == nil {
		return nil
	}
	list := make(hotspot.NetworkList, 0, len(b.interfaces))
	for _, network := range b.interfaces {
		list = append(list, network.Clone())
	}
	return list
}

// Logoff implements [hotspot.Subsystem] by sending a logoff command for
// network to the registered handler, as the OS would.
func (b *Bridge) Logoff(network *hotspot.Network) bool {
	handler, queue := b.registration()
	if handler == nil {
		return false
	}
	cmd := hotspot.NewCommand(hotspot.CommandLogoff, func(resp *hotspot.Response) {
		b.logger.Info(
			"bridgeLogoffDone",
			slog.Any("network", network),
			slog.String("spanID", resp.Command().ID),
			slog.String("status", resp.Status.String()),
			slog.Time("t", b.cfg.TimeNow()),
		)
	})
	cmd.Network = network.Clone()
	cmd.Deadline = b.cfg.TimeNow().Add(b.cfg.CommandTimeout)
	return queue.Submit(func() { handler(cmd) }) == nil
}

// Foreground implements [hotspot.AppState]: the app is in foreground when
// any connected UI client says so.
func (b *Bridge) Foreground() bool {
	for _, client := range b.uiClients() {
		if client.foreground.Load() {
			return true
		}
	}
	return false
}

// Add implements [hotspot.Notifier] by pushing req to every connected UI
// client. Returns [ErrNoUIClients] when none is connected.
func (b *Bridge) Add(ctx context.Context, req hotspot.NotificationRequest) error {
	clients := b.uiClients()
	if len(clients) <= 0 {
		return ErrNoUIClients
	}
	msg := encodeNotification(req)
	delivered := 0
	for _, client := range clients {
		select {
		case client.send <- msg:
			delivered++
		case <-client.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if delivered <= 0 {
		return ErrNoUIClients
	}
	return nil
}

// Close disconnects every UI client. The HTTP server does not track
// upgraded connections, so call Close when shutting it down.
func (b *Bridge) Close() {
	for _, client := range b.uiClients() {
		client.conn.Close()
	}
}

func (b *Bridge) uiClients() []*uiClient {
	b.mu.Lock()
	defer b.mu.Unlock()
	clients := make([]*uiClient, 0, len(b.clients))
	for client := range b.clients {
		clients = append(clients, client)
	}
	return clients
}
