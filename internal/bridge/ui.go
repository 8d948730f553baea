// SPDX-License-Identifier: GPL-3.0-or-later

package bridge

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// uiMaxMessageSize is the largest message accepted from a UI client.
const uiMaxMessageSize = 4096

// uiClient is a connected UI client.
type uiClient struct {
	conn       *websocket.Conn
	done       chan struct{}
	foreground atomic.Bool
	once       sync.Once
	send       chan *uiNotification
}

func (u *uiClient) close() {
	u.once.Do(func() {
		close(u.done)
		u.conn.Close()
	})
}

// getUI upgrades to WebSocket and serves a UI client until it goes away.
func (b *Bridge) getUI(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("uiUpgradeFailed", slog.Any("err", err), slog.Time("t", b.cfg.TimeNow()))
		return
	}
	client := &uiClient{
		conn: conn,
		done: make(chan struct{}),
		send: make(chan *uiNotification, 16),
	}

	b.mu.Lock()
	b.clients[client] = struct{}{}
	b.mu.Unlock()
	b.logger.Info(
		"uiClientConnected",
		slog.String("remoteAddr", conn.RemoteAddr().String()),
		slog.Time("t", b.cfg.TimeNow()),
	)

	go b.writePump(client)
	b.readPump(client)
}

// readPump reads the client state reports until the connection fails.
func (b *Bridge) readPump(client *uiClient) {
	defer func() {
		b.mu.Lock()
		delete(b.clients, client)
		b.mu.Unlock()
		client.close()
		b.logger.Info(
			"uiClientDisconnected",
			slog.String("remoteAddr", client.conn.RemoteAddr().String()),
			slog.Time("t", b.cfg.TimeNow()),
		)
	}()

	conn := client.conn
	conn.SetReadLimit(uiMaxMessageSize)
	conn.SetReadDeadline(b.cfg.TimeNow().Add(b.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(b.cfg.TimeNow().Add(b.cfg.PongWait))
		return nil
	})

	for {
		var msg uiClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn("uiClientReadFailed", slog.Any("err", err), slog.Time("t", b.cfg.TimeNow()))
			}
			return
		}
		conn.SetReadDeadline(b.cfg.TimeNow().Add(b.cfg.PongWait))

		switch msg.State {
		case "foreground":
			client.foreground.Store(true)
		case "background":
			client.foreground.Store(false)
		default:
			b.logger.Warn("uiClientInvalidState", slog.String("state", msg.State), slog.Time("t", b.cfg.TimeNow()))
			continue
		}
		b.logger.Info("uiClientState", slog.String("state", msg.State), slog.Time("t", b.cfg.TimeNow()))
	}
}

// writePump pushes notifications and keeps the connection alive.
func (b *Bridge) writePump(client *uiClient) {
	ticker := time.NewTicker(b.cfg.PingPeriod)
	defer ticker.Stop()
	defer client.close()

	conn := client.conn
	for {
		select {
		case msg := <-client.send:
			conn.SetWriteDeadline(b.cfg.TimeNow().Add(b.cfg.WriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(b.cfg.TimeNow().Add(b.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.done:
			return
		}
	}
}
