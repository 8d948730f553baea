//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop/blob/main/connect.go
// Adapted from: https://github.com/bassosimone/nop/blob/main/cancelwatch.go
// Adapted from: https://github.com/bassosimone/nop/blob/main/observeconn.go
// Adapted from: https://github.com/bassosimone/nop/blob/main/tls.go
// Adapted from: https://github.com/bassosimone/nop/blob/main/httpconn.go
//

package hotspot

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
	"github.com/bassosimone/sud"
	"golang.org/x/net/http2"
)

// probeConnect dials address through the command's bound dialer.
//
// Returns either a valid [net.Conn] or an error, never both.
func (s *ProbeSession) probeConnect(ctx context.Context, dialer Dialer, address string) (net.Conn, error) {
	t0 := s.TimeNow()
	deadline, _ := ctx.Deadline()
	s.Logger.Info(
		"probeConnectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.String("spanID", s.spanID()),
		slog.Time("t", t0),
	)

	conn, err := dialer.DialContext(ctx, "tcp", address)

	s.Logger.Info(
		"probeConnectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", s.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.String("spanID", s.spanID()),
		slog.Time("t0", t0),
		slog.Time("t", s.TimeNow()),
	)
	return conn, err
}

// probeWatch arranges for conn to be closed when ctx is done, which is
// how [*ProbeSession.Stop] interrupts any in-progress I/O.
//
// Closing the returned conn unregisters the watcher.
func probeWatch(ctx context.Context, conn net.Conn) net.Conn {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	return &watchedConn{Conn: conn, stop: stop}
}

type watchedConn struct {
	net.Conn
	stop func() bool
}

// Close unregisters the context watcher and closes the underlying connection.
func (c *watchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

// probeObserve wraps conn to emit per-I/O debug events.
func (s *ProbeSession) probeObserve(conn net.Conn) net.Conn {
	return &observedConn{
		Conn:     conn,
		laddr:    safeconn.LocalAddr(conn),
		protocol: safeconn.Network(conn),
		raddr:    safeconn.RemoteAddr(conn),
		session:  s,
	}
}

// observedConn observes a [net.Conn].
type observedConn struct {
	net.Conn
	closeonce sync.Once
	laddr     string
	protocol  string
	raddr     string
	session   *ProbeSession
}

// Close implements [net.Conn].
//
// Subsequent calls return [net.ErrClosed].
func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		err = c.Conn.Close()
		c.session.Logger.Info(
			"probeClose",
			slog.Any("err", err),
			slog.String("errClass", c.session.ErrClassifier.Classify(err)),
			slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol),
			slog.String("remoteAddr", c.raddr),
			slog.String("spanID", c.session.spanID()),
			slog.Time("t", c.session.TimeNow()),
		)
	})
	return
}

// Read implements [net.Conn].
func (c *observedConn) Read(buf []byte) (int, error) {
	t0 := c.session.TimeNow()
	count, err := c.Conn.Read(buf)
	c.logIO("probeRead", t0, len(buf), count, err)
	return count, err
}

// Write implements [net.Conn].
func (c *observedConn) Write(data []byte) (int, error) {
	t0 := c.session.TimeNow()
	count, err := c.Conn.Write(data)
	c.logIO("probeWrite", t0, len(data), count, err)
	return count, err
}

func (c *observedConn) logIO(event string, t0 time.Time, size, count int, err error) {
	c.session.Logger.Debug(
		event,
		slog.Int("ioBufferSize", size),
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.session.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.String("spanID", c.session.spanID()),
		slog.Time("t0", t0),
		slog.Time("t", c.session.TimeNow()),
	)
}

// probeHandshake performs the TLS handshake offering h2 and http/1.1.
//
// On failure the connection is closed.
func (s *ProbeSession) probeHandshake(ctx context.Context, conn net.Conn, serverName string) (TLSConn, error) {
	config := &tls.Config{
		NextProtos: []string{"h2", "http/1.1"},
		RootCAs:    s.RootCAs,
		ServerName: serverName,
		Time:       s.TimeNow,
	}
	engine := s.TLSEngine
	tconn := engine.Client(conn, config)

	t0 := s.TimeNow()
	deadline, _ := ctx.Deadline()
	s.Logger.Info(
		"probeTLSHandshakeStart",
		slog.Time("deadline", deadline),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", s.spanID()),
		slog.Time("t", t0),
		slog.String("tlsEngineName", engine.Name()),
		slog.Any("tlsOfferedProtocols", config.NextProtos),
		slog.String("tlsParrot", engine.Parrot()),
		slog.String("tlsServerName", config.ServerName),
	)

	err := tconn.HandshakeContext(ctx)
	state := tconn.ConnectionState()

	s.Logger.Info(
		"probeTLSHandshakeDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", s.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", s.spanID()),
		slog.Time("t0", t0),
		slog.Time("t", s.TimeNow()),
		slog.String("tlsEngineName", engine.Name()),
		slog.String("tlsNegotiatedProtocol", state.NegotiatedProtocol),
		slog.String("tlsParrot", engine.Parrot()),
		slog.String("tlsServerName", config.ServerName),
		slog.String("tlsVersion", tls.VersionName(state.Version)),
	)

	if err != nil {
		tconn.Close()
		return nil, err
	}
	return tconn, nil
}

// probeTransport returns a transport that reuses conn exactly once and
// the function releasing the transport idle connections.
//
// The negotiated ALPN selects HTTP/2 or HTTP/1.1.
func probeTransport(conn net.Conn, alpn string) (http.RoundTripper, func()) {
	dialer := sud.NewSingleUseDialer(conn)
	switch alpn {
	case "h2":
		txp := &http2.Transport{
			DialTLSContext:     dialer.DialTLSContext,
			DisableCompression: false,
		}
		return txp, txp.CloseIdleConnections

	default:
		txp := &http.Transport{
			DialContext:        dialer.DialContext,
			DialTLSContext:     dialer.DialContext,
			DisableKeepAlives:  true,
			DisableCompression: false,
		}
		return txp, txp.CloseIdleConnections
	}
}

// probeRoundTrip performs the round trip emitting span events.
func (s *ProbeSession) probeRoundTrip(txp http.RoundTripper, conn net.Conn, req *http.Request) (*http.Response, error) {
	t0 := s.TimeNow()
	deadline, _ := req.Context().Deadline()
	s.Logger.Info(
		"probeRoundTripStart",
		slog.Time("deadline", deadline),
		slog.String("httpMethod", req.Method),
		slog.String("httpUrl", req.URL.String()),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", s.spanID()),
		slog.Time("t", t0),
	)

	resp, err := txp.RoundTrip(req)

	var statusCode int
	if resp != nil {
		statusCode = resp.StatusCode
	}
	s.Logger.Info(
		"probeRoundTripDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", s.ErrClassifier.Classify(err)),
		slog.String("httpMethod", req.Method),
		slog.String("httpUrl", req.URL.String()),
		slog.Int("httpResponseStatusCode", statusCode),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", s.spanID()),
		slog.Time("t0", t0),
		slog.Time("t", s.TimeNow()),
	)
	return resp, err
}
