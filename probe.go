// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bassosimone/runtimex"
)

// ProbeCompletion receives the outcome of a [*ProbeSession].
//
// Exactly one of body and err is meaningful: on success body contains
// the accumulated response body and err is nil.
type ProbeCompletion func(body []byte, err error)

// ProbeSession is the auxiliary HTTP request issued while presenting the
// authentication UI for a network.
//
// The request is bound to the [*Command] that triggered it: it dials
// through the command's Dialer so that it leaves via the network being
// evaluated. A session runs at most once.
//
// All fields are safe to modify after construction but before
// [*ProbeSession.Start]. Construct using [NewProbeSession].
type ProbeSession struct {
	// Dialer is used when the command does not carry its own Dialer.
	//
	// Set by [NewProbeSession] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewProbeSession] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewProbeSession] to the user-provided logger.
	Logger SLogger

	// MaxBodySize is the maximum number of body bytes to accumulate.
	//
	// Set by [NewProbeSession] from [Policy.ProbeMaxBodySize].
	MaxBodySize int64

	// Method is the HTTP method.
	//
	// Set by [NewProbeSession] from [Policy.ProbeMethod].
	Method string

	// Resolver resolves the URL host. When nil the Dialer resolves.
	//
	// Set by [NewProbeSession] from [Config.Resolver].
	Resolver Resolver

	// RootCAs overrides the system roots for https probes.
	//
	// Set by [NewProbeSession] to nil.
	RootCAs *x509.CertPool

	// TLSEngine performs the handshake of https probes.
	//
	// Set by [NewProbeSession] to [TLSEngineStdlib].
	TLSEngine TLSEngine

	// Timeout bounds the whole probe when positive.
	//
	// Set by [NewProbeSession] from [Policy.ProbeTimeout].
	Timeout time.Duration

	// TimeNow is the function to get the current time.
	//
	// Set by [NewProbeSession] from [Config.TimeNow].
	TimeNow func() time.Time

	// URL is the URL to fetch.
	//
	// Set by [NewProbeSession] from [Policy.ProbeURL].
	URL *url.URL

	// buffer accumulates the response body. Owned by the worker goroutine.
	buffer bytes.Buffer

	// cmd is the command the session is bound to.
	cmd *Command

	// done is closed when the worker goroutine exits.
	done chan struct{}

	// onDone is the completion callback.
	onDone ProbeCompletion

	// mu protects cancel, fired, started, and stopped.
	mu sync.Mutex

	// cancel cancels the worker context.
	cancel context.CancelFunc

	// fired indicates that onDone has been invoked.
	fired bool

	// started indicates that Start has been called.
	started bool

	// stopped indicates that Stop has been called.
	stopped bool
}

// NewProbeSession creates a [*ProbeSession] fetching [Policy.ProbeURL].
//
// The onDone callback is invoked at most once, on the worker goroutine,
// and must not call [*ProbeSession.Stop]. It should only hand the outcome
// over to the [*Queue].
func NewProbeSession(cfg *Config, policy *Policy, logger SLogger, onDone ProbeCompletion) (*ProbeSession, error) {
	runtimex.Assert(onDone != nil)
	URL, err := policy.probeURL()
	if err != nil {
		return nil, err
	}
	return &ProbeSession{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		MaxBodySize:   policy.ProbeMaxBodySize,
		Method:        policy.ProbeMethod,
		Resolver:      cfg.Resolver,
		RootCAs:       nil,
		TLSEngine:     TLSEngineStdlib{},
		Timeout:       policy.ProbeTimeout,
		TimeNow:       cfg.TimeNow,
		URL:           URL,
		done:          make(chan struct{}),
		onDone:        onDone,
	}, nil
}

// Start issues the request on a dedicated goroutine.
//
// Calling Start more than once panics. Calling Start after Stop is a no-op.
func (s *ProbeSession) Start(ctx context.Context, cmd *Command) {
	runtimex.Assert(cmd != nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	runtimex.Assert(!s.started)
	s.started = true
	s.cmd = cmd
	if s.stopped {
		return
	}

	var cancel context.CancelFunc
	if s.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	s.cancel = cancel
	go s.run(ctx)
}

// Stop cancels an in-flight probe and releases its transport resources.
//
// Once Stop returns the completion callback has either already run or
// will never run. Stop is idempotent.
func (s *ProbeSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	if !s.started {
		close(s.done)
	}
}

// Done returns a channel closed once the worker goroutine has exited, or
// once Stop is called on a session that was never started.
func (s *ProbeSession) Done() <-chan struct{} {
	return s.done
}

// Command returns the command the session is bound to, if started.
func (s *ProbeSession) Command() *Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd
}

// Network returns the network of the bound command, if any.
func (s *ProbeSession) Network() *Network {
	if cmd := s.Command(); cmd != nil {
		return cmd.Network
	}
	return nil
}

func (s *ProbeSession) spanID() string {
	if s.cmd != nil {
		return s.cmd.ID
	}
	return ""
}

func (s *ProbeSession) run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	t0 := s.TimeNow()
	deadline, _ := ctx.Deadline()
	s.Logger.Info(
		"probeStart",
		slog.Time("deadline", deadline),
		slog.String("httpMethod", s.Method),
		slog.String("httpUrl", s.URL.String()),
		slog.Any("network", s.cmd.Network),
		slog.String("spanID", s.spanID()),
		slog.Time("t", t0),
	)

	err := s.fetch(ctx)

	s.Logger.Info(
		"probeDone",
		slog.Int("bodySize", s.buffer.Len()),
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", s.ErrClassifier.Classify(err)),
		slog.String("httpMethod", s.Method),
		slog.String("httpUrl", s.URL.String()),
		slog.String("spanID", s.spanID()),
		slog.Time("t0", t0),
		slog.Time("t", s.TimeNow()),
	)

	var body []byte
	if err == nil {
		body = bytes.Clone(s.buffer.Bytes())
	}
	s.complete(body, err)
}

func (s *ProbeSession) complete(body []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.fired {
		return
	}
	s.fired = true
	s.onDone(body, err)
}

// errProbeNoAddresses indicates that resolution returned nothing.
var errProbeNoAddresses = errors.New("hotspot: probe host resolved to no addresses")

func (s *ProbeSession) fetch(ctx context.Context) error {
	// 1. Select the connectivity context of the command
	dialer := s.Dialer
	if s.cmd.Dialer != nil {
		dialer = s.cmd.Dialer
	}

	// 2. Resolve through the same connectivity context
	host := s.URL.Hostname()
	addrs, err := s.probeResolve(ctx, dialer, host)
	if err != nil {
		return err
	}

	// 3. Connect and make sure ctx interrupts any I/O
	conn, err := s.probeDialAny(ctx, dialer, addrs, s.probePort())
	if err != nil {
		return err
	}
	conn = s.probeObserve(probeWatch(ctx, conn))

	// 4. Handshake for https
	var alpn string
	if s.URL.Scheme == "https" {
		tconn, err := s.probeHandshake(ctx, conn, host)
		if err != nil {
			return err
		}
		conn, alpn = tconn, tconn.ConnectionState().NegotiatedProtocol
	}

	// 5. Round trip over the established connection
	txp, closeIdle := probeTransport(conn, alpn)
	defer closeIdle()
	defer conn.Close()

	req, err := http.NewRequestWithContext(ctx, s.Method, s.URL.String(), http.NoBody)
	if err != nil {
		return err
	}
	resp, err := s.probeRoundTrip(txp, conn, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 6. Accumulate the body
	return s.probeAccumulate(ctx, resp.Body, s.MaxBodySize)
}

func (s *ProbeSession) probePort() string {
	if port := s.URL.Port(); port != "" {
		return port
	}
	if s.URL.Scheme == "https" {
		return "443"
	}
	return "80"
}

func (s *ProbeSession) probeResolve(ctx context.Context, dialer Dialer, host string) ([]string, error) {
	if net.ParseIP(host) != nil || s.Resolver == nil {
		return []string{host}, nil
	}
	addrs, err := s.Resolver.LookupHost(ctx, dialer, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) <= 0 {
		return nil, errProbeNoAddresses
	}
	return addrs, nil
}

func (s *ProbeSession) probeDialAny(ctx context.Context, dialer Dialer, addrs []string, port string) (net.Conn, error) {
	var errv []error
	for _, addr := range addrs {
		conn, err := s.probeConnect(ctx, dialer, net.JoinHostPort(addr, port))
		if err == nil {
			return conn, nil
		}
		errv = append(errv, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errv...)
}
