// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probeOutcome is the argument of a [ProbeCompletion].
type probeOutcome struct {
	body []byte
	err  error
}

// newTestProbe returns a [*ProbeSession] fetching URL whose completions
// are sent on the returned channel.
func newTestProbe(t *testing.T, URL string, logger SLogger) (*ProbeSession, <-chan probeOutcome) {
	t.Helper()
	ch := make(chan probeOutcome, 4)
	session, err := NewProbeSession(NewConfig(), newProbePolicy(URL), logger, func(body []byte, err error) {
		ch <- probeOutcome{body, err}
	})
	require.NoError(t, err)
	t.Cleanup(session.Stop)
	return session, ch
}

// newProbeCommand returns a presentUI command for the given network.
func newProbeCommand(network *Network) *Command {
	cmd := NewCommand(CommandPresentUI, nil)
	cmd.Network = network
	return cmd
}

// awaitOutcome waits for the probe completion.
func awaitOutcome(t *testing.T, ch <-chan probeOutcome) probeOutcome {
	t.Helper()
	select {
	case outcome := <-ch:
		return outcome
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for probe completion")
		return probeOutcome{}
	}
}

func TestProbeSessionHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>Success</html>"))
	}))
	defer srv.Close()

	logger, records := newCapturingLogger()
	session, ch := newTestProbe(t, srv.URL, logger)
	cmd := newProbeCommand(&Network{SSID: "cafe"})
	session.Start(context.Background(), cmd)

	outcome := awaitOutcome(t, ch)
	require.NoError(t, outcome.err)
	assert.Equal(t, "<html>Success</html>", string(outcome.body))
	assert.Same(t, cmd, session.Command())
	assert.Same(t, cmd.Network, session.Network())

	<-session.Done()
	msgs := recordMessages(*records)
	for _, msg := range []string{
		"probeStart",
		"probeConnectStart",
		"probeConnectDone",
		"probeRoundTripStart",
		"probeRoundTripDone",
		"probeBodyStreamStart",
		"probeBodyStreamDone",
		"probeDone",
	} {
		assert.Contains(t, msgs, msg)
	}
	assert.NotContains(t, msgs, "probeTLSHandshakeStart")

	// Every probe event belongs to the command span
	for _, record := range *records {
		if spanID, found := recordAttr(record, "spanID"); found {
			assert.Equal(t, cmd.ID, spanID.String(), record.Message)
		}
	}
}

// Any HTTP status counts as a transport success.
func TestProbeSessionHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "captive", http.StatusForbidden)
	}))
	defer srv.Close()

	session, ch := newTestProbe(t, srv.URL, DefaultSLogger())
	session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))

	outcome := awaitOutcome(t, ch)
	require.NoError(t, outcome.err)
	assert.Contains(t, string(outcome.body), "captive")
}

// A TLS server offering h2 is fetched using HTTP/2.
func TestProbeSessionHTTPS(t *testing.T) {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Proto))
	}))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	logger, records := newCapturingLogger()
	session, ch := newTestProbe(t, srv.URL, logger)
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	session.RootCAs = pool
	session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))

	outcome := awaitOutcome(t, ch)
	require.NoError(t, outcome.err)
	assert.Equal(t, "HTTP/2.0", string(outcome.body))

	<-session.Done()
	record := findRecord(t, *records, "probeTLSHandshakeDone")
	alpn, _ := recordAttr(record, "tlsNegotiatedProtocol")
	assert.Equal(t, "h2", alpn.String())
}

// An untrusted certificate fails the probe.
func TestProbeSessionHTTPSUntrusted(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	session, ch := newTestProbe(t, srv.URL, DefaultSLogger())
	session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))

	outcome := awaitOutcome(t, ch)
	require.Error(t, outcome.err)
	assert.Nil(t, outcome.body)
}

// Bodies larger than the cap fail.
func TestProbeSessionBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 3*probeChunkSize)))
	}))
	defer srv.Close()

	session, ch := newTestProbe(t, srv.URL, DefaultSLogger())
	session.MaxBodySize = probeChunkSize
	session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))

	outcome := awaitOutcome(t, ch)
	assert.ErrorIs(t, outcome.err, ErrProbeBodyTooLarge)
	assert.Nil(t, outcome.body)
}

// The command dialer takes precedence over the config dialer.
func TestProbeSessionCommandDialer(t *testing.T) {
	errDial := errors.New("no route through the candidate network")
	var dialed atomic.Value
	session, ch := newTestProbe(t, "http://10.0.0.1/", DefaultSLogger())
	cmd := newProbeCommand(&Network{SSID: "cafe"})
	cmd.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			dialed.Store(network + " " + address)
			return nil, errDial
		},
	}
	session.Start(context.Background(), cmd)

	outcome := awaitOutcome(t, ch)
	assert.ErrorIs(t, outcome.err, errDial)
	assert.Equal(t, "tcp 10.0.0.1:80", dialed.Load())
}

// fakeResolver is a [Resolver] returning fixed addresses.
type fakeResolver struct {
	addrs  []string
	err    error
	dialer atomic.Value
}

func (r *fakeResolver) LookupHost(ctx context.Context, dialer Dialer, domain string) ([]string, error) {
	r.dialer.Store(dialer)
	return r.addrs, r.err
}

// Domain names go through the resolver with the command dialer.
func TestProbeSessionResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Host))
	}))
	defer srv.Close()
	srvURL, err := url.Parse(srv.URL)
	require.NoError(t, err)
	URL := "http://captive.example:" + srvURL.Port() + "/"

	t.Run("resolved", func(t *testing.T) {
		resolver := &fakeResolver{addrs: []string{"127.0.0.1"}}
		session, ch := newTestProbe(t, URL, DefaultSLogger())
		session.Resolver = resolver
		cmd := newProbeCommand(&Network{SSID: "cafe"})
		cmd.Dialer = &net.Dialer{}
		session.Start(context.Background(), cmd)

		outcome := awaitOutcome(t, ch)
		require.NoError(t, outcome.err)
		assert.Equal(t, "captive.example:"+srvURL.Port(), string(outcome.body))
		assert.Same(t, cmd.Dialer, resolver.dialer.Load())
	})

	t.Run("no addresses", func(t *testing.T) {
		session, ch := newTestProbe(t, URL, DefaultSLogger())
		session.Resolver = &fakeResolver{}
		session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))
		assert.ErrorIs(t, awaitOutcome(t, ch).err, errProbeNoAddresses)
	})

	t.Run("failure", func(t *testing.T) {
		errLookup := errors.New("no such host")
		session, ch := newTestProbe(t, URL, DefaultSLogger())
		session.Resolver = &fakeResolver{err: errLookup}
		session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))
		assert.ErrorIs(t, awaitOutcome(t, ch).err, errLookup)
	})
}

// Every address is tried in order until one connects.
func TestProbeSessionDialAny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	srvURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	var attempts []string
	session, ch := newTestProbe(t, "http://captive.example:"+srvURL.Port()+"/", DefaultSLogger())
	session.Resolver = &fakeResolver{addrs: []string{"10.0.0.1", "127.0.0.1"}}
	cmd := newProbeCommand(&Network{SSID: "cafe"})
	cmd.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			attempts = append(attempts, address)
			if strings.HasPrefix(address, "10.") {
				return nil, errors.New("unreachable")
			}
			return (&net.Dialer{}).DialContext(ctx, network, address)
		},
	}
	session.Start(context.Background(), cmd)

	require.NoError(t, awaitOutcome(t, ch).err)
	<-session.Done()
	assert.Equal(t, []string{"10.0.0.1:" + srvURL.Port(), "127.0.0.1:" + srvURL.Port()}, attempts)
}

// The timeout bounds the whole probe.
func TestProbeSessionTimeout(t *testing.T) {
	srv, _ := newBlockingServer(t)
	session, ch := newTestProbe(t, srv.URL, DefaultSLogger())
	session.Timeout = 50 * time.Millisecond
	session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))

	outcome := awaitOutcome(t, ch)
	require.Error(t, outcome.err)
	assert.Nil(t, outcome.body)
}

// Stop is idempotent and the completion never fires after it.
func TestProbeSessionStop(t *testing.T) {
	srv, arrived := newBlockingServer(t)
	session, ch := newTestProbe(t, srv.URL, DefaultSLogger())
	session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))
	awaitArrival(t, arrived)

	session.Stop()
	session.Stop()
	awaitProbeDone(t, session)
	session.Stop()

	select {
	case outcome := <-ch:
		t.Fatalf("completion after stop: %v", outcome.err)
	case <-time.After(50 * time.Millisecond):
	}
}

// A session stopped before starting never runs.
func TestProbeSessionStopBeforeStart(t *testing.T) {
	var dialed atomic.Bool
	session, ch := newTestProbe(t, "http://10.0.0.1/", DefaultSLogger())
	session.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			dialed.Store(true)
			return nil, errors.New("unexpected dial")
		},
	}
	session.Stop()
	awaitProbeDone(t, session)

	session.Start(context.Background(), newProbeCommand(&Network{SSID: "cafe"}))
	select {
	case <-ch:
		t.Fatal("completion after stop")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, dialed.Load())
}

func TestProbeSessionStartTwice(t *testing.T) {
	session, _ := newTestProbe(t, "http://10.0.0.1/", DefaultSLogger())
	session.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("unreachable")
		},
	}
	cmd := newProbeCommand(&Network{SSID: "cafe"})
	session.Start(context.Background(), cmd)
	assert.Panics(t, func() { session.Start(context.Background(), cmd) })
}

func TestNewProbeSessionInvalidURL(t *testing.T) {
	policy := DefaultPolicy()
	policy.ProbeURL = "gopher://example.com/"
	_, err := NewProbeSession(NewConfig(), policy, DefaultSLogger(), func([]byte, error) {})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
