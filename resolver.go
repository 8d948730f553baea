//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/nop/blob/main/dnsoverudp.go
// Adapted from: https://github.com/bassosimone/nop/blob/main/dnsexchange.go
// Adapted from: https://github.com/bassosimone/nop/blob/main/dnsovertcp.go
//

package hotspot

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/bassosimone/dnscodec"
	"github.com/bassosimone/dnsoverstream"
	"github.com/bassosimone/minest"
	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
	"github.com/miekg/dns"
)

// Resolver resolves the probe host.
//
// The dialer argument is the connectivity context of the command being
// handled, so that resolution, like the probe itself, goes through the
// network being evaluated.
type Resolver interface {
	LookupHost(ctx context.Context, dialer Dialer, domain string) ([]string, error)
}

// DNSResolver is a [Resolver] querying a specific DNS server, typically
// the one advertised by the captive network, over UDP or TCP.
//
// All fields are safe to modify after construction but before first use.
// Construct using [NewDNSResolver].
type DNSResolver struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewDNSResolver] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewDNSResolver] to the user-provided logger.
	Logger SLogger

	// Protocol is either "udp" or "tcp".
	//
	// Set by [NewDNSResolver] to the user-provided value.
	Protocol string

	// Server is the DNS server endpoint.
	//
	// Set by [NewDNSResolver] to the user-provided value.
	Server netip.AddrPort

	// TimeNow is the function to get the current time.
	//
	// Set by [NewDNSResolver] from [Config.TimeNow].
	TimeNow func() time.Time
}

// NewDNSResolver returns a new [*DNSResolver].
func NewDNSResolver(cfg *Config, protocol string, server netip.AddrPort, logger SLogger) *DNSResolver {
	runtimex.Assert(protocol == "udp" || protocol == "tcp")
	return &DNSResolver{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Protocol:      protocol,
		Server:        server,
		TimeNow:       cfg.TimeNow,
	}
}

var _ Resolver = &DNSResolver{}

// LookupHost implements [Resolver] by sending an A query and returning
// the addresses in the answer.
func (r *DNSResolver) LookupHost(ctx context.Context, dialer Dialer, domain string) ([]string, error) {
	// 1. Dial through the bound network and tie the conn to ctx
	conn, err := dialer.DialContext(ctx, r.Protocol, r.Server.String())
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	defer conn.Close()

	// 2. Prepare the raw message observers
	t0 := r.TimeNow()
	deadline, _ := ctx.Deadline()
	observeQuery := func(rawQuery []byte) {
		r.Logger.Debug(
			"dnsQuery",
			slog.Any("dnsRawQuery", rawQuery),
			slog.String("localAddr", safeconn.LocalAddr(conn)),
			slog.String("protocol", r.Protocol),
			slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
			slog.Time("t", t0),
		)
	}
	observeResponse := func(rawResp []byte) {
		r.Logger.Debug(
			"dnsResponse",
			slog.Any("dnsRawResponse", rawResp),
			slog.String("localAddr", safeconn.LocalAddr(conn)),
			slog.String("protocol", r.Protocol),
			slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
			slog.Time("t0", t0),
			slog.Time("t", r.TimeNow()),
		)
	}

	// 3. Exchange over the existing conn and extract the A records
	r.Logger.Info(
		"dnsLookupStart",
		slog.Time("deadline", deadline),
		slog.String("dnsDomain", domain),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", r.Protocol),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t", t0),
	)
	var addrs []string
	query := dnscodec.NewQuery(domain, dns.TypeA)
	var resp *dnscodec.Response
	switch r.Protocol {
	case "tcp":
		txp := dnsoverstream.NewTransport(
			dnsoverstream.NewStreamOpenerDialerTCP(resolverUnusedDialer{}),
			netip.AddrPortFrom(netip.IPv4Unspecified(), 0),
		)
		txp.ObserveRawQuery = observeQuery
		txp.ObserveRawResponse = observeResponse
		resp, err = txp.ExchangeWithStreamOpener(ctx, dnsoverstream.NewTCPStreamOpener(conn), query)

	default:
		txp := minest.NewDNSOverUDPTransport(resolverUnusedDialer{}, netip.AddrPortFrom(netip.IPv4Unspecified(), 0))
		txp.ObserveRawQuery = observeQuery
		txp.ObserveRawResponse = observeResponse
		resp, err = txp.ExchangeWithConn(ctx, conn, query)
	}
	if err == nil {
		addrs, err = resp.RecordsA()
	}
	r.Logger.Info(
		"dnsLookupDone",
		slog.Any("dnsAddrs", addrs),
		slog.Time("deadline", deadline),
		slog.String("dnsDomain", domain),
		slog.Any("err", err),
		slog.String("errClass", r.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", r.Protocol),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", r.TimeNow()),
	)
	return addrs, err
}

// resolverUnusedDialer is a dialer that panics if DialContext is called.
//
// The transport exchanges over the conn dialed through the bound network
// and must never dial on its own.
type resolverUnusedDialer struct{}

var _ Dialer = resolverUnusedDialer{}

// DialContext implements [Dialer] and always panics.
func (resolverUnusedDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	panic("hotspot: DNS transport must not dial; this is a programming error")
}
