//go:build !linux

// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// NewInterfaceDialer returns a [Dialer] whose sockets are bound to an
// address of the named network interface.
func NewInterfaceDialer(ifname string) Dialer {
	return &interfaceDialer{ifname: ifname}
}

type interfaceDialer struct {
	ifname string
}

// DialContext implements [Dialer].
func (d *interfaceDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	ip, err := d.localIP(strings.HasSuffix(network, "6"))
	if err != nil {
		return nil, err
	}
	dialer := &net.Dialer{}
	switch {
	case strings.HasPrefix(network, "udp"):
		dialer.LocalAddr = &net.UDPAddr{IP: ip}
	default:
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}
	return dialer.DialContext(ctx, network, address)
}

func (d *interfaceDialer) localIP(wantIPv6 bool) (net.IP, error) {
	iface, err := net.InterfaceByName(d.ifname)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoSuchInterface, d.ifname, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoSuchInterface, d.ifname, err)
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		if isIPv4 := ipnet.IP.To4() != nil; isIPv4 != wantIPv6 {
			return ipnet.IP, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: no suitable address", ErrNoSuchInterface, d.ifname)
}
