//go:build linux

// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// NewInterfaceDialer returns a [Dialer] whose sockets are bound to the
// named network interface, so that traffic leaves through that interface
// regardless of the routing table.
//
// On Linux this uses SO_BINDTODEVICE, which requires CAP_NET_RAW.
func NewInterfaceDialer(ifname string) Dialer {
	return &interfaceDialer{
		dialer: &net.Dialer{
			Control: func(network, address string, rc syscall.RawConn) error {
				var serr error
				err := rc.Control(func(fd uintptr) {
					serr = unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifname)
				})
				if err != nil {
					return err
				}
				if serr != nil {
					return fmt.Errorf("%w: %s: %w", ErrNoSuchInterface, ifname, serr)
				}
				return nil
			},
		},
	}
}

type interfaceDialer struct {
	dialer *net.Dialer
}

// DialContext implements [Dialer].
func (d *interfaceDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d.dialer.DialContext(ctx, network, address)
}
