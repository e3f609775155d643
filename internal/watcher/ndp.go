// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package watcher

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/mdlayher/ndp"

	"grimm.is/sleepproxy/internal/ipaddr"
)

// ndpProbeTimeout bounds how long NDPProbe waits for a Neighbor
// Advertisement before concluding the cache fallback found nothing.
const ndpProbeTimeout = 300 * time.Millisecond

// NDPProbe issues an unsolicited Neighbor Solicitation for target and
// reports whether a Neighbor Advertisement for it arrives. This is
// the watcher's fallback when the kernel's IPv6 neighbour cache has
// no entry yet for an address that may still be live (open
// question: IPv6 duplicate probing via neighbour table).
func NDPProbe(ifi *net.Interface, target ipaddr.Address) (bool, error) {
	addr, ok := netip.AddrFromSlice(target.IP.To16())
	if !ok {
		return false, fmt.Errorf("ndp probe: %s is not a valid IPv6 address", target.Pure())
	}
	addr = addr.Unmap()

	conn, _, err := ndp.Listen(ifi, ndp.LinkLocal)
	if err != nil {
		return false, fmt.Errorf("ndp probe: listen on %s: %w", ifi.Name, err)
	}
	defer conn.Close()

	dst, err := ndp.SolicitedNodeMulticast(addr)
	if err != nil {
		return false, fmt.Errorf("ndp probe: solicited-node multicast for %s: %w", target.Pure(), err)
	}

	msg := &ndp.NeighborSolicitation{
		TargetAddress: addr,
		Options: []ndp.Option{
			&ndp.LinkLayerAddress{Direction: ndp.Source, Addr: ifi.HardwareAddr},
		},
	}
	if err := conn.WriteTo(msg, nil, dst); err != nil {
		return false, fmt.Errorf("ndp probe: send solicitation: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(ndpProbeTimeout))
	for {
		reply, _, _, err := conn.ReadFrom()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return false, nil
			}
			return false, fmt.Errorf("ndp probe: read reply: %w", err)
		}
		if na, ok := reply.(*ndp.NeighborAdvertisement); ok && na.TargetAddress == addr {
			return true, nil
		}
	}
}
