// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

// Package network wraps the netlink lookup the duplicate-address
// watcher needs: a live view of the kernel IPv6 neighbour table. IP
// assignment itself stays a shelled `ip addr` invocation
// (internal/procutil); this package only ever reads kernel state,
// never mutates it.
package network

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Family selects which address family LiveNeighbours queries, mirroring
// the unix.AF_INET/AF_INET6 constants netlink.NeighList expects.
type Family int

const (
	FamilyV4 Family = unix.AF_INET
	FamilyV6 Family = unix.AF_INET6
)

// NeighbourEntry is one row of the kernel neighbour table, family-agnostic.
type NeighbourEntry struct {
	IP           net.IP
	HardwareAddr net.HardwareAddr
	Iface        string
}

// LiveNeighbours lists the current neighbour-table entries of family
// for iface via netlink, as a live alternative to the text form
// internal/watcher.HasNeighbourIP parses from `ip -6 neigh` output.
func LiveNeighbours(iface string, family Family) ([]NeighbourEntry, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, fmt.Errorf("interface %s not found: %w", iface, err)
	}

	neighs, err := netlink.NeighList(link.Attrs().Index, int(family))
	if err != nil {
		return nil, fmt.Errorf("failed to list neighbours on %s: %w", iface, err)
	}

	out := make([]NeighbourEntry, 0, len(neighs))
	for _, n := range neighs {
		if n.State&(netlink.NUD_STALE|netlink.NUD_REACHABLE|netlink.NUD_PROBE) == 0 {
			continue
		}
		out = append(out, NeighbourEntry{IP: n.IP, HardwareAddr: n.HardwareAddr, Iface: iface})
	}
	return out, nil
}
