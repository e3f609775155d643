// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package watcher

import (
	"net"

	"grimm.is/sleepproxy/internal/ipaddr"
	"grimm.is/sleepproxy/internal/network"
)

// Checker decides whether target is currently held by another station
// on ifi. Production code dispatches on address family; tests
// substitute a canned Checker.
type Checker func(ifi *net.Interface, target ipaddr.Address) (bool, error)

// DefaultChecker probes IPv4 addresses with an ARP request and IPv6
// addresses against the live neighbour table, falling back to a
// Neighbor Solicitation when the cache is empty.
func DefaultChecker(ifi *net.Interface, target ipaddr.Address) (bool, error) {
	if target.Family == ipaddr.V4 {
		return ARPProbe(ifi, target)
	}
	return checkNeighbourTable(ifi, target)
}

func checkNeighbourTable(ifi *net.Interface, target ipaddr.Address) (bool, error) {
	entries, err := network.LiveNeighbours(ifi.Name, network.FamilyV6)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IP.Equal(target.IP) {
			return true, nil
		}
	}
	if len(entries) == 0 {
		return NDPProbe(ifi, target)
	}
	return false, nil
}
