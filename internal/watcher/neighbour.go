// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package watcher implements the Duplicate-Address Watcher: a
// per-IP background probe that asks, on a fixed cadence, whether a
// claimed address is already owned by another station on the LAN,
// and requests the owning capture loop to stop the moment it finds
// one.
package watcher

import (
	"strings"

	"grimm.is/sleepproxy/internal/ipaddr"
)

var duplicateStates = map[string]bool{
	"STALE":     true,
	"REACHABLE": true,
	"PROBE":     true,
}

// HasNeighbourIP reports whether snapshot — text in the form emitted
// by `ip -6 neigh` ("<addr> dev <iface> lladdr <mac> [router] <state>"
// per line) — contains a live entry for target on iface. An entry
// whose interface doesn't match, or whose state isn't one of
// STALE/REACHABLE/PROBE, does not count.
func HasNeighbourIP(iface string, target ipaddr.Address, snapshot string) bool {
	for _, line := range strings.Split(snapshot, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		devIdx := -1
		for i, f := range fields {
			if f == "dev" {
				devIdx = i
				break
			}
		}
		if devIdx < 0 || devIdx+1 >= len(fields) {
			continue
		}
		if fields[devIdx+1] != iface {
			continue
		}
		state := fields[len(fields)-1]
		if !duplicateStates[strings.ToUpper(state)] {
			continue
		}
		parsed, err := ipaddr.Parse(fields[0])
		if err != nil {
			continue
		}
		if parsed.IP.Equal(target.IP) {
			return true
		}
	}
	return false
}
