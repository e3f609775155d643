// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config defines and validates the per-episode configuration
// surface: interface, addresses, ports, target MAC and ping
// retry budget.
package config

import (
	"net"

	"grimm.is/sleepproxy/internal/errors"
	"grimm.is/sleepproxy/internal/ipaddr"
	"grimm.is/sleepproxy/internal/netutil"
)

// Episode is one fully-validated impersonate-and-wake configuration.
type Episode struct {
	Interface string
	Addresses []ipaddr.Address
	Ports     []int
	MAC       net.HardwareAddr
	PingTries uint
}

// Validate checks the invariants an episode needs before any guard is
// installed: a non-empty interface, at
// least one address, at least one port, a 6-byte MAC, and a non-zero
// ping budget.
func (e Episode) Validate() error {
	if e.Interface == "" {
		return errors.New(errors.KindConfig, "interface is required")
	}
	if len(e.Addresses) == 0 {
		return errors.New(errors.KindConfig, "at least one address is required")
	}
	if len(e.Ports) == 0 {
		return errors.New(errors.KindConfig, "at least one port is required")
	}
	for _, p := range e.Ports {
		if p <= 0 || p > 65535 {
			return errors.Errorf(errors.KindConfig, "port %d out of range", p)
		}
	}
	if len(e.MAC) != 6 {
		return errors.Errorf(errors.KindConfig, "mac must be 6 bytes, got %d", len(e.MAC))
	}
	if e.PingTries == 0 {
		return errors.New(errors.KindConfig, "ping_tries must be at least 1")
	}
	return nil
}

// ParseMAC validates s as a hardware address for the -mac flag,
// wrapping the parse failure as a Configuration error.
func ParseMAC(s string) (net.HardwareAddr, error) {
	b, err := netutil.ParseMAC(s)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "parse mac %q", s)
	}
	return net.HardwareAddr(b), nil
}
