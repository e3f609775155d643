// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux
// +build !linux

package network

import (
	"fmt"
	"net"
)

// NeighbourEntry is one row of the kernel neighbour table.
type NeighbourEntry struct {
	IP           net.IP
	HardwareAddr net.HardwareAddr
	Iface        string
}

// Family selects which address family LiveNeighbours queries.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

// LiveNeighbours is unsupported outside Linux; netlink is Linux-only.
func LiveNeighbours(iface string, family Family) ([]NeighbourEntry, error) {
	return nil, fmt.Errorf("netlink neighbour lookup unsupported on this platform")
}
