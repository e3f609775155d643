// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ipaddr implements the IP-Address data model: a tagged
// address with a family, prefix length, and optional link-local scope,
// round-trippable to the presentation forms the rest of the tree needs
// — the "pure" form for firewall tools and the "bindable" form for
// ping/socket binding.
package ipaddr

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Family tags whether an Address is IPv4 or IPv6.
type Family int

const (
	V4 Family = iota
	V6
)

func (f Family) String() string {
	if f == V6 {
		return "v6"
	}
	return "v4"
}

// Address is a parsed, validated IP/prefix, optionally scoped to an
// interface for link-local IPv6.
type Address struct {
	Family Family
	IP     net.IP
	Prefix int
	Zone   string // only meaningful for link-local IPv6
}

// Parse accepts "ip/prefix" (and, for a link-local IPv6 address already
// bound to an interface, "ip%zone/prefix") and validates the invariant
// that a v4 address has a 32-bit body with prefix <= 32, and a v6
// address has a 128-bit body with prefix <= 128.
func Parse(s string) (Address, error) {
	zone := ""
	rest := s
	if i := strings.IndexByte(rest, '%'); i >= 0 {
		slash := strings.IndexByte(rest[i:], '/')
		if slash < 0 {
			zone = rest[i+1:]
			rest = rest[:i]
		} else {
			zone = rest[i+1 : i+slash]
			rest = rest[:i] + rest[i+slash:]
		}
	}

	ipPart, prefixPart, hasPrefix := strings.Cut(rest, "/")
	ip := net.ParseIP(ipPart)
	if ip == nil {
		return Address{}, fmt.Errorf("invalid IP address: %q", s)
	}

	v4 := ip.To4() != nil
	family := V4
	maxPrefix := 32
	if !v4 {
		family = V6
		maxPrefix = 128
	}

	prefix := maxPrefix
	if hasPrefix {
		p, err := strconv.Atoi(prefixPart)
		if err != nil {
			return Address{}, fmt.Errorf("invalid prefix in %q: %w", s, err)
		}
		prefix = p
	}
	if prefix < 0 || prefix > maxPrefix {
		return Address{}, fmt.Errorf("prefix %d out of range for %s address %q", prefix, family, s)
	}

	return Address{Family: family, IP: ip, Prefix: prefix, Zone: zone}, nil
}

// IsLinkLocalV6 reports whether a is an IPv6 link-local address
// (fe80::/10), which requires a scope identifier to be bindable.
func (a Address) IsLinkLocalV6() bool {
	return a.Family == V6 && a.IP.IsLinkLocalUnicast()
}

// Pure returns the textual address with any /prefix or %scope suffix
// stripped — suitable for passing to firewall tools.
func (a Address) Pure() string {
	return a.IP.String()
}

// CIDR returns "ip/prefix", the form `ip addr add` expects.
func (a Address) CIDR() string {
	return fmt.Sprintf("%s/%d", a.Pure(), a.Prefix)
}

// Bindable returns the address form acceptable to socket-binding
// tools. It differs from Pure only for IPv6 link-local addresses,
// which need "%iface" appended to be bindable/pingable.
func (a Address) Bindable(iface string) string {
	if a.IsLinkLocalV6() {
		return a.Pure() + "%" + iface
	}
	return a.Pure()
}

// String renders the address the way it was constructed: CIDR form.
func (a Address) String() string {
	return a.CIDR()
}
