// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package firewall builds the Firewall & IP Plan: the rigid,
// per-address sequence of guards an episode installs before it claims
// an address, and tears down again once the trigger SYN arrives.
//
// Every guard kind shells out through procutil, toggling the same
// rule spec between -I (add) and -D (del) so a guard's release is
// always the literal inverse of its acquire.
package firewall

import (
	"context"
	"fmt"

	"grimm.is/sleepproxy/internal/errors"
	"grimm.is/sleepproxy/internal/guard"
	"grimm.is/sleepproxy/internal/ipaddr"
	"grimm.is/sleepproxy/internal/logging"
	"grimm.is/sleepproxy/internal/procutil"
)

// toggle runs iptables/ip6tables with rule (its first element the
// target chain) inserted at the chain head on ActionAdd and removed
// on ActionDel — identical args, differing only in the -I/-D flag,
// so release is always add's literal inverse.
func toggle(ctx context.Context, r procutil.Runner, a ipaddr.Address, rule []string) guard.ActionFunc {
	tool := procutil.IptablesTool(a)
	return func(act guard.Action) error {
		flag, kind := "-I", errors.KindAcquisition
		if act == guard.ActionDel {
			flag, kind = "-D", errors.KindRelease
		}
		args := append([]string{"-w", flag}, rule...)
		if err := procutil.Exec(ctx, r, tool, args...); err != nil {
			return errors.Wrapf(err, kind, "%s %s %s", tool, flag, rule[0])
		}
		return nil
	}
}

// RejectTransport rejects all of proto ("tcp" or "udp") destined for
// a's pure address, INPUT chain.
func RejectTransport(ctx context.Context, r procutil.Runner, iface string, a ipaddr.Address, proto string) guard.ActionFunc {
	rule := []string{"INPUT", "-d", a.Pure(), "-p", proto, "-j", "REJECT"}
	return toggle(ctx, r, a, rule)
}

// DropPort installs the per-service-port hole: despite its name
// (kept for continuity with the design's component table) this
// guard's install action is an ACCEPT for SYNs to port, inserted
// above the Reject-Transport rule by -I chain-head insertion so the
// service port keeps answering through the blanket reject.
func DropPort(ctx context.Context, r procutil.Runner, iface string, a ipaddr.Address, port int) guard.ActionFunc {
	rule := []string{"INPUT", "-d", a.Pure(), "-p", "tcp", "--syn", "--dport", fmt.Sprint(port), "-j", "ACCEPT"}
	return toggle(ctx, r, a, rule)
}

// TempIP assigns/removes a on iface.
func TempIP(ctx context.Context, r procutil.Runner, iface string, a ipaddr.Address) guard.ActionFunc {
	return func(act guard.Action) error {
		verb, kind := "add", errors.KindAcquisition
		if act == guard.ActionDel {
			verb, kind = "del", errors.KindRelease
		}
		if err := procutil.Exec(ctx, r, "ip", addrFamilyFlag(a), "addr", verb, a.CIDR(), "dev", iface); err != nil {
			return errors.Wrapf(err, kind, "ip addr %s %s on %s", verb, a.CIDR(), iface)
		}
		return nil
	}
}

func addrFamilyFlag(a ipaddr.Address) string {
	if a.Family == ipaddr.V6 {
		return "-6"
	}
	return "-4"
}

// BlockICMPToClient drops destination-unreachable ICMP sent toward
// client, OUTPUT chain — the pretender must never tell the client the
// host is gone.
func BlockICMPToClient(ctx context.Context, r procutil.Runner, iface string, client ipaddr.Address) guard.ActionFunc {
	proto, icmpType := "icmp", "destination-unreachable"
	if client.Family == ipaddr.V6 {
		proto, icmpType = "icmpv6", "destination-unreachable"
	}
	rule := []string{"OUTPUT", "-d", client.Pure(), "-p", proto, "--" + proto + "-type", icmpType, "-j", "DROP"}
	return toggle(ctx, r, client, rule)
}

// BlockRST drops RST,ACK originating from a, OUTPUT chain, so the
// impersonator's kernel cannot tear down the client's retransmitted
// connection attempt out from under the real host.
func BlockRST(ctx context.Context, r procutil.Runner, iface string, a ipaddr.Address) guard.ActionFunc {
	rule := []string{"OUTPUT", "-s", a.Pure(), "-p", "tcp", "--tcp-flags", "ALL", "RST,ACK", "-j", "DROP"}
	return toggle(ctx, r, a, rule)
}

// Build installs the full per-address plan for every address
// in addrs, in order, onto list. A failure at any point leaves list
// empty: List.Acquire already rolls back everything installed so far,
// in reverse, before returning the error.
func Build(ctx context.Context, r procutil.Runner, logger *logging.Logger, list *guard.List, iface string, addrs []ipaddr.Address, ports []int) error {
	for _, a := range addrs {
		if err := list.Acquire(logger, fmt.Sprintf("reject-tcp:%s", a.Pure()), RejectTransport(ctx, r, iface, a, "tcp")); err != nil {
			return err
		}
		if err := list.Acquire(logger, fmt.Sprintf("reject-udp:%s", a.Pure()), RejectTransport(ctx, r, iface, a, "udp")); err != nil {
			return err
		}
		for _, p := range ports {
			if err := list.Acquire(logger, fmt.Sprintf("drop-port:%s:%d", a.Pure(), p), DropPort(ctx, r, iface, a, p)); err != nil {
				return err
			}
		}
		if err := list.Acquire(logger, fmt.Sprintf("block-rst:%s", a.Pure()), BlockRST(ctx, r, iface, a)); err != nil {
			return err
		}
		if err := list.Acquire(logger, fmt.Sprintf("temp-ip:%s", a.Pure()), TempIP(ctx, r, iface, a)); err != nil {
			return err
		}
	}
	return nil
}
