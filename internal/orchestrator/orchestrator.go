// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package orchestrator runs one impersonate-and-wake episode:
// install the firewall/IP plan, listen for the trigger SYN, block
// ICMP toward the client, release the plan so the real host can
// reclaim its address, send the Wake-on-LAN magic packet, then ping
// the woken host until it answers or the retry budget runs out.
package orchestrator

import (
	"context"
	"fmt"
	"net"

	"grimm.is/sleepproxy/internal/capture"
	"grimm.is/sleepproxy/internal/catcher"
	"grimm.is/sleepproxy/internal/config"
	"grimm.is/sleepproxy/internal/errors"
	"grimm.is/sleepproxy/internal/firewall"
	"grimm.is/sleepproxy/internal/guard"
	"grimm.is/sleepproxy/internal/ipaddr"
	"grimm.is/sleepproxy/internal/logging"
	"grimm.is/sleepproxy/internal/netutil"
	"grimm.is/sleepproxy/internal/procutil"
	"grimm.is/sleepproxy/internal/signalbridge"
	"grimm.is/sleepproxy/internal/watcher"
	"grimm.is/sleepproxy/internal/wol"
)

// Run executes one episode for ep: install the plan, wait for the
// trigger, wake the host, and ping-wait for it to come up. It reports
// whether the host answered a ping before ep.PingTries was exhausted;
// a non-nil error means the episode never reached the ping phase at
// all (configuration, acquisition, capture, duplicate-address or signal).
func Run(ctx context.Context, ep config.Episode, runner procutil.Runner, bridge *signalbridge.Bridge, logger *logging.Logger) (bool, error) {
	if err := ep.Validate(); err != nil {
		return false, err
	}
	// Resolve every external tool up front so a missing one surfaces as
	// a configuration error before any guard is installed.
	tools := []string{"ip"}
	for _, a := range ep.Addresses {
		tools = append(tools, procutil.IptablesTool(a), procutil.PingTool(a))
	}
	for _, name := range tools {
		if _, err := procutil.ResolvePath(name); err != nil {
			return false, errors.Wrap(err, errors.KindConfig, "resolve tool path")
		}
	}
	logger.Info("starting episode", "iface", ep.Interface, "mac", netutil.FormatMAC(ep.MAC), "addresses", len(ep.Addresses))

	var plan guard.List
	if err := firewall.Build(ctx, runner, logger, &plan, ep.Interface, ep.Addresses, ep.Ports); err != nil {
		return false, err
	}

	trigger, err := waitAndListen(ep, bridge, logger)
	if err != nil {
		plan.ReleaseAll(logger)
		return false, err
	}
	logger.Info("got something", "src", trigger.SrcIP.String(), "dst", trigger.DstIP.String())

	clientAddr, err := ipaddr.Parse(trigger.SrcIP.String())
	if err != nil {
		plan.ReleaseAll(logger)
		return false, errors.Wrap(err, errors.KindCapture, "parse trigger source address")
	}
	destAddr, err := ipaddr.Parse(trigger.DstIP.String())
	if err != nil {
		plan.ReleaseAll(logger)
		return false, errors.Wrap(err, errors.KindCapture, "parse trigger destination address")
	}

	// Block ICMP toward the client before releasing the plan, so the
	// pretender never gets a window to tell the client its destination
	// is gone while the real host is still waking up.
	icmpGuard, err := guard.Acquire("block-icmp-client", firewall.BlockICMPToClient(ctx, runner, ep.Interface, clientAddr))
	if err != nil {
		plan.ReleaseAll(logger)
		return false, err
	}
	defer icmpGuard.Release(logger)

	plan.ReleaseAll(logger)

	if err := wol.Send(ep.Interface, ep.MAC); err != nil {
		logger.Warn("failed to send wake-on-lan magic packet", "mac", netutil.FormatMAC(ep.MAC), "error", err)
	}

	return pingAndWait(ctx, runner, bridge, logger, ep.Interface, destAddr, ep.PingTries), nil
}

// waitAndListen opens a capture handle on "any", registers it with
// bridge and a duplicate-address watcher per claimed address, and
// blocks until the trigger SYN arrives or the loop ends some other
// way. Its own guards (the registry entry and the watchers) are torn
// down before it returns, mirroring the function-scope lifetime the
// original implementation gives them.
func waitAndListen(ep config.Episode, bridge *signalbridge.Bridge, logger *logging.Logger) (*catcher.Trigger, error) {
	engine, err := capture.Open("any")
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	var session guard.List
	defer session.ReleaseAll(logger)

	if err := session.Acquire(logger, "registry-entry", bridge.Register(engine)); err != nil {
		return nil, err
	}

	ifi, err := net.InterfaceByName(ep.Interface)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindConfig, "lookup interface %s", ep.Interface)
	}
	for _, a := range ep.Addresses {
		w := watcher.New(ifi, a, engine, watcher.DefaultChecker, logger)
		if err := session.Acquire(logger, fmt.Sprintf("watcher:%s", a.Pure()), watcher.AsGuard(w)); err != nil {
			return nil, err
		}
	}

	bpf := capture.BuildFilter(ep.Addresses, ep.Ports)
	logger.Info("listening with filter", "filter", bpf)
	if err := engine.SetFilter(bpf); err != nil {
		return nil, err
	}

	catch := catcher.New(engine.LinkType(), logger)
	reason := engine.Loop(catch.Sink)

	switch reason {
	case capture.ReasonDuplicateAddress:
		return nil, errors.Errorf(errors.KindDuplicateAddress, "one of these addresses is owned by another machine")
	case capture.ReasonSignal:
		return nil, errors.New(errors.KindSignal, "received signal while capturing")
	case capture.ReasonUnset:
		logger.Warn("no reason given why capture stopped")
	}

	trigger := catch.Trigger()
	if trigger == nil {
		return nil, errors.New(errors.KindCapture, "got nothing while capturing")
	}
	return trigger, nil
}

// pingAndWait spawns ping (or ping6, chosen by target's family) against
// target's bindable form on iface up to tries times, stopping early if
// bridge observes a signal. It reports whether any attempt succeeded.
func pingAndWait(ctx context.Context, runner procutil.Runner, bridge *signalbridge.Bridge, logger *logging.Logger, iface string, target ipaddr.Address, tries uint) bool {
	tool := procutil.PingTool(target)
	bindable := target.Bindable(iface)
	logger.Info("pinging woken host", "cmd", tool, "target", bindable, "tries", tries)
	for i := uint(0); i < tries && !bridge.IsSignalled(); i++ {
		if err := procutil.Exec(ctx, runner, tool, "-c", "1", bindable); err == nil {
			return true
		}
	}
	logger.Error("failed to bring up host after ping attempts", "target", bindable, "tries", tries)
	return false
}
