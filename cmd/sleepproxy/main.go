// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// sleepproxy impersonates one or more sleeping LAN hosts, waits for a
// client to try to reach them, wakes the real host over Wake-on-LAN,
// and steps aside once it answers.
//
// Usage:
//
//	sleepproxy -interface eth0 -address 192.168.1.50/24 -address fe80::1/64 \
//	           -port 22 -port 80 -mac 00:11:22:33:44:55 -ping-tries 30
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"grimm.is/sleepproxy/internal/config"
	"grimm.is/sleepproxy/internal/errors"
	"grimm.is/sleepproxy/internal/ipaddr"
	"grimm.is/sleepproxy/internal/logging"
	"grimm.is/sleepproxy/internal/orchestrator"
	"grimm.is/sleepproxy/internal/procutil"
	"grimm.is/sleepproxy/internal/signalbridge"
)

// addressList accumulates repeated -address flag values.
type addressList []string

func (a *addressList) String() string     { return fmt.Sprint([]string(*a)) }
func (a *addressList) Set(v string) error { *a = append(*a, v); return nil }

// portList accumulates repeated -port flag values.
type portList []int

func (p *portList) String() string { return fmt.Sprint([]int(*p)) }
func (p *portList) Set(v string) error {
	var port int
	if _, err := fmt.Sscanf(v, "%d", &port); err != nil {
		return fmt.Errorf("invalid port %q: %w", v, err)
	}
	*p = append(*p, port)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	iface := flag.String("interface", "", "network interface to impersonate on and claim addresses on")
	var addresses addressList
	flag.Var(&addresses, "address", "address (CIDR form) to impersonate; repeatable")
	var ports portList
	flag.Var(&ports, "port", "TCP port to keep answering through the firewall plan; repeatable")
	mac := flag.String("mac", "", "hardware address of the sleeping host to wake")
	pingTries := flag.Uint("ping-tries", 30, "number of pings to attempt before giving up on the woken host")
	jsonLogs := flag.Bool("json-logs", false, "emit logs as JSON instead of text")
	flag.Parse()

	logger := logging.New(logging.Config{Level: logging.LevelInfo, Output: os.Stderr, JSON: *jsonLogs})

	ep, err := buildEpisode(*iface, addresses, ports, *mac, *pingTries)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	bridge := signalbridge.New()
	bridge.Start()
	defer bridge.Stop()

	woke, err := orchestrator.Run(context.Background(), ep, procutil.ExecRunner{}, bridge, logger)
	if err != nil {
		logger.Error("episode failed", "error", err)
		switch errors.GetKind(err) {
		case errors.KindConfig:
			return 1
		case errors.KindDuplicateAddress:
			return 3
		case errors.KindSignal:
			return 4
		default:
			return 2
		}
	}
	if !woke {
		return 5
	}
	return 0
}

func buildEpisode(iface string, addresses addressList, ports portList, macStr string, pingTries uint) (config.Episode, error) {
	ep := config.Episode{Interface: iface, Ports: ports, PingTries: pingTries}

	for _, s := range addresses {
		a, err := parseAddress(s)
		if err != nil {
			return config.Episode{}, err
		}
		ep.Addresses = append(ep.Addresses, a)
	}

	mac, err := config.ParseMAC(macStr)
	if err != nil {
		return config.Episode{}, err
	}
	ep.MAC = mac

	if err := ep.Validate(); err != nil {
		return config.Episode{}, err
	}
	return ep, nil
}

func parseAddress(s string) (ipaddr.Address, error) {
	a, err := ipaddr.Parse(s)
	if err != nil {
		return ipaddr.Address{}, errors.Wrapf(err, errors.KindConfig, "parse address %q", s)
	}
	return a, nil
}
