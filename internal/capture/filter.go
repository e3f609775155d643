// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package capture

import (
	"fmt"
	"strconv"
	"strings"

	"grimm.is/sleepproxy/internal/ipaddr"
)

// BuildFilter composes the BPF expression the orchestrator installs
// on the capture handle: trigger on a TCP packet destined for any of
// addrs' pure addresses, to any of ports.
func BuildFilter(addrs []ipaddr.Address, ports []int) string {
	hosts := make([]string, len(addrs))
	for i, a := range addrs {
		hosts[i] = a.Pure()
	}
	portStrs := make([]string, len(ports))
	for i, p := range ports {
		portStrs[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("tcp and dst host (%s) and dst port (%s)",
		strings.Join(hosts, " or "), strings.Join(portStrs, " or "))
}
