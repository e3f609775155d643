// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package watcher

import (
	"net"
	"time"

	"grimm.is/sleepproxy/internal/capture"
	"grimm.is/sleepproxy/internal/guard"
	"grimm.is/sleepproxy/internal/ipaddr"
	"grimm.is/sleepproxy/internal/logging"
)

// probeInterval is the cadence between duplicate-address probes; the
// design calls for 250-500ms so shutdown latency stays within one
// interval.
const probeInterval = 300 * time.Millisecond

// LoopBreaker is the capture handle a Watcher requests termination
// on. *capture.Engine satisfies it.
type LoopBreaker interface {
	BreakLoop(reason capture.Reason)
}

// Watcher runs Checker on a fixed cadence for one (interface,
// address) pair until it reports a duplicate, or is stopped. State
// machine: idle -> running -> {found-duplicate | stopped}.
type Watcher struct {
	ifi    *net.Interface
	target ipaddr.Address
	handle LoopBreaker
	check  Checker
	logger *logging.Logger
	stop   chan struct{}
	done   chan struct{}
}

// New builds a Watcher for target on ifi, reporting a positive
// detection to handle.
func New(ifi *net.Interface, target ipaddr.Address, handle LoopBreaker, check Checker, logger *logging.Logger) *Watcher {
	if check == nil {
		check = DefaultChecker
	}
	return &Watcher{
		ifi:    ifi,
		target: target,
		handle: handle,
		check:  check,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the probe loop in a background goroutine. Found-duplicate
// is terminal and reported exactly once, via a single BreakLoop call.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.done)
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			dup, err := w.check(w.ifi, w.target)
			if err != nil {
				w.logger.Warn("duplicate-address probe failed", "iface", w.ifi.Name, "addr", w.target.Pure(), "error", err)
				continue
			}
			if dup {
				w.logger.Error("duplicate address detected", "iface", w.ifi.Name, "addr", w.target.Pure())
				w.handle.BreakLoop(capture.ReasonDuplicateAddress)
				return
			}
		}
	}
}

// Stop requests the probe loop end and waits for it to do so. Calling
// it again on a stopped watcher returns at once; it waits on the probe
// goroutine, so on a watcher whose Start never ran it blocks forever.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}

// AsGuard adapts Start/Stop into a guard.ActionFunc so a Watcher's
// lifetime is bounded by a Guard like every other episode resource.
func AsGuard(w *Watcher) guard.ActionFunc {
	return func(a guard.Action) error {
		if a == guard.ActionAdd {
			w.Start()
			return nil
		}
		w.Stop()
		return nil
	}
}
