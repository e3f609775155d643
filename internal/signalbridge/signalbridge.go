// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package signalbridge implements the Signal Bridge: a
// process-wide handler for SIGINT/SIGTERM that breaks every currently
// registered capture handle with reason signal, and a "signalled"
// flag the orchestrator polls between long-running steps.
package signalbridge

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"grimm.is/sleepproxy/internal/capture"
	"grimm.is/sleepproxy/internal/guard"
)

// LoopBreaker is the capture handle the bridge requests termination
// on. *capture.Engine satisfies it.
type LoopBreaker interface {
	BreakLoop(reason capture.Reason)
}

// Bridge owns the process-wide registry of live capture handles and
// the signalled flag. One Bridge per
// process; episodes register and deregister their own handle through
// a Registry-Entry guard.
type Bridge struct {
	mu        sync.Mutex
	registry  map[*handleEntry]struct{}
	signalled atomic.Bool
	sigCh     chan os.Signal
	stop      chan struct{}
	started   bool
}

type handleEntry struct {
	handle LoopBreaker
}

// New constructs an unstarted Bridge.
func New() *Bridge {
	return &Bridge{registry: make(map[*handleEntry]struct{})}
}

// Start installs the OS signal handlers. Calling Start more than once
// is a no-op.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	b.sigCh = make(chan os.Signal, 1)
	b.stop = make(chan struct{})
	signal.Notify(b.sigCh, os.Interrupt, syscall.SIGTERM)
	go b.run()
}

// Stop removes the OS signal handlers. Safe to call on an unstarted
// or already-stopped Bridge.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	signal.Stop(b.sigCh)
	close(b.stop)
	b.started = false
}

func (b *Bridge) run() {
	for {
		select {
		case <-b.sigCh:
			b.deliver()
		case <-b.stop:
			return
		}
	}
}

// deliver marks the process signalled and breaks every registered
// handle. Idempotent: firing more than once is harmless, since
// BreakLoop itself is idempotent per handle.
func (b *Bridge) deliver() {
	b.signalled.Store(true)
	b.mu.Lock()
	entries := make([]*handleEntry, 0, len(b.registry))
	for e := range b.registry {
		entries = append(entries, e)
	}
	b.mu.Unlock()
	for _, e := range entries {
		e.handle.BreakLoop(capture.ReasonSignal)
	}
}

// IsSignalled reports whether a termination signal has been observed
// since the Bridge was constructed (or last Reset).
func (b *Bridge) IsSignalled() bool {
	return b.signalled.Load()
}

// Reset clears the signalled flag between episodes.
func (b *Bridge) Reset() {
	b.signalled.Store(false)
}

// Register adds handle to the registry and returns a guard.ActionFunc
// that removes it again on release — the Registry-Entry guard kind.
func (b *Bridge) Register(handle LoopBreaker) guard.ActionFunc {
	entry := &handleEntry{handle: handle}
	return func(a guard.Action) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if a == guard.ActionAdd {
			b.registry[entry] = struct{}{}
		} else {
			delete(b.registry, entry)
		}
		return nil
	}
}

// Len reports how many handles are currently registered (test/
// diagnostic use).
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.registry)
}

// Deliver is exported for tests that want to simulate a signal
// without sending a real one to the process.
func (b *Bridge) Deliver() {
	b.deliver()
}
