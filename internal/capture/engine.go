// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package capture wraps a libpcap-style capture handle into the
// Capture Engine: open an interface, install a BPF filter, run
// a blocking loop delivering packets to a sink, and support an
// out-of-band break from any goroutine with a precedence-ordered
// reason.
package capture

import (
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"

	"grimm.is/sleepproxy/internal/errors"
)

const (
	snapLen    = 65535
	pollPeriod = 250 * time.Millisecond
)

// Source is the subset of *pcap.Handle the engine drives. A real
// handle satisfies it structurally; tests substitute a fake that
// never touches the network.
type Source interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	SetBPFFilter(expr string) error
	LinkType() layers.LinkType
	Close()
}

// Sink receives one captured frame's metadata and raw bytes. It
// returns true once it has parsed a usable packet, which ends the
// loop with ReasonSinkComplete.
type Sink func(ci gopacket.CaptureInfo, data []byte) bool

// Engine is one open capture handle for the lifetime of one episode.
type Engine struct {
	mu     sync.Mutex
	source Source
	reason Reason
}

// Open attaches to iface ("any" or a named interface) in
// promiscuous-equivalent mode, with a read timeout short enough that
// the loop notices a break request promptly even with no traffic.
func Open(iface string) (*Engine, error) {
	handle, err := pcap.OpenLive(iface, snapLen, true, pollPeriod)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindCapture, "open capture on %s", iface)
	}
	return &Engine{source: handle}, nil
}

// wrap adapts an already-open Source for tests that don't go through
// a real pcap handle.
func wrap(s Source) *Engine {
	return &Engine{source: s}
}

// SetFilter compiles and installs a BPF expression.
func (e *Engine) SetFilter(bpf string) error {
	if err := e.source.SetBPFFilter(bpf); err != nil {
		return errors.Wrapf(err, errors.KindCapture, "compile filter %q", bpf)
	}
	return nil
}

// LinkType returns the link-layer type in effect for this handle.
func (e *Engine) LinkType() layers.LinkType {
	return e.source.LinkType()
}

// Close releases the underlying handle.
func (e *Engine) Close() {
	e.source.Close()
}

// BreakLoop requests early termination with reason. Safe to call from
// any goroutine at any time; the first call wins unless a later call
// carries a higher-precedence reason.
func (e *Engine) BreakLoop(reason Reason) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if reason.precedence() > e.reason.precedence() {
		e.reason = reason
	}
}

// currentReason reports the reason recorded so far without blocking
// on a read.
func (e *Engine) currentReason() Reason {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

// Loop blocks, delivering every captured frame to sink, until sink
// reports completion, a read error occurs, or BreakLoop is called
// from another goroutine. It returns the winning termination reason.
func (e *Engine) Loop(sink Sink) Reason {
	for {
		if r := e.currentReason(); r != ReasonUnset {
			return r
		}
		data, ci, err := e.source.ReadPacketData()
		if err != nil {
			if err == pcap.NextErrorTimeoutExpired {
				continue
			}
			e.BreakLoop(ReasonError)
			continue
		}
		if data == nil {
			continue
		}
		if sink(ci, data) {
			e.BreakLoop(ReasonSinkComplete)
		}
	}
}
