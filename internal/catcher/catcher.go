// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package catcher implements the SYN Catcher: a capture sink
// that decodes one frame's link, (optional VLAN), IP and transport
// headers and records the trigger packet's source/destination once a
// full parse succeeds.
package catcher

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"grimm.is/sleepproxy/internal/logging"
)

// Trigger is the (payload bytes, source IP, destination IP) recorded
// from the frame that satisfied the capture filter.
type Trigger struct {
	Payload []byte
	SrcIP   net.IP
	DstIP   net.IP
}

// Catcher decodes frames of one link-layer type and records the first
// one that fully parses down to a transport header.
type Catcher struct {
	linkType layers.LinkType
	logger   *logging.Logger
	trigger  *Trigger
}

// New builds a Catcher for frames captured with linkType (from
// Engine.LinkType).
func New(linkType layers.LinkType, logger *logging.Logger) *Catcher {
	return &Catcher{linkType: linkType, logger: logger}
}

// Trigger returns the recorded trigger packet, or nil if Sink has not
// yet completed a successful parse.
func (c *Catcher) Trigger() *Trigger {
	return c.trigger
}

// Sink is a capture.Sink: it parses one frame and returns true once a
// full link/IP/transport decode succeeds, ending the capture loop
// with sink_complete. A missing layer is logged and the frame is
// discarded; capture continues.
func (c *Catcher) Sink(ci gopacket.CaptureInfo, data []byte) bool {
	packet := gopacket.NewPacket(data, c.linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	if packet.LinkLayer() == nil {
		c.logger.Debug("discarding frame: no link layer", "bytes", len(data))
		return false
	}

	// Chain through a single 802.1Q tag if present; any further
	// layers are reached through packet.Layer regardless, gopacket's
	// decoder already walks the VLAN tag transparently.
	if vlan := packet.Layer(layers.LayerTypeDot1Q); vlan != nil {
		c.logger.Debug("frame carries a VLAN tag", "vlan", vlan.(*layers.Dot1Q).VLANIdentifier)
	}

	var srcIP, dstIP net.IP
	switch {
	case packet.Layer(layers.LayerTypeIPv4) != nil:
		ip := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		srcIP, dstIP = ip.SrcIP, ip.DstIP
	case packet.Layer(layers.LayerTypeIPv6) != nil:
		ip := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
		srcIP, dstIP = ip.SrcIP, ip.DstIP
	default:
		c.logger.Debug("discarding frame: no IP layer", "bytes", len(data))
		return false
	}

	if packet.Layer(layers.LayerTypeTCP) == nil && packet.Layer(layers.LayerTypeUDP) == nil {
		c.logger.Debug("discarding frame: no transport layer", "bytes", len(data))
		return false
	}

	c.trigger = &Trigger{Payload: data, SrcIP: srcIP, DstIP: dstIP}
	c.logger.Info("trigger packet captured", "src", srcIP.String(), "dst", dstIP.String())
	return true
}
