// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package wol constructs and sends the Wake-on-LAN magic packet:
// six 0xFF bytes followed by sixteen repetitions of
// the target MAC, broadcast over raw Ethernet on the configured
// interface.
package wol

import (
	"fmt"
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/mdlayher/packet"
)

// EtherType is the conventional Wake-on-LAN EtherType used when the
// magic packet is sent as a raw Ethernet frame rather than wrapped in
// UDP.
const EtherType = 0x0842

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MagicPacket builds the magic packet payload for target.
func MagicPacket(target net.HardwareAddr) ([]byte, error) {
	if len(target) != 6 {
		return nil, fmt.Errorf("wol: target MAC must be 6 bytes, got %d", len(target))
	}
	buf := make([]byte, 6+16*6)
	for i := 0; i < 6; i++ {
		buf[i] = 0xff
	}
	for i := 0; i < 16; i++ {
		copy(buf[6+i*6:], target)
	}
	return buf, nil
}

// Conn is the subset of *packet.Conn a Sender needs. Production code
// opens a real raw socket; tests substitute a fake that records
// frames instead of touching the network.
type Conn interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	Close() error
}

// frame builds the raw Ethernet frame carrying the magic packet,
// broadcast from iface's hardware address.
func frame(srcMAC, target net.HardwareAddr) ([]byte, error) {
	payload, err := MagicPacket(target)
	if err != nil {
		return nil, err
	}
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       broadcastMAC,
		EthernetType: layers.EthernetType(EtherType),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(payload)); err != nil {
		return nil, fmt.Errorf("wol: serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}

// SendVia writes the magic packet for target as a broadcast raw
// Ethernet frame over conn, sourced from srcMAC.
func SendVia(conn Conn, srcMAC, target net.HardwareAddr) error {
	f, err := frame(srcMAC, target)
	if err != nil {
		return err
	}
	_, err = conn.WriteTo(f, &packet.Addr{HardwareAddr: broadcastMAC})
	return err
}

// Send opens a raw Ethernet socket on iface and emits one magic
// packet for target, matching the original implementation's
// fire-and-forget WOL send.
func Send(iface string, target net.HardwareAddr) error {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return fmt.Errorf("wol: lookup interface %s: %w", iface, err)
	}
	conn, err := packet.Listen(ifi, packet.Raw, EtherType, nil)
	if err != nil {
		return fmt.Errorf("wol: open raw socket on %s: %w", iface, err)
	}
	defer conn.Close()
	return SendVia(conn, ifi.HardwareAddr, target)
}
