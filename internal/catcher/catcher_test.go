// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package catcher

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"grimm.is/sleepproxy/internal/logging"
)

func serialize(t *testing.T, layerStack ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, layerStack...); err != nil {
		t.Fatalf("failed to serialize test frame: %v", err)
	}
	return buf.Bytes()
}

func tcpSynFrame(t *testing.T, srcIP, dstIP net.IP, dstPort uint16) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}
	tcp := &layers.TCP{
		SrcPort: 51000,
		DstPort: layers.TCPPort(dstPort),
		SYN:     true,
		Window:  65535,
	}
	tcp.SetNetworkLayerForChecksum(ip)
	return serialize(t, eth, ip, tcp)
}

func TestSinkRecordsTriggerOnFullParse(t *testing.T) {
	src := net.ParseIP("198.51.100.5").To4()
	dst := net.ParseIP("192.0.2.10").To4()
	frame := tcpSynFrame(t, src, dst, 22)

	c := New(layers.LinkTypeEthernet, logging.Discard())
	complete := c.Sink(gopacket.CaptureInfo{CaptureLength: len(frame)}, frame)

	if !complete {
		t.Fatal("expected sink to report completion on a full TCP/IP parse")
	}
	trigger := c.Trigger()
	if trigger == nil {
		t.Fatal("expected a recorded trigger")
	}
	if !trigger.SrcIP.Equal(src) || !trigger.DstIP.Equal(dst) {
		t.Errorf("expected src=%s dst=%s, got src=%s dst=%s", src, dst, trigger.SrcIP, trigger.DstIP)
	}
}

func TestSinkDiscardsNonIPFrame(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		SourceProtAddress: []byte{198, 51, 100, 5},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte{192, 0, 2, 10},
	}
	frame := serialize(t, eth, arp)

	c := New(layers.LinkTypeEthernet, logging.Discard())
	if c.Sink(gopacket.CaptureInfo{CaptureLength: len(frame)}, frame) {
		t.Error("expected ARP-only frame to be discarded, not completed")
	}
	if c.Trigger() != nil {
		t.Error("expected no trigger recorded for a discarded frame")
	}
}

func TestSinkRecordsIPv6Trigger(t *testing.T) {
	src := net.ParseIP("2001:db8::5")
	dst := net.ParseIP("2001:db8::10")

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv6,
	}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      src,
		DstIP:      dst,
	}
	tcp := &layers.TCP{SrcPort: 51000, DstPort: 80, SYN: true, Window: 65535}
	tcp.SetNetworkLayerForChecksum(ip)
	frame := serialize(t, eth, ip, tcp)

	c := New(layers.LinkTypeEthernet, logging.Discard())
	if !c.Sink(gopacket.CaptureInfo{CaptureLength: len(frame)}, frame) {
		t.Fatal("expected sink to complete on IPv6 TCP frame")
	}
	trigger := c.Trigger()
	if trigger == nil || !trigger.SrcIP.Equal(src) || !trigger.DstIP.Equal(dst) {
		t.Errorf("unexpected trigger: %+v", trigger)
	}
}
