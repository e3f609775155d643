// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package watcher

import (
	"fmt"
	"net"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/mdlayher/packet"

	"grimm.is/sleepproxy/internal/ipaddr"
)

// arpProbeTimeout bounds how long ARPProbe waits for a reply before
// concluding the address is unclaimed.
const arpProbeTimeout = 300 * time.Millisecond

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// arpConn is the subset of *packet.Conn ARPProbe drives, so tests
// never open a real raw socket.
type arpConn interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// ARPProbe sends an unsolicited ARP request for target on iface and
// reports whether a reply arrives from a MAC other than ifaceMAC —
// positive means some other station already holds the address.
func ARPProbe(ifi *net.Interface, target ipaddr.Address) (bool, error) {
	conn, err := packet.Listen(ifi, packet.Raw, int(layers.EthernetTypeARP), nil)
	if err != nil {
		return false, fmt.Errorf("open arp probe socket on %s: %w", ifi.Name, err)
	}
	defer conn.Close()
	return arpProbe(conn, ifi.HardwareAddr, target)
}

func arpRequestFrame(srcMAC net.HardwareAddr, target ipaddr.Address) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       broadcastMAC,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: []byte{0, 0, 0, 0},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    target.IP.To4(),
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, eth, arp); err != nil {
		return nil, fmt.Errorf("serialize arp request: %w", err)
	}
	return buf.Bytes(), nil
}

func arpProbe(conn arpConn, ifaceMAC net.HardwareAddr, target ipaddr.Address) (bool, error) {
	req, err := arpRequestFrame(ifaceMAC, target)
	if err != nil {
		return false, err
	}
	if _, err := conn.WriteTo(req, &packet.Addr{HardwareAddr: broadcastMAC}); err != nil {
		return false, fmt.Errorf("send arp probe: %w", err)
	}

	deadline := time.Now().Add(arpProbeTimeout)
	buf := make([]byte, 1500)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		conn.SetReadDeadline(time.Now().Add(remaining))
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
				return false, nil
			}
			return false, fmt.Errorf("read arp reply: %w", err)
		}
		packetData := gopacket.NewPacket(buf[:n], layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		arpLayer := packetData.Layer(layers.LayerTypeARP)
		if arpLayer == nil {
			continue
		}
		reply := arpLayer.(*layers.ARP)
		if reply.Operation != layers.ARPReply {
			continue
		}
		if !net.IP(reply.SourceProtAddress).Equal(target.IP) {
			continue
		}
		if net.HardwareAddr(reply.SourceHwAddress).String() == ifaceMAC.String() {
			continue
		}
		return true, nil
	}
}
