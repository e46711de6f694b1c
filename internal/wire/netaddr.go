package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// ServiceFlag is a bitmask of services supported by a peer.
type ServiceFlag uint64

// SFNodeNetwork is the node-network service bit (1); the only service flag
// this package names.
const SFNodeNetwork ServiceFlag = 1

// NetAddrNoPrefixLen is the encoded size of a NetAddrNoPrefix: 8 bytes of
// services, 16 bytes of IPv6 (IPv4 mapped), 2 bytes of port.
const NetAddrNoPrefixLen = 26

// NetAddrLen is the encoded size of a NetAddr: an 8-byte timestamp and a
// 4-byte stream number in front of a NetAddrNoPrefix.
const NetAddrLen = 38

// v4InV6Prefix is prepended to a 4-byte IPv4 address to produce its
// ::ffff:a.b.c.d IPv6-mapped form.
var v4InV6Prefix = [12]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff}

// NetAddrNoPrefix is a peer address without the timestamp/stream prefix
// used inside the version message.
type NetAddrNoPrefix struct {
	Services ServiceFlag
	IP       net.IP
	Port     uint16
}

// Bytes serializes the address to its 26-byte wire form.
func (n NetAddrNoPrefix) Bytes() []byte {
	b := make([]byte, NetAddrNoPrefixLen)
	binary.BigEndian.PutUint64(b[0:8], uint64(n.Services))
	if v4 := n.IP.To4(); v4 != nil {
		copy(b[8:20], v4InV6Prefix[:])
		copy(b[20:24], v4)
	} else {
		v6 := n.IP.To16()
		if v6 == nil {
			v6 = make(net.IP, 16)
		}
		copy(b[8:24], v6)
	}
	binary.BigEndian.PutUint16(b[24:26], n.Port)
	return b
}

// NetAddrNoPrefixFromBytes decodes a 26-byte NetAddrNoPrefix.
func NetAddrNoPrefixFromBytes(b []byte) (NetAddrNoPrefix, error) {
	if len(b) < NetAddrNoPrefixLen {
		return NetAddrNoPrefix{}, fmt.Errorf("wire: NetAddrNoPrefix: need %d bytes, got %d", NetAddrNoPrefixLen, len(b))
	}
	services := ServiceFlag(binary.BigEndian.Uint64(b[0:8]))
	ipBytes := make(net.IP, 16)
	copy(ipBytes, b[8:24])
	port := binary.BigEndian.Uint16(b[24:26])
	return NetAddrNoPrefix{Services: services, IP: normalizeIP(ipBytes), Port: port}, nil
}

func normalizeIP(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip
}

// NetAddr is a NetAddrNoPrefix with a timestamp and stream number, as
// exchanged in `addr` messages.
type NetAddr struct {
	Timestamp uint64
	Stream    uint32
	NetAddrNoPrefix
}

// Bytes serializes the address to its 38-byte wire form.
func (n NetAddr) Bytes() []byte {
	b := make([]byte, NetAddrLen)
	binary.BigEndian.PutUint64(b[0:8], n.Timestamp)
	binary.BigEndian.PutUint32(b[8:12], n.Stream)
	copy(b[12:38], n.NetAddrNoPrefix.Bytes())
	return b
}

// NetAddrFromBytes decodes a 38-byte NetAddr.
func NetAddrFromBytes(b []byte) (NetAddr, error) {
	if len(b) < NetAddrLen {
		return NetAddr{}, fmt.Errorf("wire: NetAddr: need %d bytes, got %d", NetAddrLen, len(b))
	}
	ts := binary.BigEndian.Uint64(b[0:8])
	stream := binary.BigEndian.Uint32(b[8:12])
	na, err := NetAddrNoPrefixFromBytes(b[12:38])
	if err != nil {
		return NetAddr{}, err
	}
	return NetAddr{Timestamp: ts, Stream: stream, NetAddrNoPrefix: na}, nil
}

// IPNetworkGroup returns the coarse network-locality key for an IP address:
// the first 2 bytes of an IPv4 address, or the first 12 of an IPv6 one.
func IPNetworkGroup(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return string(v4[:2])
	}
	v6 := ip.To16()
	if v6 == nil {
		return ip.String()
	}
	return string(v6[:12])
}
