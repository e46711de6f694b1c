// Package addrmgr implements the peer pools: bounded, persistable sets of
// known and unchecked IP and I2P peer addresses, diversified by network
// group.
package addrmgr

import (
	"net"

	"github.com/go-bmd/bmd/internal/wire"
)

// Network distinguishes an address's transport.
type Network uint8

const (
	// NetworkIP is a plain IPv4/IPv6 (host, port) address.
	NetworkIP Network = iota
	// NetworkI2P is an I2P destination, addressed without a port.
	NetworkI2P
)

// PeerAddress is either an (IP host, port) pair or an I2P destination.
// Pools are sets keyed by full tuple equality, which this comparable
// struct gives for free as a Go map key.
type PeerAddress struct {
	Network Network
	Host    string
	Port    uint16
}

// Group returns the coarse network-locality key used to diversify peer
// selection: the first 2 bytes of an IPv4 address, the first 12 of an
// IPv6 one, or the full destination string for I2P.
func (a PeerAddress) Group() string {
	if a.Network == NetworkI2P {
		return a.Host
	}
	ip := net.ParseIP(a.Host)
	if ip == nil {
		return a.Host
	}
	return wire.IPNetworkGroup(ip)
}

// IsRoutable reports whether an IP address is neither loopback, unspecified,
// nor a zero port -- the minimal sanity check applied to addresses learned
// from a peer's `addr` message.
func (a PeerAddress) IsRoutable() bool {
	if a.Network == NetworkI2P {
		return a.Host != ""
	}
	if a.Port == 0 {
		return false
	}
	ip := net.ParseIP(a.Host)
	if ip == nil {
		return false
	}
	return !ip.IsLoopback() && !ip.IsUnspecified()
}
