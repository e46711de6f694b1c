package manager

import (
	"context"
	"net"
	"strconv"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/bmlog"
)

// candidate pairs an address to dial with whether it should be started as
// a short-lived Bootstrapper connection.
type candidate struct {
	addr      addrmgr.PeerAddress
	bootstrap bool
}

// manageConnections enumerates live workers and reaps dead ones. While the
// outgoing count is below the configured cap it dials a batch of
// candidates, skipping network groups already represented or banned; the
// batch is not trimmed to the cap, so one tick can take the outgoing count
// past it.
func (m *Manager) manageConnections(ctx context.Context) {
	hosts := make(map[string]struct{})
	outgoing := 0

	for _, h := range m.st.Connections.Snapshot() {
		if !h.Alive() {
			m.st.Connections.Remove(h)
			continue
		}
		hosts[h.Group()] = struct{}{}
		if p, ok := h.(interface{ Inbound() bool }); !ok || !p.Inbound() {
			outgoing++
		}
	}
	cfg := m.st.Config
	var candidates []candidate

	if cfg.TrustedPeer != "" {
		if addr, ok := parseTrustedPeer(cfg.TrustedPeer); ok {
			candidates = append(candidates, candidate{addr: addr})
		}
	} else if outgoing < cfg.OutgoingConnections {
		if cfg.IPEnabled {
			for _, a := range drainUnchecked(m.st.UncheckedNodePool, uncheckedSampleSize) {
				candidates = append(candidates, candidate{addr: a})
			}
			if outgoing < cfg.OutgoingConnections/2 {
				if addr, ok := m.popBootstrap(); ok {
					candidates = append(candidates, candidate{addr: addr, bootstrap: true})
				}
			}
			for _, a := range m.st.NodePool.Sample(checkedSampleSize) {
				candidates = append(candidates, candidate{addr: a})
			}
		}
		if cfg.I2PEnabled {
			for _, a := range drainUnchecked(m.st.I2PUncheckedNodePool, uncheckedSampleSize) {
				candidates = append(candidates, candidate{addr: a})
			}
			for _, a := range m.st.I2PNodePool.Sample(checkedSampleSize) {
				candidates = append(candidates, candidate{addr: a})
			}
		}
	}

	for _, c := range candidates {
		group := c.addr.Group()
		if _, dup := hosts[group]; dup {
			continue
		}
		if m.st.Bans.IsBanned(group) {
			continue
		}
		if c.addr.Network == addrmgr.NetworkI2P && c.addr.Host == m.i2pPub {
			continue
		}
		p, err := m.dial(m.st, c.addr, c.bootstrap)
		if err != nil {
			bmlog.Log.WithField("err", err).Debug("manager: dial failed")
			continue
		}
		p.Start()
		hosts[group] = struct{}{}
	}

	m.st.Hosts.Store(hosts)
}

// drainUnchecked samples up to n addresses from pool and removes the
// sampled addresses, mirroring the reference implementation's
// difference_update after sampling.
func drainUnchecked(pool *addrmgr.Pool, n int) []addrmgr.PeerAddress {
	sampled := pool.Sample(n)
	pool.BulkDifference(sampled)
	return sampled
}

// popBootstrap pops one candidate from the bootstrap pool, refilling it
// from core nodes union the checked pool when empty.
func (m *Manager) popBootstrap() (addrmgr.PeerAddress, bool) {
	if len(m.bootstrapPool) == 0 {
		m.fillBootstrapPool()
		if len(m.bootstrapPool) == 0 {
			return addrmgr.PeerAddress{}, false
		}
	}
	last := len(m.bootstrapPool) - 1
	addr := m.bootstrapPool[last]
	m.bootstrapPool = m.bootstrapPool[:last]
	return addr, true
}

// BootstrapFromDNS seeds the unchecked pool from the configured DNS
// seeder, called once at startup per the specification's data flow.
func (m *Manager) BootstrapFromDNS(ctx context.Context) {
	if m.seeder == nil {
		return
	}
	addrs, err := m.seeder.Seed(ctx)
	if err != nil {
		bmlog.Log.WithField("err", err).Debug("manager: dns bootstrap failed")
		return
	}
	m.st.UncheckedNodePool.AddAll(addrs)
}

func parseTrustedPeer(hostport string) (addrmgr.PeerAddress, bool) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return addrmgr.PeerAddress{}, false
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return addrmgr.PeerAddress{}, false
	}
	return addrmgr.PeerAddress{Network: addrmgr.NetworkIP, Host: host, Port: uint16(port)}, true
}
