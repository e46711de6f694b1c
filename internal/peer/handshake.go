package peer

import (
	"net"
	"time"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/state"
	"github.com/go-bmd/bmd/internal/wire"
)

// localNetAddr builds the NetAddrNoPrefix this process advertises about
// itself in a version message.
func (p *Peer) localNetAddr() wire.NetAddrNoPrefix {
	return wire.NetAddrNoPrefix{
		Services: p.st.Config.Services,
		IP:       net.IPv4zero,
		Port:     p.st.Config.Port,
	}
}

// remoteNetAddr builds the NetAddrNoPrefix describing the peer this worker
// is talking to, used in the version message's AddrRemote field.
func (p *Peer) remoteNetAddr() wire.NetAddrNoPrefix {
	ip := net.ParseIP(p.addr.Host)
	if ip == nil {
		ip = net.IPv4zero
	}
	return wire.NetAddrNoPrefix{Services: 0, IP: ip, Port: p.addr.Port}
}

// sendVersion emits the initial `version` message.
func (p *Peer) sendVersion() error {
	v := wire.MsgVersion{
		ProtocolVersion: p.st.Config.ProtocolVersion,
		Services:        p.st.Config.Services,
		Timestamp:       uint64(time.Now().Unix()),
		AddrRemote:      p.remoteNetAddr(),
		AddrLocal:       p.localNetAddr(),
		Nonce:           p.st.Config.Nonce,
		UserAgent:       p.st.Config.UserAgent,
		Streams:         []uint64{p.st.Config.Stream},
	}
	p.enqueue(wire.NewMessage(wire.CmdVersion, v.Bytes()), nil)
	p.versionSent = true
	return nil
}

// handleVersion validates and reacts to an incoming `version` message
// per the handshake invariants: self-connection, timestamp skew, minimum
// protocol version, and shared stream membership.
func (p *Peer) handleVersion(payload []byte) {
	v, err := wire.DecodeMsgVersion(payload)
	if err != nil {
		p.fatal("malformed version payload", defaultBanTime)
		return
	}

	if v.Nonce == p.st.Config.Nonce {
		p.teardown(false, "self connection")
		return
	}

	skew := int64(v.Timestamp) - time.Now().Unix()
	if skew < 0 {
		skew = -skew
	}
	maxOffset := p.st.Config.MaxTimeOffsetSeconds
	if maxOffset <= 0 {
		maxOffset = 3600
	}
	if skew > maxOffset {
		p.fatal("timestamp too far from local clock", defaultBanTime)
		return
	}

	if v.ProtocolVersion < 3 {
		p.fatal("protocol version too old", defaultBanTime)
		return
	}

	if !containsStream(v.Streams, p.st.Config.Stream) {
		p.fatal("no common stream", 0)
		return
	}

	p.statsMu.Lock()
	p.versionKnown = true
	p.remoteStreams = v.Streams
	p.statsMu.Unlock()

	if p.inbound {
		host, port := v.AddrRemote.IP.String(), v.AddrRemote.Port
		if port == 0 {
			host, port = hostPortFromLabel(p.transport.RemoteLabel())
		}
		p.addr = addrmgr.PeerAddress{Network: p.addr.Network, Host: host, Port: port}
		p.group = p.addr.Group()
		if err := p.sendVersion(); err != nil {
			p.teardown(false, "")
			return
		}
	}

	p.enqueue(wire.NewMessage(wire.CmdVerAck, nil), nil)
	p.tryCompleteHandshake()
}

func containsStream(streams []uint64, want uint64) bool {
	for _, s := range streams {
		if s == want {
			return true
		}
	}
	return false
}

func hostPortFromLabel(label string) (string, uint16) {
	host, portStr, err := net.SplitHostPort(label)
	if err != nil {
		return label, 0
	}
	var port uint16
	if p, err := net.LookupPort("tcp", portStr); err == nil {
		port = uint16(p)
	}
	return host, port
}

// handleVerAck records receipt of the peer's verack and checks whether the
// handshake is now complete.
func (p *Peer) handleVerAck() {
	p.statsMu.Lock()
	p.verAckReceived = true
	p.statsMu.Unlock()
	p.tryCompleteHandshake()
}

// tryCompleteHandshake promotes the connection to fully_established once
// both a version has been seen and a verack received, after the diversity
// check against the live host set.
func (p *Peer) tryCompleteHandshake() {
	p.statsMu.Lock()
	ready := p.versionKnown && p.verAckReceived
	p.statsMu.Unlock()
	if !ready || p.Status() == state.StatusFullyEstablished {
		return
	}

	if p.st.Hosts.Contains(p.group) {
		p.teardown(false, "duplicate network group")
		return
	}

	p.setStatus(state.StatusFullyEstablished)

	if !p.bootstrap && p.addr.Network == addrmgr.NetworkIP {
		p.st.NodePool.Add(p.addr)
	}

	p.sendAddrSample()
	p.sendInvSnapshot()
}

// sendAddrSample pushes a diversified sample of known IP addresses to the
// newly established peer. The wire `addr` record has no representation
// for an I2P destination, so only the IP pool is a candidate source.
func (p *Peer) sendAddrSample() {
	all := p.st.NodePool.Sample(addrSampleSize)
	if len(all) == 0 {
		return
	}
	now := uint64(time.Now().Unix())
	addrs := make([]wire.NetAddr, 0, len(all))
	for _, a := range all {
		ip := net.ParseIP(a.Host)
		if ip == nil {
			continue
		}
		addrs = append(addrs, wire.NetAddr{
			Timestamp: now,
			Stream:    uint32(p.st.Config.Stream),
			NetAddrNoPrefix: wire.NetAddrNoPrefix{
				Services: p.st.Config.Services,
				IP:       ip,
				Port:     a.Port,
			},
		})
	}
	if len(addrs) == 0 {
		return
	}
	p.enqueue(wire.NewMessage(wire.CmdAddr, wire.MsgAddr{Addrs: addrs}.Bytes()), nil)
}

// sendInvSnapshot advertises every non-expired object currently held.
func (p *Peer) sendInvSnapshot() {
	now := time.Now()
	var vectors []wire.Vector
	for _, o := range p.st.Objects.Snapshot() {
		if !o.IsExpired(now) {
			vectors = append(vectors, o.Vector())
		}
	}
	if len(vectors) == 0 {
		return
	}
	for len(vectors) > 0 {
		n := getDataBatchSize
		if n > len(vectors) {
			n = len(vectors)
		}
		p.enqueue(wire.NewMessage(wire.CmdInv, wire.MsgInv{Vectors: vectors[:n]}.Bytes()), nil)
		vectors = vectors[n:]
	}
}
