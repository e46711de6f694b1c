package peer

import (
	"time"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/state"
	"github.com/go-bmd/bmd/internal/wire"
)

// handleAddr merges advertised addresses into the appropriate unchecked
// pool, subject to pool capacity and basic sanity.
func (p *Peer) handleAddr(payload []byte) {
	msg, err := wire.DecodeMsgAddr(payload)
	if err != nil {
		p.fatal("malformed addr payload", defaultBanTime)
		return
	}
	if len(msg.Addrs) == 0 {
		p.teardown(false, "empty addr message")
		return
	}
	for _, a := range msg.Addrs {
		pa := addrmgr.PeerAddress{Network: addrmgr.NetworkIP, Host: a.IP.String(), Port: a.Port}
		if !pa.IsRoutable() {
			continue
		}
		p.st.UncheckedNodePool.Add(pa)
	}
	p.st.UncheckedNodePool.EnforceCap()

	if p.bootstrap {
		p.teardown(false, "bootstrap harvest complete")
	}
}

// handleInv adds vectors the local store doesn't already have, and isn't
// already waiting on, to the drain queue.
func (p *Peer) handleInv(payload []byte) {
	msg, err := wire.DecodeMsgInv(payload)
	if err != nil {
		p.fatal("malformed inv payload", defaultBanTime)
		return
	}

	p.vectorsMu.Lock()
	defer p.vectorsMu.Unlock()
	for _, v := range msg.Vectors {
		if p.st.Objects.Has(v) {
			continue
		}
		if _, pending := p.vectorsRequested[v]; pending {
			continue
		}
		p.vectorsToGet = append(p.vectorsToGet, v)
	}
}

// drainGetData pops a bounded batch of pending vectors into a `getdata`
// message, moving them into the in-flight set. Called periodically by the
// write loop's ticker.
func (p *Peer) drainGetData() {
	p.vectorsMu.Lock()
	if len(p.vectorsToGet) == 0 {
		p.vectorsMu.Unlock()
		return
	}
	n := getDataBatchSize
	if n > len(p.vectorsToGet) {
		n = len(p.vectorsToGet)
	}
	batch := p.vectorsToGet[:n]
	p.vectorsToGet = p.vectorsToGet[n:]
	now := time.Now()
	for _, v := range batch {
		p.vectorsRequested[v] = now
	}
	p.vectorsMu.Unlock()

	p.enqueue(wire.NewMessage(wire.CmdGetData, wire.MsgGetData{Vectors: batch}.Bytes()), nil)
}

// handleGetData replies with every known requested object, skipping
// unknown vectors silently, and bans a peer that asks for too much at
// once.
func (p *Peer) handleGetData(payload []byte) {
	msg, err := wire.DecodeMsgGetData(payload)
	if err != nil {
		p.fatal("malformed getdata payload", defaultBanTime)
		return
	}
	if len(msg.Vectors) > maxGetDataPerMsg {
		p.fatal("excessive getdata request", defaultBanTime)
		return
	}
	for _, v := range msg.Vectors {
		obj, ok := p.st.Objects.Get(v)
		if !ok {
			continue
		}
		p.enqueue(wire.NewMessage(wire.CmdObject, obj.Bytes()), nil)
	}
}

// handleObject validates and, if new, stores and rebroadcasts the
// decoded object, clearing it from the in-flight request set either way.
func (p *Peer) handleObject(payload []byte) {
	obj, err := wire.DecodeObject(payload)
	if err != nil {
		p.fatal("malformed object payload", defaultBanTime)
		return
	}

	v := obj.Vector()

	p.vectorsMu.Lock()
	_, wasRequested := p.vectorsRequested[v]
	delete(p.vectorsRequested, v)
	p.vectorsMu.Unlock()

	if !wasRequested {
		p.teardown(false, "unrequested object")
		return
	}

	if !obj.IsValid(time.Now(), p.st.Config.Stream, p.st.Config.PowParams()) {
		return
	}

	if !p.st.Objects.Insert(obj) {
		return
	}

	for _, h := range p.st.Connections.Snapshot() {
		other, ok := h.(*Peer)
		if !ok || other == p || other.Status() != state.StatusFullyEstablished {
			continue
		}
		other.enqueue(wire.NewMessage(wire.CmdInv, wire.MsgInv{Vectors: []wire.Vector{v}}.Bytes()), nil)
	}
}

// handleError disconnects on a fatal error from the remote peer.
func (p *Peer) handleError(payload []byte) {
	msg, err := wire.DecodeMsgError(payload)
	if err != nil {
		return
	}
	if msg.Fatal == wire.FatalCritical {
		p.log().Infof("peer sent fatal error: %s", msg.Text)
		p.teardown(false, "peer error")
	}
}
