package peer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/bmlog"
	"github.com/go-bmd/bmd/internal/state"
	"github.com/go-bmd/bmd/internal/wire"
)

// Timing and batching constants recovered from the reference
// implementation's manager/message modules where the distilled design left
// a parameter unspecified.
const (
	negotiateTimeout = 20 * time.Second
	idleTimeout      = 20 * time.Minute
	pingInterval     = 30 * time.Second
	getDataBatchSize = 64
	maxGetDataPerMsg = 1000
	outputBufferSize = 50
	addrSampleSize   = 1000
	defaultBanTime   = 24 * time.Hour
)

// outMsg pairs a message with an optional completion signal, mirroring the
// teacher's send-queue element.
type outMsg struct {
	msg      wire.Message
	doneChan chan struct{}
}

// Options bundles the construction-time parameters a Peer needs beyond
// *state.State.
type Options struct {
	Inbound   bool
	Bootstrap bool
	Addr      addrmgr.PeerAddress
}

// Peer is one connection's worker. It satisfies state.ConnHandle so the
// manager can inspect and reap it without depending on this package's
// concrete type.
type Peer struct {
	st        *state.State
	conn      *frameConn
	transport Transport
	inbound   bool
	bootstrap bool

	addr  addrmgr.PeerAddress
	group string

	started    int32
	disconnect int32

	statsMu        sync.Mutex
	status         state.Status
	versionSent    bool
	versionKnown   bool
	verAckReceived bool
	remoteStreams  []uint64

	vectorsMu        sync.Mutex
	vectorsToGet     []wire.Vector
	vectorsRequested map[wire.Vector]time.Time

	outputQueue chan outMsg
	quit        chan struct{}
	wg          sync.WaitGroup
}

// New constructs a Peer bound to an already-connected Transport. Call
// Start to begin the handshake.
func New(st *state.State, t Transport, opts Options) *Peer {
	return &Peer{
		st:               st,
		conn:             newFrameConn(t, st.Config.MagicBytes),
		transport:        t,
		inbound:          opts.Inbound,
		bootstrap:        opts.Bootstrap,
		addr:             opts.Addr,
		group:            opts.Addr.Group(),
		status:           state.StatusConnecting,
		vectorsRequested: make(map[wire.Vector]time.Time),
		outputQueue:      make(chan outMsg, outputBufferSize),
		quit:             make(chan struct{}),
	}
}

// Group reports the peer's network group, part of state.ConnHandle.
func (p *Peer) Group() string { return p.group }

// Inbound reports whether the connection was accepted rather than dialed,
// used by the manager to count outgoing slots.
func (p *Peer) Inbound() bool { return p.inbound }

// Status reports the current lifecycle stage, part of state.ConnHandle.
func (p *Peer) Status() state.Status {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.status
}

func (p *Peer) setStatus(s state.Status) {
	p.statsMu.Lock()
	p.status = s
	p.statsMu.Unlock()
}

// Alive reports whether the worker has not yet torn down, part of
// state.ConnHandle.
func (p *Peer) Alive() bool {
	return atomic.LoadInt32(&p.disconnect) == 0
}

// Stop requests disconnection, part of state.ConnHandle.
func (p *Peer) Stop() { p.teardown(false, "") }

func (p *Peer) log() *logrus.Entry { return bmlog.WithPeer(p.transport.RemoteLabel()) }

// Start launches the read and write loops. Client-direction peers send
// their version immediately; server-direction peers wait to read one
// first.
func (p *Peer) Start() {
	if atomic.AddInt32(&p.started, 1) != 1 {
		return
	}
	p.st.Connections.Add(p)

	p.wg.Add(2)
	go p.writeLoop()
	go p.readLoop()

	if !p.inbound {
		if err := p.sendVersion(); err != nil {
			p.teardown(false, "")
			return
		}
		p.versionSent = true
	}
}

// Wait blocks until both the read and write loops have exited.
func (p *Peer) Wait() { p.wg.Wait() }

// teardown closes the transport and signals both loops to exit, at most
// once, optionally banning the peer's network group.
func (p *Peer) teardown(ban bool, reason string) {
	if atomic.AddInt32(&p.disconnect, 1) != 1 {
		return
	}
	p.setStatus(state.StatusDisconnecting)
	if ban {
		p.log().Warnf("disconnecting: %s", reason)
		p.st.Bans.Ban(p.group, defaultBanTime)
	}
	close(p.quit)
	_ = p.conn.Close()
	p.st.Connections.Remove(p)
	p.setStatus(state.StatusDisconnected)
}

// fatal sends a fatal `error` message and disconnects, banning the peer's
// group for banTime.
func (p *Peer) fatal(reason string, banTime time.Duration) {
	p.enqueue(wire.NewMessage(wire.CmdError, wire.MsgError{
		Fatal:   wire.FatalCritical,
		BanTime: uint64(banTime.Seconds()),
		Text:    reason,
	}.Bytes()), nil)
	if banTime > 0 && p.Alive() {
		p.log().Warnf("disconnecting: %s", reason)
		p.st.Bans.Ban(p.group, banTime)
	}
	p.teardown(false, reason)
}

// enqueue hands a message to the write loop, discarding it silently once
// the peer has begun disconnecting.
func (p *Peer) enqueue(m wire.Message, done chan struct{}) {
	if atomic.LoadInt32(&p.disconnect) != 0 {
		if done != nil {
			close(done)
		}
		return
	}
	select {
	case p.outputQueue <- outMsg{msg: m, doneChan: done}:
	case <-p.quit:
		if done != nil {
			close(done)
		}
	}
}
