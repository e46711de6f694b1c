package peer

import (
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/go-bmd/bmd/internal/state"
	"github.com/go-bmd/bmd/internal/wire"
)

// readLoop is the inbound half of the connection: it frames messages off
// the transport and dispatches them, enforcing the negotiation and idle
// timeouts.
func (p *Peer) readLoop() {
	defer p.wg.Done()
	defer p.teardown(false, "")

	// idleTimer fires independently of the blocked read below (mirroring
	// the teacher lineage's idleTimer.AfterFunc idiom): it tears the
	// connection down, which unblocks ReadMessage with an error.
	idleTimer := time.AfterFunc(negotiateTimeout, func() {
		p.teardown(false, "negotiation timeout")
	})
	defer idleTimer.Stop()

	for atomic.LoadInt32(&p.disconnect) == 0 {
		msg, err := p.conn.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err != io.EOF {
				idleTimer.Stop()
				p.fatal("framing error", 0)
			}
			return
		}

		p.dispatch(msg)

		if p.Status() == state.StatusFullyEstablished {
			idleTimer.Reset(idleTimeout)
		} else {
			idleTimer.Reset(negotiateTimeout)
		}
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// dispatch routes one decoded message to its handler. Before the
// handshake completes, only version/verack are accepted.
func (p *Peer) dispatch(m wire.Message) {
	if p.Status() != state.StatusFullyEstablished {
		switch m.Command {
		case wire.CmdVersion:
			p.handleVersion(m.Payload)
		case wire.CmdVerAck:
			p.handleVerAck()
		default:
			p.teardown(false, "message before handshake complete")
		}
		return
	}

	switch m.Command {
	case wire.CmdVersion, wire.CmdVerAck:
		// Tolerated duplicates of already-processed handshake messages.
	case wire.CmdAddr:
		p.handleAddr(m.Payload)
	case wire.CmdInv:
		p.handleInv(m.Payload)
	case wire.CmdGetData:
		p.handleGetData(m.Payload)
	case wire.CmdObject:
		p.handleObject(m.Payload)
	case wire.CmdPing:
		p.enqueue(wire.NewMessage(wire.CmdPong, nil), nil)
	case wire.CmdPong:
		// No action: receipt alone satisfies the keepalive.
	case wire.CmdError:
		p.handleError(m.Payload)
	}
}

// writeLoop drains the output queue onto the transport and drives the
// keepalive ping. It checks the process-wide shutdown flag at the head of
// every iteration and tears the peer down once the flag is set.
func (p *Peer) writeLoop() {
	defer p.wg.Done()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
	getDataTicker := time.NewTicker(2 * time.Second)
	defer getDataTicker.Stop()

	for {
		if p.st.IsShuttingDown() {
			p.teardown(false, "shutting down")
			p.drainOutputQueue()
			return
		}
		select {
		case out := <-p.outputQueue:
			err := p.conn.WriteMessage(out.msg)
			if out.doneChan != nil {
				close(out.doneChan)
			}
			if err != nil {
				p.teardown(false, "")
				return
			}
		case <-pingTicker.C:
			p.enqueue(wire.NewMessage(wire.CmdPing, nil), nil)
		case <-getDataTicker.C:
			if p.Status() == state.StatusFullyEstablished {
				p.drainGetData()
			}
		case <-p.quit:
			p.drainOutputQueue()
			return
		}
	}
}

func (p *Peer) drainOutputQueue() {
	for {
		select {
		case out := <-p.outputQueue:
			if out.doneChan != nil {
				close(out.doneChan)
			}
		default:
			return
		}
	}
}
