package i2p

import (
	"bufio"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/bmlog"
	"github.com/go-bmd/bmd/internal/peer"
	"github.com/go-bmd/bmd/internal/state"
)

// acceptReadTimeout bounds each STREAM ACCEPT wait so the listener's loop
// can observe the shutdown flag promptly.
const acceptReadTimeout = 1 * time.Second

// Listener repeatedly opens a fresh SAM accept socket and hands each
// inbound stream to a new server-direction peer.Peer.
type Listener struct {
	st      *state.State
	samAddr string
	nick    string

	onAccept func(*peer.Peer)

	shuttingDown int32
}

// NewListener constructs a Listener. onAccept is called with each newly
// constructed peer; the caller is expected to call Start on it and
// register it for reaping.
func NewListener(st *state.State, samAddr, nick string, onAccept func(*peer.Peer)) *Listener {
	return &Listener{st: st, samAddr: samAddr, nick: nick, onAccept: onAccept}
}

// Stop signals the accept loop to exit on its next iteration.
func (l *Listener) Stop() { atomic.StoreInt32(&l.shuttingDown, 1) }

// Run drives the accept loop until Stop is called or the process-wide
// shutdown flag is set. It is meant to be run on its own goroutine.
func (l *Listener) Run() {
	for atomic.LoadInt32(&l.shuttingDown) == 0 && !l.st.IsShuttingDown() {
		conn, r, err := l.openAcceptSocket()
		if err != nil {
			bmlog.Log.WithField("err", err).Warn("i2p: listener: reopening accept socket")
			time.Sleep(time.Second)
			continue
		}
		l.acceptOne(conn, r)
	}
}

// openAcceptSocket performs HELLO + STREAM ACCEPT on a fresh SAM control
// connection, leaving it blocked waiting for the next inbound stream. The
// returned reader carries any bytes already buffered past the STREAM
// ACCEPT reply and must be used for all further reads on conn.
func (l *Listener) openAcceptSocket() (net.Conn, *bufio.Reader, error) {
	conn, err := net.DialTimeout("tcp", l.samAddr, 10*time.Second)
	if err != nil {
		return nil, nil, errors.Wrap(err, "i2p: dialing SAM bridge")
	}

	r := bufio.NewReader(conn)
	if err := handshakeHello(conn, r); err != nil {
		conn.Close()
		return nil, nil, err
	}
	if err := sendLine(conn, "STREAM ACCEPT ID="+l.nick); err != nil {
		conn.Close()
		return nil, nil, err
	}
	line, err := receiveLine(r)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if !hasResultOK(line) {
		conn.Close()
		return nil, nil, errors.Wrap(ErrSAMResult, "STREAM ACCEPT")
	}

	return conn, r, nil
}

// acceptOne blocks (retrying on timeout) for the destination line
// announcing the inbound stream, then either rejects a duplicate host or
// hands the connection to a new server-direction peer.
func (l *Listener) acceptOne(conn net.Conn, r *bufio.Reader) {
	var line string
	for atomic.LoadInt32(&l.shuttingDown) == 0 {
		_ = conn.SetReadDeadline(time.Now().Add(acceptReadTimeout))
		got, err := receiveLine(r)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			conn.Close()
			return
		}
		line = got
		break
	}
	if line == "" {
		conn.Close()
		return
	}

	destination := strings.Fields(line)[0]
	if l.isDuplicate(destination) {
		bmlog.Log.WithField("destination", destination).Debug("i2p: rejecting duplicate connection")
		conn.Close()
		return
	}

	t := peer.NewI2PTransport(conn, destination)
	p := peer.New(l.st, t, peer.Options{
		Inbound: true,
		Addr:    addrmgr.PeerAddress{Network: addrmgr.NetworkI2P, Host: destination},
	})
	l.onAccept(p)
}

func (l *Listener) isDuplicate(destination string) bool {
	for _, h := range l.st.Connections.Snapshot() {
		if h.Group() == destination {
			return true
		}
	}
	return false
}
