// Package peer implements the per-connection state machine: handshake,
// inventory synchronization, object serving, gossip, and banning. One
// worker owns each Peer exclusively; the live set is shared through
// *state.State via the small ConnHandle capability interface.
package peer

import (
	"net"
	"time"

	"github.com/go-bmd/bmd/internal/wire"
)

// Transport is the capability a Peer is built on: IP and I2P sockets are
// interchangeable past handshake, modeled as this single interface (the
// "dynamic dispatch on transport" redesign note).
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetDeadline(t time.Time) error
	RemoteLabel() string
}

// tcpTransport adapts a net.Conn to Transport.
type tcpTransport struct {
	net.Conn
	label string
}

// NewTCPTransport wraps an already-dialed or accepted net.Conn.
func NewTCPTransport(conn net.Conn) Transport {
	return &tcpTransport{Conn: conn, label: conn.RemoteAddr().String()}
}

func (t *tcpTransport) RemoteLabel() string { return t.label }

// i2pTransport adapts an already SAM-accepted/connected stream socket,
// labeled by the remote I2P destination rather than a net.Addr.
type i2pTransport struct {
	net.Conn
	destination string
}

// NewI2PTransport wraps a SAM stream socket, labeled by the remote
// destination.
func NewI2PTransport(conn net.Conn, destination string) Transport {
	return &i2pTransport{Conn: conn, destination: destination}
}

func (t *i2pTransport) RemoteLabel() string { return t.destination }

// readTimeout bounds each individual Read call on the transport. readFull
// retries a Read that ends in a timeout, so a framed read as a whole
// blocks until the bytes arrive or the transport fails or is closed.
const readTimeout = 1 * time.Second

// frameConn layers message framing (header + payload) on top of a raw
// Transport.
type frameConn struct {
	t     Transport
	magic uint32
}

func newFrameConn(t Transport, magic uint32) *frameConn {
	return &frameConn{t: t, magic: magic}
}

// ReadMessage blocks until a full framed message arrives or the transport
// errors; per-call readTimeout expiries are retried, not returned.
func (f *frameConn) ReadMessage() (wire.Message, error) {
	header := make([]byte, wire.HeaderLen)
	if err := f.readFull(header); err != nil {
		return wire.Message{}, err
	}
	h, err := wire.HeaderFromBytes(header, f.magic)
	if err != nil {
		return wire.Message{}, err
	}
	payload := make([]byte, h.Length)
	if h.Length > 0 {
		if err := f.readFull(payload); err != nil {
			return wire.Message{}, err
		}
	}
	full := append(header, payload...)
	return wire.MessageFromBytes(full, f.magic)
}

// readFull reads len(buf) bytes, retrying any Read that ends in a timeout
// and surfacing any other error immediately. It does not return to the
// caller on a timeout.
func (f *frameConn) readFull(buf []byte) error {
	got := 0
	for got < len(buf) {
		_ = f.t.SetDeadline(time.Now().Add(readTimeout))
		n, err := f.t.Read(buf[got:])
		got += n
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
	}
	return nil
}

// WriteMessage serializes and writes a single framed message.
func (f *frameConn) WriteMessage(m wire.Message) error {
	_ = f.t.SetDeadline(time.Now().Add(5 * time.Second))
	_, err := f.t.Write(m.ToBytes(f.magic))
	return err
}

// Close closes the underlying transport.
func (f *frameConn) Close() error { return f.t.Close() }
