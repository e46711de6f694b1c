package i2p

import (
	"bufio"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/go-bmd/bmd/internal/addrmgr"
	"github.com/go-bmd/bmd/internal/bmlog"
	"github.com/go-bmd/bmd/internal/peer"
	"github.com/go-bmd/bmd/internal/state"
)

// Dial opens a fresh SAM control socket, requests a stream to destination,
// and on success constructs a client-direction peer.Peer bound to it. The
// caller is responsible for calling Start on the returned peer.
func Dial(st *state.State, samAddr, nick, destination string) (*peer.Peer, error) {
	conn, err := net.DialTimeout("tcp", samAddr, 10*time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "i2p: dialing SAM bridge")
	}

	r := bufio.NewReader(conn)
	if err := handshakeHello(conn, r); err != nil {
		conn.Close()
		return nil, err
	}

	if err := sendLine(conn, "STREAM CONNECT ID="+nick+" DESTINATION="+destination); err != nil {
		conn.Close()
		return nil, err
	}
	line, err := receiveLine(r)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !hasResultOK(line) {
		conn.Close()
		return nil, errors.Wrap(ErrSAMResult, "STREAM CONNECT")
	}

	bmlog.Log.WithField("destination", destination).Debug("i2p: dialed")

	t := peer.NewI2PTransport(conn, destination)
	p := peer.New(st, t, peer.Options{
		Inbound: false,
		Addr:    addrmgr.PeerAddress{Network: addrmgr.NetworkI2P, Host: destination},
	})
	return p, nil
}
