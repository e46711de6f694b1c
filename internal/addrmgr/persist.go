package addrmgr

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/go-bmd/bmd/internal/wire"
)

// Persist enforces the pool's capacity cap and writes it to path as a
// length-prefixed record stream: a VarInt count, then for each address a
// network byte, a uint16 port, and a VarInt-length host string. This
// format is internal to the node, not part of the wire protocol.
func (p *Pool) Persist(path string) error {
	p.EnforceCap()
	addrs := p.Snapshot()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "addrmgr: create %s", tmp)
	}
	defer f.Close()

	buf := wire.AppendVarInt(nil, uint64(len(addrs)))
	for _, a := range addrs {
		buf = append(buf, byte(a.Network))
		var portBuf [2]byte
		binary.BigEndian.PutUint16(portBuf[:], a.Port)
		buf = append(buf, portBuf[:]...)
		buf = wire.AppendVarInt(buf, uint64(len(a.Host)))
		buf = append(buf, a.Host...)
	}

	if _, err := f.Write(buf); err != nil {
		return errors.Wrapf(err, "addrmgr: write %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "addrmgr: close %s", tmp)
	}
	return os.Rename(tmp, path)
}

// Load replaces the pool's contents with what's stored at path. A missing
// file is normal on first start and is not an error; a malformed file is
// reported so the caller can log and continue with an empty pool.
func (p *Pool) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "addrmgr: read %s", path)
	}

	addrs, err := decodePool(data)
	if err != nil {
		return errors.Wrapf(err, "addrmgr: decode %s", path)
	}
	p.Replace(addrs)
	return nil
}

func decodePool(data []byte) ([]PeerAddress, error) {
	count, n, err := wire.ReadVarInt(data)
	if err != nil {
		return nil, err
	}
	rest := data[n:]

	addrs := make([]PeerAddress, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(rest) < 3 {
			return nil, io.ErrUnexpectedEOF
		}
		network := Network(rest[0])
		port := binary.BigEndian.Uint16(rest[1:3])
		rest = rest[3:]

		hostLen, n, err := wire.ReadVarInt(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		if uint64(len(rest)) < hostLen {
			return nil, io.ErrUnexpectedEOF
		}
		host := string(rest[:hostLen])
		rest = rest[hostLen:]

		addrs = append(addrs, PeerAddress{Network: network, Host: host, Port: port})
	}
	return addrs, nil
}
