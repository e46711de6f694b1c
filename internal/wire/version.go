package wire

import (
	"encoding/binary"
	"errors"
)

// MaxStreams bounds the streams list carried in a version message; longer
// lists are truncated on send and rejected on receive.
const MaxStreams = 160000

// ErrTooManyStreams is returned when a decoded version message claims more
// streams than MaxStreams allows.
var ErrTooManyStreams = errors.New("wire: version message advertises too many streams")

// MsgVersion is the `version` payload exchanged at the start of a
// handshake.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        ServiceFlag
	Timestamp       uint64
	AddrRemote      NetAddrNoPrefix
	AddrLocal       NetAddrNoPrefix
	Nonce           [8]byte
	UserAgent       string
	Streams         []uint64
}

// Bytes serializes the version payload, truncating the streams list to
// MaxStreams entries.
func (v MsgVersion) Bytes() []byte {
	streams := v.Streams
	if len(streams) > MaxStreams {
		streams = streams[:MaxStreams]
	}

	buf := make([]byte, 0, 4+8+8+NetAddrNoPrefixLen*2+8+len(v.UserAgent)+16)
	var hdr [20]byte
	binary.BigEndian.PutUint32(hdr[0:4], v.ProtocolVersion)
	binary.BigEndian.PutUint64(hdr[4:12], uint64(v.Services))
	binary.BigEndian.PutUint64(hdr[12:20], v.Timestamp)
	buf = append(buf, hdr[:]...)
	buf = append(buf, v.AddrRemote.Bytes()...)
	buf = append(buf, v.AddrLocal.Bytes()...)
	buf = append(buf, v.Nonce[:]...)
	buf = AppendVarInt(buf, uint64(len(v.UserAgent)))
	buf = append(buf, v.UserAgent...)
	buf = AppendVarInt(buf, uint64(len(streams)))
	for _, s := range streams {
		buf = AppendVarInt(buf, s)
	}
	return buf
}

// DecodeMsgVersion parses a `version` payload.
func DecodeMsgVersion(payload []byte) (MsgVersion, error) {
	if len(payload) < 20+NetAddrNoPrefixLen*2+8 {
		return MsgVersion{}, ErrMalformedObject
	}
	var v MsgVersion
	v.ProtocolVersion = binary.BigEndian.Uint32(payload[0:4])
	v.Services = ServiceFlag(binary.BigEndian.Uint64(payload[4:12]))
	v.Timestamp = binary.BigEndian.Uint64(payload[12:20])
	rest := payload[20:]

	remote, err := NetAddrNoPrefixFromBytes(rest[:NetAddrNoPrefixLen])
	if err != nil {
		return MsgVersion{}, err
	}
	v.AddrRemote = remote
	rest = rest[NetAddrNoPrefixLen:]

	local, err := NetAddrNoPrefixFromBytes(rest[:NetAddrNoPrefixLen])
	if err != nil {
		return MsgVersion{}, err
	}
	v.AddrLocal = local
	rest = rest[NetAddrNoPrefixLen:]

	copy(v.Nonce[:], rest[:8])
	rest = rest[8:]

	uaLen, n, err := ReadVarInt(rest)
	if err != nil || uint64(len(rest)-n) < uaLen {
		return MsgVersion{}, ErrMalformedObject
	}
	rest = rest[n:]
	v.UserAgent = string(rest[:uaLen])
	rest = rest[uaLen:]

	streamCount, n, err := ReadVarInt(rest)
	if err != nil {
		return MsgVersion{}, ErrMalformedObject
	}
	if streamCount > MaxStreams {
		return MsgVersion{}, ErrTooManyStreams
	}
	rest = rest[n:]

	streams := make([]uint64, 0, streamCount)
	for len(rest) > 0 {
		s, n, err := ReadVarInt(rest)
		if err != nil {
			return MsgVersion{}, ErrMalformedObject
		}
		streams = append(streams, s)
		rest = rest[n:]
	}
	if uint64(len(streams)) != streamCount {
		return MsgVersion{}, errors.New("wire: version message stream count mismatch")
	}
	v.Streams = streams
	return v, nil
}
