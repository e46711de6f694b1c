// Package wire implements the bit-exact wire codec for the overlay's
// message framing and payload types: VarInt, NetAddr, the 24-byte message
// header, and the object entity plus its proof-of-work check.
package wire

import (
	"encoding/binary"
	"fmt"
)

// MaxVarIntPayload is the largest value representable, matching the
// protocol's use of a uint64 for the final encoding form.
const MaxVarIntPayload = ^uint64(0)

// VarIntLen returns the number of bytes PutVarInt will produce for n.
func VarIntLen(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// PutVarInt encodes n into b, returning the number of bytes written. b must
// be at least VarIntLen(n) bytes long.
func PutVarInt(b []byte, n uint64) int {
	switch {
	case n < 0xfd:
		b[0] = byte(n)
		return 1
	case n <= 0xffff:
		b[0] = 0xfd
		binary.BigEndian.PutUint16(b[1:], uint16(n))
		return 3
	case n <= 0xffffffff:
		b[0] = 0xfe
		binary.BigEndian.PutUint32(b[1:], uint32(n))
		return 5
	default:
		b[0] = 0xff
		binary.BigEndian.PutUint64(b[1:], n)
		return 9
	}
}

// AppendVarInt appends the VarInt encoding of n to b and returns the result.
func AppendVarInt(b []byte, n uint64) []byte {
	var tmp [9]byte
	l := PutVarInt(tmp[:], n)
	return append(b, tmp[:l]...)
}

// VarIntPrefixLen returns how many bytes the VarInt occupies given its first
// byte, the inverse relationship PutVarInt relies on.
func VarIntPrefixLen(first byte) int {
	switch first {
	case 0xfd:
		return 3
	case 0xfe:
		return 5
	case 0xff:
		return 9
	default:
		return 1
	}
}

// ReadVarInt decodes a VarInt from the front of b, returning the value and
// the number of bytes consumed.
func ReadVarInt(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("wire: ReadVarInt: empty input")
	}
	l := VarIntPrefixLen(b[0])
	if len(b) < l {
		return 0, 0, fmt.Errorf("wire: ReadVarInt: need %d bytes, got %d", l, len(b))
	}
	switch l {
	case 1:
		return uint64(b[0]), 1, nil
	case 3:
		return uint64(binary.BigEndian.Uint16(b[1:3])), 3, nil
	case 5:
		return uint64(binary.BigEndian.Uint32(b[1:5])), 5, nil
	default:
		return binary.BigEndian.Uint64(b[1:9]), 9, nil
	}
}
