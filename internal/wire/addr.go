package wire

// MsgAddr is the `addr` payload: a list of peer addresses. Per the
// specification's Open Question (1), the decoder intentionally does not
// validate the declared count against the actual payload length the way
// Inv/GetData do.
type MsgAddr struct {
	Addrs []NetAddr
}

// Bytes serializes the addr payload.
func (m MsgAddr) Bytes() []byte {
	buf := AppendVarInt(nil, uint64(len(m.Addrs)))
	for _, a := range m.Addrs {
		buf = append(buf, a.Bytes()...)
	}
	return buf
}

// DecodeMsgAddr parses an `addr` payload. The declared count is read but
// not checked against the number of records actually present.
func DecodeMsgAddr(payload []byte) (MsgAddr, error) {
	_, n, err := ReadVarInt(payload)
	if err != nil {
		return MsgAddr{}, err
	}
	rest := payload[n:]
	if len(rest)%NetAddrLen != 0 {
		return MsgAddr{}, ErrMalformedObject
	}
	addrs := make([]NetAddr, 0, len(rest)/NetAddrLen)
	for len(rest) > 0 {
		a, err := NetAddrFromBytes(rest[:NetAddrLen])
		if err != nil {
			return MsgAddr{}, err
		}
		addrs = append(addrs, a)
		rest = rest[NetAddrLen:]
	}
	return MsgAddr{Addrs: addrs}, nil
}
