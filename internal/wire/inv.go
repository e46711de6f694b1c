package wire

import "errors"

// ErrVectorCountMismatch is returned when a decoded inv/getdata message's
// declared count does not match the number of vectors actually present.
var ErrVectorCountMismatch = errors.New("wire: vector count does not match payload")

func encodeVectors(vectors []Vector) []byte {
	buf := AppendVarInt(nil, uint64(len(vectors)))
	for _, v := range vectors {
		buf = append(buf, v[:]...)
	}
	return buf
}

func decodeVectors(payload []byte) ([]Vector, error) {
	count, n, err := ReadVarInt(payload)
	if err != nil {
		return nil, err
	}
	rest := payload[n:]
	if len(rest)%VectorLen != 0 {
		return nil, ErrVectorCountMismatch
	}
	actual := uint64(len(rest) / VectorLen)
	if actual != count {
		return nil, ErrVectorCountMismatch
	}
	vectors := make([]Vector, 0, actual)
	for len(rest) > 0 {
		var v Vector
		copy(v[:], rest[:VectorLen])
		vectors = append(vectors, v)
		rest = rest[VectorLen:]
	}
	return vectors, nil
}

// MsgInv is the `inv` payload: a list of vectors being advertised.
type MsgInv struct {
	Vectors []Vector
}

// Bytes serializes the inv payload.
func (m MsgInv) Bytes() []byte { return encodeVectors(m.Vectors) }

// DecodeMsgInv parses an `inv` payload, rejecting a mismatched count.
func DecodeMsgInv(payload []byte) (MsgInv, error) {
	v, err := decodeVectors(payload)
	if err != nil {
		return MsgInv{}, err
	}
	return MsgInv{Vectors: v}, nil
}

// MsgGetData is the `getdata` payload: a list of vectors being requested.
type MsgGetData struct {
	Vectors []Vector
}

// Bytes serializes the getdata payload.
func (m MsgGetData) Bytes() []byte { return encodeVectors(m.Vectors) }

// DecodeMsgGetData parses a `getdata` payload, rejecting a mismatched
// count.
func DecodeMsgGetData(payload []byte) (MsgGetData, error) {
	v, err := decodeVectors(payload)
	if err != nil {
		return MsgGetData{}, err
	}
	return MsgGetData{Vectors: v}, nil
}
