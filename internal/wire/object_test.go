package wire

import (
	"crypto/sha512"
	"encoding/binary"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mine is a trivial brute-force PoW solver used only by tests; the
// specification treats the real solver as an external collaborator.
func mine(target *big.Int, initialHash [64]byte) [8]byte {
	var nonce [8]byte
	for i := uint64(0); ; i++ {
		binary.BigEndian.PutUint64(nonce[:], i)
		var in [8 + 64]byte
		copy(in[:8], nonce[:])
		copy(in[8:], initialHash[:])
		first := sha512.Sum512(in[:])
		second := sha512.Sum512(first[:])
		val := new(big.Int).SetBytes(second[:8])
		if val.Cmp(target) <= 0 {
			return nonce
		}
	}
}

func TestObjectValidityRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	easyPow := PowParams{NonceTrialsPerByte: 1, PayloadLengthExtraBytes: 0}

	o := Object{
		ExpiresTime:  uint64(now.Add(time.Hour).Unix()),
		ObjectType:   1,
		Version:      4,
		StreamNumber: 1,
		Payload:      []byte("hello object"),
	}
	o.SolveNonce(now, easyPow, mine)

	require.True(t, o.IsValid(now, 1, easyPow))

	decoded, err := DecodeObject(o.Bytes())
	require.NoError(t, err)
	require.Equal(t, o.Vector(), decoded.Vector())
}

func TestObjectInvalidWrongStream(t *testing.T) {
	now := time.Unix(1700000000, 0)
	easyPow := PowParams{NonceTrialsPerByte: 1, PayloadLengthExtraBytes: 0}
	o := Object{
		ExpiresTime:  uint64(now.Add(time.Hour).Unix()),
		StreamNumber: 2,
		Payload:      []byte("x"),
	}
	o.SolveNonce(now, easyPow, mine)
	require.False(t, o.IsValid(now, 1, easyPow))
}

func TestObjectInvalidExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	easyPow := PowParams{NonceTrialsPerByte: 1, PayloadLengthExtraBytes: 0}
	o := Object{
		ExpiresTime:  uint64(now.Add(-4 * time.Hour).Unix()),
		StreamNumber: 1,
	}
	o.SolveNonce(now, easyPow, mine)
	require.True(t, o.IsExpired(now))
	require.False(t, o.IsValid(now, 1, easyPow))
}

func TestObjectInvalidTooFarInFuture(t *testing.T) {
	now := time.Unix(1700000000, 0)
	easyPow := PowParams{NonceTrialsPerByte: 1, PayloadLengthExtraBytes: 0}
	o := Object{
		ExpiresTime:  uint64(now.Add(MaxObjectExpiryFuture + time.Hour).Unix()),
		StreamNumber: 1,
	}
	o.SolveNonce(now, easyPow, mine)
	require.False(t, o.IsValid(now, 1, easyPow))
}

func TestObjectInvalidPayloadTooLong(t *testing.T) {
	now := time.Unix(1700000000, 0)
	o := Object{
		ExpiresTime:  uint64(now.Add(time.Hour).Unix()),
		StreamNumber: 1,
		Payload:      make([]byte, MaxPayloadLength+1),
	}
	require.False(t, o.IsValid(now, 1, DefaultPowParams))
}

func TestObjectTag(t *testing.T) {
	payload := make([]byte, 40)
	for i := range payload[:32] {
		payload[i] = byte(i)
	}
	o := Object{ObjectType: 3, Version: 5, Payload: payload}
	tag, ok := o.Tag()
	require.True(t, ok)
	require.Equal(t, payload[:32], tag[:])

	noTag := Object{ObjectType: 2, Version: 1, Payload: payload}
	_, ok = noTag.Tag()
	require.False(t, ok)
}
