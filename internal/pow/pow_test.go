package pow

import (
	"crypto/sha512"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveSatisfiesTarget(t *testing.T) {
	// A generous target (half of the uint64 space) so the search
	// terminates quickly regardless of worker count.
	target := new(big.Int).SetUint64(^uint64(0) >> 1)
	var initial [64]byte
	copy(initial[:], []byte("test initial hash"))

	nonce := Solve(target, initial)

	var buf [8 + 64]byte
	copy(buf[:8], nonce[:])
	copy(buf[8:], initial[:])
	first := sha512.Sum512(buf[:])
	second := sha512.Sum512(first[:])
	value := binary.BigEndian.Uint64(second[:8])

	require.LessOrEqual(t, value, target.Uint64())
}
