package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []struct {
		n      uint64
		length int
	}{
		{0, 1},
		{42, 1},
		{252, 1},
		{253, 3},
		{100500, 5},
		{65535, 3},
		{1<<32 - 1, 5},
		{1 << 32, 9},
		{1<<64 - 1, 9},
	}

	for _, c := range cases {
		buf := AppendVarInt(nil, c.n)
		require.Lenf(t, buf, c.length, "encoded length for %d", c.n)
		got, n, err := ReadVarInt(buf)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, c.n, got)
	}
}
