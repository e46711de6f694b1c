package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionMessageRoundTrip(t *testing.T) {
	v := MsgVersion{
		ProtocolVersion: 3,
		Services:        3,
		Timestamp:       1700000000,
		AddrRemote: NetAddrNoPrefix{
			Services: 1,
			IP:       net.ParseIP("127.0.0.1"),
			Port:     8444,
		},
		AddrLocal: NetAddrNoPrefix{
			Services: 3,
			IP:       net.ParseIP("127.0.0.1"),
			Port:     8444,
		},
		UserAgent: "/PyBitmessage:0.6.3.2/",
		Streams:   []uint64{1, 2, 3},
	}
	copy(v.Nonce[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	b := v.Bytes()
	decoded, err := DecodeMsgVersion(b)
	require.NoError(t, err)

	require.Equal(t, uint32(3), decoded.ProtocolVersion)
	require.Equal(t, ServiceFlag(3), decoded.Services)
	require.True(t, decoded.AddrRemote.IP.Equal(net.ParseIP("127.0.0.1")))
	require.Equal(t, uint16(8444), decoded.AddrRemote.Port)
	require.Equal(t, "/PyBitmessage:0.6.3.2/", decoded.UserAgent)
	require.Equal(t, []uint64{1, 2, 3}, decoded.Streams)

	// Re-encoding preserves all bytes except the 8 timestamp bytes (offset
	// 12..20 inside the payload, after protocolVersion+services).
	reencoded := decoded.Bytes()
	require.Equal(t, len(b), len(reencoded))
	require.Equal(t, b[:12], reencoded[:12])
	require.Equal(t, b[20:], reencoded[20:])
}

func TestVersionMessageStreamTruncation(t *testing.T) {
	streams := make([]uint64, MaxStreams+10)
	for i := range streams {
		streams[i] = uint64(i)
	}
	v := MsgVersion{Streams: streams}
	b := v.Bytes()
	decoded, err := DecodeMsgVersion(b)
	require.NoError(t, err)
	require.Len(t, decoded.Streams, MaxStreams)
}
