package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAddrSetSemantics decodes 500 identical peer records and checks the
// single decoded record, mirroring the reference implementation's fixture
// of 500 duplicate NetAddr entries.
func TestAddrSetSemantics(t *testing.T) {
	one := NetAddr{
		Timestamp: 1626611891,
		Stream:    1,
		NetAddrNoPrefix: NetAddrNoPrefix{
			Services: 1,
			IP:       net.ParseIP("127.0.0.1"),
			Port:     8444,
		},
	}

	payload := AppendVarInt(nil, 500)
	for i := 0; i < 500; i++ {
		payload = append(payload, one.Bytes()...)
	}

	msg, err := DecodeMsgAddr(payload)
	require.NoError(t, err)

	unique := make(map[string]struct{})
	for _, a := range msg.Addrs {
		unique[string(a.Bytes())] = struct{}{}
	}
	require.Len(t, unique, 1)

	decoded := msg.Addrs[0]
	require.Equal(t, uint32(1), decoded.Stream)
	require.Equal(t, ServiceFlag(1), decoded.Services)
	require.True(t, decoded.IP.Equal(net.ParseIP("127.0.0.1")))
	require.Equal(t, uint16(8444), decoded.Port)
}
