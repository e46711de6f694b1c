package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetAddrNoPrefixRoundTrip(t *testing.T) {
	addr := NetAddrNoPrefix{
		Services: SFNodeNetwork,
		IP:       net.ParseIP("127.0.0.1"),
		Port:     8444,
	}
	b := addr.Bytes()
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x01,
	}, b[8:24])

	decoded, err := NetAddrNoPrefixFromBytes(b)
	require.NoError(t, err)
	require.Equal(t, addr.Services, decoded.Services)
	require.True(t, addr.IP.Equal(decoded.IP))
	require.Equal(t, addr.Port, decoded.Port)
}

func TestNetAddrNoPrefixIPv6(t *testing.T) {
	addr := NetAddrNoPrefix{
		Services: 1,
		IP:       net.ParseIP("0102:0304:0506:0708:090A:0B0C:0D0E:0F10"),
		Port:     8444,
	}
	b := addr.Bytes()
	require.Equal(t, []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
	}, b[8:24])
}

func TestIPNetworkGroup(t *testing.T) {
	v4a := IPNetworkGroup(net.ParseIP("191.168.1.1"))
	v4b := IPNetworkGroup(net.ParseIP("191.168.2.2"))
	require.Equal(t, v4a, v4b)

	v4c := IPNetworkGroup(net.ParseIP("1.1.1.1"))
	require.NotEqual(t, v4a, v4c)
}
