package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	m := NewMessage(CmdPing, nil)
	b := m.ToBytes(DefaultMagicBytes)
	decoded, err := MessageFromBytes(b, DefaultMagicBytes)
	require.NoError(t, err)
	require.Equal(t, m.Command, decoded.Command)
	require.Equal(t, m.Payload, decoded.Payload)
}

func TestMessageFromBytesMagicMismatch(t *testing.T) {
	m := NewMessage(CmdPing, []byte("x"))
	b := m.ToBytes(DefaultMagicBytes)
	b[0] ^= 0xff
	_, err := MessageFromBytes(b, DefaultMagicBytes)
	require.ErrorIs(t, err, ErrMagicMismatch)
}

func TestMessageFromBytesTruncated(t *testing.T) {
	m := NewMessage(CmdPing, []byte("hello"))
	b := m.ToBytes(DefaultMagicBytes)
	b = b[:len(b)-1]
	_, err := MessageFromBytes(b, DefaultMagicBytes)
	require.ErrorIs(t, err, ErrPayloadLengthMismatch)
}

func TestMessageFromBytesPayloadFlipped(t *testing.T) {
	m := NewMessage(CmdPing, []byte("hello"))
	b := m.ToBytes(DefaultMagicBytes)
	for i := HeaderLen; i < len(b); i++ {
		corrupt := append([]byte(nil), b...)
		corrupt[i] ^= 0xff
		_, err := MessageFromBytes(corrupt, DefaultMagicBytes)
		require.ErrorIs(t, err, ErrChecksumMismatch)
	}
}
