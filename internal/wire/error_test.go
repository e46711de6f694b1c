package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestErrorPayloadDecode mirrors the reference implementation's fixture: a
// hand-built "too many connections" error payload.
func TestErrorPayloadDecode(t *testing.T) {
	text := "Too many connections from your IP. Closing connection."
	require.Len(t, text, 0x36)

	payload := []byte{0x02, 0x00, 0x00, 0x36}
	payload = append(payload, text...)

	decoded, err := DecodeMsgError(payload)
	require.NoError(t, err)
	require.Equal(t, FatalCritical, decoded.Fatal)
	require.Equal(t, uint64(0), decoded.BanTime)
	require.Empty(t, decoded.Vector)
	require.Equal(t, text, decoded.Text)

	require.Equal(t, payload, decoded.Bytes())
}

func TestErrorPayloadRoundTrip(t *testing.T) {
	var vec [32]byte
	vec[0] = 0xAB
	m := MsgError{
		Fatal:   FatalWarning,
		BanTime: 3600,
		Vector:  vec[:],
		Text:    "bad magic",
	}
	decoded, err := DecodeMsgError(m.Bytes())
	require.NoError(t, err)
	require.Equal(t, m, decoded)
}
