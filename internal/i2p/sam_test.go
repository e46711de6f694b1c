package i2p

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// syntheticPrivateDestination builds a private-destination blob shaped
// like a real one: 387 bytes of key material followed by a certificate
// whose declared length (bytes[385:387]) matches the extra bytes appended,
// the same layout PubFromPriv parses.
func syntheticPrivateDestination(extra int) []byte {
	raw := make([]byte, 387+extra)
	for i := range raw {
		raw[i] = byte(i % 251)
	}
	raw[385] = byte(extra >> 8)
	raw[386] = byte(extra)
	return raw
}

func TestPubFromPrivExtractsDeclaredLength(t *testing.T) {
	raw := syntheticPrivateDestination(3)
	priv := samEncoding.EncodeToString(raw)

	pub, err := PubFromPriv(priv)
	require.NoError(t, err)

	decodedPub, err := samEncoding.DecodeString(pub)
	require.NoError(t, err)
	require.Equal(t, raw[:390], decodedPub)
}

func TestPubFromPrivRejectsShortInput(t *testing.T) {
	priv := samEncoding.EncodeToString(make([]byte, 10))
	_, err := PubFromPriv(priv)
	require.Error(t, err)
}

func TestB32FromPubIsLowercaseAndSuffixed(t *testing.T) {
	raw := syntheticPrivateDestination(0)[:387]
	pub := samEncoding.EncodeToString(raw)

	b32, err := B32FromPub(pub)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(b32, ".b32.i2p"))
	require.Equal(t, strings.ToLower(b32), b32)
	require.NotContains(t, b32, "=")
}

func TestDecodedPublicKeyRoundTrips(t *testing.T) {
	raw := syntheticPrivateDestination(0)[:387]
	pub := samEncoding.EncodeToString(raw)

	decoded, err := DecodedPublicKey(pub)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestHasResultOK(t *testing.T) {
	require.True(t, hasResultOK("HELLO REPLY RESULT=OK VERSION=3.1"))
	require.False(t, hasResultOK("HELLO REPLY RESULT=NOVERSION"))
}
