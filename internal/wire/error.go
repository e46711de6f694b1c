package wire

// FatalLevel enumerates the `error` message's fatal field.
type FatalLevel uint64

const (
	// FatalNone marks an informational error, not a disconnect.
	FatalNone FatalLevel = 0
	// FatalWarning marks a recoverable warning.
	FatalWarning FatalLevel = 1
	// FatalCritical marks a fatal error: the sender is terminating the
	// connection.
	FatalCritical FatalLevel = 2
)

// MsgError is the `error` payload, used to report protocol violations and
// optionally ban the recipient for BanTime seconds.
type MsgError struct {
	Fatal   FatalLevel
	BanTime uint64
	Vector  []byte
	Text    string
}

// Bytes serializes the error payload.
func (m MsgError) Bytes() []byte {
	buf := AppendVarInt(nil, uint64(m.Fatal))
	buf = AppendVarInt(buf, m.BanTime)
	buf = AppendVarInt(buf, uint64(len(m.Vector)))
	buf = append(buf, m.Vector...)
	buf = AppendVarInt(buf, uint64(len(m.Text)))
	buf = append(buf, m.Text...)
	return buf
}

// DecodeMsgError parses an `error` payload.
func DecodeMsgError(payload []byte) (MsgError, error) {
	fatal, n, err := ReadVarInt(payload)
	if err != nil {
		return MsgError{}, err
	}
	rest := payload[n:]

	banTime, n, err := ReadVarInt(rest)
	if err != nil {
		return MsgError{}, err
	}
	rest = rest[n:]

	vecLen, n, err := ReadVarInt(rest)
	if err != nil || uint64(len(rest)-n) < vecLen {
		return MsgError{}, ErrMalformedObject
	}
	rest = rest[n:]
	vector := append([]byte(nil), rest[:vecLen]...)
	rest = rest[vecLen:]

	textLen, n, err := ReadVarInt(rest)
	if err != nil || uint64(len(rest)-n) < textLen {
		return MsgError{}, ErrMalformedObject
	}
	rest = rest[n:]
	text := string(rest[:textLen])

	return MsgError{
		Fatal:   FatalLevel(fatal),
		BanTime: banTime,
		Vector:  vector,
		Text:    text,
	}, nil
}
