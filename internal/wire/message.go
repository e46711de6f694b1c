package wire

import (
	"crypto/sha512"
	"encoding/binary"
	"errors"
)

// HeaderLen is the fixed size of a message header: 4 bytes magic, 12 bytes
// command, 4 bytes payload length, 4 bytes checksum.
const HeaderLen = 24

// DefaultMagicBytes is the overlay's default network identifier.
const DefaultMagicBytes uint32 = 0xE9BEB4D9

// Sentinel framing errors, checked with errors.Is by callers that need to
// distinguish a malformed-frame error kind from the rest of the decoder.
var (
	ErrMagicMismatch         = errors.New("wire: magic bytes do not match")
	ErrPayloadLengthMismatch = errors.New("wire: payload length does not match header")
	ErrChecksumMismatch      = errors.New("wire: payload checksum does not match header")
	ErrHeaderTooShort        = errors.New("wire: header shorter than 24 bytes")
)

// Header is the fixed-size prefix of every message.
type Header struct {
	Magic    uint32
	Command  string
	Length   uint32
	Checksum [4]byte
}

// Bytes serializes the header to its 24-byte wire form.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(b[0:4], h.Magic)
	copy(b[4:16], []byte(h.Command))
	binary.BigEndian.PutUint32(b[16:20], h.Length)
	copy(b[20:24], h.Checksum[:])
	return b
}

// HeaderFromBytes parses a 24-byte header, verifying the magic bytes.
func HeaderFromBytes(b []byte, magic uint32) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrHeaderTooShort
	}
	gotMagic := binary.BigEndian.Uint32(b[0:4])
	if gotMagic != magic {
		return Header{}, ErrMagicMismatch
	}
	cmd := trimCommand(b[4:16])
	length := binary.BigEndian.Uint32(b[16:20])
	var checksum [4]byte
	copy(checksum[:], b[20:24])
	return Header{Magic: gotMagic, Command: cmd, Length: length, Checksum: checksum}, nil
}

func trimCommand(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

func checksum4(payload []byte) [4]byte {
	sum := sha512.Sum512(payload)
	var out [4]byte
	copy(out[:], sum[:4])
	return out
}

// Message pairs a command name with its payload. The header checksum is
// computed when the message is serialized by ToBytes.
type Message struct {
	Command string
	Payload []byte
}

// NewMessage builds a Message from a command name and payload.
func NewMessage(command string, payload []byte) Message {
	return Message{Command: command, Payload: payload}
}

// ToBytes serializes the full framed message (header + payload).
func (m Message) ToBytes(magic uint32) []byte {
	h := Header{
		Magic:    magic,
		Command:  m.Command,
		Length:   uint32(len(m.Payload)),
		Checksum: checksum4(m.Payload),
	}
	out := make([]byte, 0, HeaderLen+len(m.Payload))
	out = append(out, h.Bytes()...)
	out = append(out, m.Payload...)
	return out
}

// MessageFromBytes parses a full framed message, verifying magic, length,
// and checksum as three distinct failure modes.
func MessageFromBytes(b []byte, magic uint32) (Message, error) {
	h, err := HeaderFromBytes(b, magic)
	if err != nil {
		return Message{}, err
	}
	payload := b[HeaderLen:]
	if uint32(len(payload)) != h.Length {
		return Message{}, ErrPayloadLengthMismatch
	}
	if checksum4(payload) != h.Checksum {
		return Message{}, ErrChecksumMismatch
	}
	return Message{Command: h.Command, Payload: payload}, nil
}
