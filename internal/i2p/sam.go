// Package i2p speaks the SAM v3 text protocol to a local I2P router,
// providing session setup, outbound dialing, and inbound accept loops as
// sibling workers to the TCP connection handling in internal/peer.
package i2p

import (
	"bufio"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const samAltchars = "-~"

var samEncoding = base64.NewEncoding(
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789" + samAltchars,
).WithPadding(base64.StdPadding)

// ErrSAMResult wraps a SAM reply line that did not contain RESULT=OK.
var ErrSAMResult = errors.New("i2p: SAM command did not return RESULT=OK")

// sendLine writes a single SAM command line.
func sendLine(conn net.Conn, line string) error {
	_, err := conn.Write([]byte(line + "\n"))
	return err
}

// receiveLine reads one newline-terminated SAM reply line.
func receiveLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func hasResultOK(line string) bool {
	for _, field := range strings.Fields(line) {
		if field == "RESULT=OK" {
			return true
		}
	}
	return false
}

// handshakeHello performs the SAM HELLO exchange common to every SAM
// socket this package opens.
func handshakeHello(conn net.Conn, r *bufio.Reader) error {
	if err := sendLine(conn, "HELLO VERSION MIN=3.0 MAX=3.3"); err != nil {
		return err
	}
	line, err := receiveLine(r)
	if err != nil {
		return err
	}
	if !hasResultOK(line) {
		return errors.Wrap(ErrSAMResult, "HELLO")
	}
	return nil
}

// Session holds the destination keys and derived addresses for an SAM
// session created with SESSION CREATE.
type Session struct {
	Nick        string
	PrivateKey  string
	PublicKey   string
	B32Address  string
	IsTransient bool
}

// CreateSession opens a control connection to the SAM bridge and creates a
// STREAM-style session. An empty priv requests a TRANSIENT destination.
func CreateSession(samAddr, nick, priv string) (Session, error) {
	conn, err := net.DialTimeout("tcp", samAddr, 10*time.Second)
	if err != nil {
		return Session{}, errors.Wrap(err, "i2p: dialing SAM bridge")
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if err := handshakeHello(conn, r); err != nil {
		return Session{}, err
	}

	destArg := "TRANSIENT"
	isTransient := true
	if priv != "" {
		destArg = priv
		isTransient = false
	}

	cmd := fmt.Sprintf("SESSION CREATE STYLE=STREAM ID=%s DESTINATION=%s", nick, destArg)
	if err := sendLine(conn, cmd); err != nil {
		return Session{}, err
	}
	line, err := receiveLine(r)
	if err != nil {
		return Session{}, err
	}
	if !hasResultOK(line) {
		return Session{}, errors.Wrap(ErrSAMResult, "SESSION CREATE")
	}

	privOut := destArg
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, "DESTINATION=") {
			privOut = strings.TrimPrefix(field, "DESTINATION=")
		}
	}

	pub, err := PubFromPriv(privOut)
	if err != nil {
		return Session{}, err
	}
	b32, err := B32FromPub(pub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Nick:        nick,
		PrivateKey:  privOut,
		PublicKey:   pub,
		B32Address:  b32,
		IsTransient: isTransient,
	}, nil
}

// PubFromPriv derives the public destination from a base64 (SAM altchars)
// private destination: the public key is the certificate-header-prefixed
// slice whose length is carried in the private key's own bytes[385:387].
func PubFromPriv(priv string) (string, error) {
	raw, err := samEncoding.DecodeString(priv)
	if err != nil {
		return "", errors.Wrap(err, "i2p: decoding private destination")
	}
	if len(raw) < 387 {
		return "", errors.New("i2p: private destination too short")
	}
	extra := int(raw[385])<<8 | int(raw[386])
	end := 387 + extra
	if end > len(raw) {
		return "", errors.New("i2p: private destination certificate length out of range")
	}
	pub := raw[:end]
	return samEncoding.EncodeToString(pub), nil
}

// B32FromPub derives the lowercase .b32.i2p address from a base64 public
// destination: base32(SHA-256(pub)), stripped of padding.
func B32FromPub(pub string) (string, error) {
	raw, err := samEncoding.DecodeString(pub)
	if err != nil {
		return "", errors.Wrap(err, "i2p: decoding public destination")
	}
	sum := sha256.Sum256(raw)
	encoded := base32.StdEncoding.EncodeToString(sum[:])
	encoded = strings.ToLower(strings.TrimRight(encoded, "="))
	return encoded + ".b32.i2p", nil
}

// DecodedPublicKey returns the raw bytes of a base64 (SAM altchars) public
// destination, the form published as an object payload.
func DecodedPublicKey(pub string) ([]byte, error) {
	return samEncoding.DecodeString(pub)
}
