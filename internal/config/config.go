// Package config holds the node's runtime configuration: the constants and
// CLI-derived values the rest of the core is threaded with instead of
// reaching into package-level globals (see DESIGN.md's State redesign
// note).
package config

import (
	"crypto/rand"
	"fmt"

	"github.com/go-bmd/bmd/internal/wire"
)

// Default constant values recognized by the node, per the specification.
const (
	DefaultProtocolVersion         = 3
	DefaultServices                = 3
	DefaultStream                  = 1
	DefaultOutgoingConnections     = 8
	DefaultConnectionLimit         = 250
	DefaultPort                    = 8444
	DefaultMaxTimeOffsetSeconds    = 3600
	DefaultSamHost                 = "127.0.0.1"
	DefaultSamPort                 = 7656
	DefaultUserAgent               = "/bmd:0.1.0/"
	DefaultNonceTrialsPerByte      = 1000
	DefaultPayloadLengthExtraBytes = 1000

	// ObjectTypeI2PDestination is the object type used when the node
	// publishes its own I2P destination to the overlay ("I2P" packed
	// big-endian, the reference implementation's convention).
	ObjectTypeI2PDestination = 0x493250
	ObjectVersionI2P         = 1
)

// Config bundles every recognized configuration constant and CLI-derived
// value. A single Config is built at startup and threaded into every
// worker; nothing reaches back into package-level globals.
type Config struct {
	DataDir   string
	SourceDir string

	Port            uint16
	ConnectionLimit int
	TrustedPeer     string // host:port, empty if unset; a value without a port is not dialed
	NoIncoming      bool
	I2PEnabled      bool
	IPEnabled       bool

	MagicBytes              uint32
	ProtocolVersion         uint32
	Services                wire.ServiceFlag
	Stream                  uint64
	NonceTrialsPerByte      uint64
	PayloadLengthExtraBytes uint64
	OutgoingConnections     int
	UserAgent               string
	MaxTimeOffsetSeconds    int64

	SamHost string
	SamPort uint16

	// Nonce identifies this process to itself, to detect self-connection.
	// Chosen randomly once at startup.
	Nonce [8]byte
}

// Default returns a Config populated with the specification's defaults and
// a freshly generated process nonce.
func Default() (Config, error) {
	cfg := Config{
		Port:                    DefaultPort,
		ConnectionLimit:         DefaultConnectionLimit,
		IPEnabled:               true,
		MagicBytes:              wire.DefaultMagicBytes,
		ProtocolVersion:         DefaultProtocolVersion,
		Services:                DefaultServices,
		Stream:                  DefaultStream,
		NonceTrialsPerByte:      DefaultNonceTrialsPerByte,
		PayloadLengthExtraBytes: DefaultPayloadLengthExtraBytes,
		OutgoingConnections:     DefaultOutgoingConnections,
		UserAgent:               DefaultUserAgent,
		MaxTimeOffsetSeconds:    DefaultMaxTimeOffsetSeconds,
		SamHost:                 DefaultSamHost,
		SamPort:                 DefaultSamPort,
	}
	if _, err := rand.Read(cfg.Nonce[:]); err != nil {
		return Config{}, fmt.Errorf("config: generating process nonce: %w", err)
	}
	return cfg, nil
}

// PowParams returns the proof-of-work parameters implied by this config.
func (c Config) PowParams() wire.PowParams {
	return wire.PowParams{
		NonceTrialsPerByte:      c.NonceTrialsPerByte,
		PayloadLengthExtraBytes: c.PayloadLengthExtraBytes,
	}
}
