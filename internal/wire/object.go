package wire

import (
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"time"
)

// MaxPayloadLength is the largest an object's payload is allowed to be.
const MaxPayloadLength = 1 << 18

// MaxObjectExpiryFuture bounds how far into the future expiresTime may sit
// relative to now: 28 days plus the 3-hour grace period objects also get
// after expiry before being pruned.
const MaxObjectExpiryFuture = 28*24*time.Hour + 3*time.Hour

// PruneGrace is how long past expiresTime an object is kept before the
// store prunes it.
const PruneGrace = 3 * time.Hour

// VectorLen is the size of an object's identifying vector.
const VectorLen = 32

// Vector identifies an object by the first 32 bytes of double-SHA-512 over
// its serialized form.
type Vector [VectorLen]byte

// PowParams bundles the proof-of-work constants the validity check and
// solver both need; callers own these as configuration, not the codec.
type PowParams struct {
	NonceTrialsPerByte      uint64
	PayloadLengthExtraBytes uint64
}

// DefaultPowParams matches the reference implementation's defaults.
var DefaultPowParams = PowParams{
	NonceTrialsPerByte:      1000,
	PayloadLengthExtraBytes: 1000,
}

// ErrMalformedObject is returned by DecodeObject when the payload is too
// short to contain the fixed object header fields.
var ErrMalformedObject = errors.New("wire: malformed object payload")

// Object is the opaque, proof-of-work-protected entity gossiped and stored
// by the overlay. The core never interprets Payload beyond the header
// fields below.
type Object struct {
	Nonce        [8]byte
	ExpiresTime  uint64
	ObjectType   uint32
	Version      uint64
	StreamNumber uint64
	Payload      []byte
}

// bodyBytes serializes everything after the nonce: expiresTime, objectType,
// version, streamNumber, payload. This is also the slice PoW is computed
// over (data = serialize(object)[8:]).
func (o Object) bodyBytes() []byte {
	buf := make([]byte, 0, 20+VarIntLen(o.Version)+VarIntLen(o.StreamNumber)+len(o.Payload))
	var fixed [12]byte
	binary.BigEndian.PutUint64(fixed[0:8], o.ExpiresTime)
	binary.BigEndian.PutUint32(fixed[8:12], o.ObjectType)
	buf = append(buf, fixed[:]...)
	buf = AppendVarInt(buf, o.Version)
	buf = AppendVarInt(buf, o.StreamNumber)
	buf = append(buf, o.Payload...)
	return buf
}

// Bytes serializes the full object payload as carried in an `object`
// message: nonce followed by bodyBytes().
func (o Object) Bytes() []byte {
	buf := make([]byte, 0, 8+len(o.bodyBytes()))
	buf = append(buf, o.Nonce[:]...)
	buf = append(buf, o.bodyBytes()...)
	return buf
}

// DecodeObject parses an `object` message payload.
func DecodeObject(payload []byte) (Object, error) {
	if len(payload) < 8+8+4 {
		return Object{}, ErrMalformedObject
	}
	var o Object
	copy(o.Nonce[:], payload[:8])
	o.ExpiresTime = binary.BigEndian.Uint64(payload[8:16])
	o.ObjectType = binary.BigEndian.Uint32(payload[16:20])
	rest := payload[20:]

	version, n, err := ReadVarInt(rest)
	if err != nil {
		return Object{}, ErrMalformedObject
	}
	o.Version = version
	rest = rest[n:]

	stream, n, err := ReadVarInt(rest)
	if err != nil {
		return Object{}, ErrMalformedObject
	}
	o.StreamNumber = stream
	rest = rest[n:]

	o.Payload = append([]byte(nil), rest...)
	return o, nil
}

// Vector computes the object's identifying vector: the first 32 bytes of
// double-SHA-512 over the full serialized object.
func (o Object) Vector() Vector {
	full := o.Bytes()
	first := sha512.Sum512(full)
	second := sha512.Sum512(first[:])
	var v Vector
	copy(v[:], second[:VectorLen])
	return v
}

// Tag returns the first 32 bytes of the payload when the object's
// (objectType, version) pair is one of the two conventions that index by
// tag (broadcast v5, pubkey/getpubkey v4); ok is false otherwise.
func (o Object) Tag() (tag [32]byte, ok bool) {
	isBroadcastV5 := o.ObjectType == 3 && o.Version == 5
	isKeyV4 := (o.ObjectType == 0 || o.ObjectType == 1) && o.Version == 4
	if !isBroadcastV5 && !isKeyV4 {
		return tag, false
	}
	if len(o.Payload) < 32 {
		return tag, false
	}
	copy(tag[:], o.Payload[:32])
	return tag, true
}

// IsExpired reports whether the object is past its prune deadline
// (expiresTime + 3h < now).
func (o Object) IsExpired(now time.Time) bool {
	deadline := time.Unix(int64(o.ExpiresTime), 0).Add(PruneGrace)
	return deadline.Before(now)
}

// IsValid checks every ingress invariant from the specification: not
// expired, not too far in the future, payload within size bounds, stream
// matches, and proof of work is satisfied.
func (o Object) IsValid(now time.Time, localStream uint64, pow PowParams) bool {
	if o.ExpiresTime+uint64(PruneGrace.Seconds()) < uint64(now.Unix()) {
		return false
	}
	if o.ExpiresTime > uint64(now.Unix())+uint64(MaxObjectExpiryFuture.Seconds()) {
		return false
	}
	if len(o.Payload) > MaxPayloadLength {
		return false
	}
	if o.StreamNumber != localStream {
		return false
	}
	return o.powSatisfied(now, pow)
}

// powInitialHash is the SHA-512 of everything after the nonce.
func (o Object) powInitialHash() [64]byte {
	return sha512.Sum512(o.bodyBytes())
}

// powTarget computes the proof-of-work target per the formula in the
// specification: 2^64 / (nonceTrialsPerByte * (length + dt*length/2^16)).
func (o Object) powTarget(now time.Time, pow PowParams) *big.Int {
	length := uint64(len(o.bodyBytes())) + 8 + pow.PayloadLengthExtraBytes
	nowSecs := uint64(now.Unix())
	var dt uint64
	if o.ExpiresTime > nowSecs {
		dt = o.ExpiresTime - nowSecs
	}

	denom := new(big.Int).SetUint64(pow.NonceTrialsPerByte)
	extra := new(big.Int).Mul(new(big.Int).SetUint64(dt), new(big.Int).SetUint64(length))
	extra.Div(extra, big.NewInt(1<<16))
	inner := new(big.Int).Add(new(big.Int).SetUint64(length), extra)
	denom.Mul(denom, inner)
	if denom.Sign() == 0 {
		return new(big.Int).SetUint64(math.MaxUint64)
	}

	numerator := new(big.Int).Lsh(big.NewInt(1), 64)
	return numerator.Div(numerator, denom)
}

func (o Object) powValue() *big.Int {
	initial := o.powInitialHash()
	var in [8 + 64]byte
	copy(in[:8], o.Nonce[:])
	copy(in[8:], initial[:])
	first := sha512.Sum512(in[:])
	second := sha512.Sum512(first[:])
	return new(big.Int).SetBytes(second[:8])
}

func (o Object) powSatisfied(now time.Time, pow PowParams) bool {
	return o.powValue().Cmp(o.powTarget(now, pow)) <= 0
}

// SolveNonce mines a nonce satisfying the object's proof-of-work target
// using the supplied primitive (the actual search strategy is an external
// collaborator per the specification; this just drives it).
func (o *Object) SolveNonce(now time.Time, pow PowParams, solve func(target *big.Int, initialHash [64]byte) [8]byte) {
	target := o.powTarget(now, pow)
	initial := o.powInitialHash()
	o.Nonce = solve(target, initial)
}
