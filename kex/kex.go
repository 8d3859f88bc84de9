// Package kex implements the FHMQV (Full-Hashed Menezes-Qu-Vanstone)
// one-round authenticated key exchange: each party combines a
// long-term identity scalar with a fresh ephemeral scalar, exchanges
// public values once, and both sides derive an identical 32-byte
// shared secret without a second round trip.
package kex

import (
	"crypto/rand"

	"github.com/pomoke/cryptx/cryptxerr"
	"github.com/pomoke/cryptx/edwards"
	"github.com/pomoke/cryptx/scalar"
	"github.com/pomoke/cryptx/sha256x"
)

// Role distinguishes the initiator ("a", the client side in the
// tunnel) from the responder ("b", the server side), which determines
// the canonical A/B/X/Y assignment used in the hash scalars and final
// key derivation.
type Role int

const (
	Initiator Role = iota
	Responder
)

// clamp forces the top two bits of the scalar to 0b01 (|0x40, &0x7f)
// and leaves the low three bits untouched. This is intentionally NOT
// full X25519 clamping (which would also clear the low three bits);
// the handshake preserves the source's partial clamp exactly for
// interoperability.
func clamp(k [32]byte) [32]byte {
	k[31] = (k[31] & 0x7f) | 0x40
	return k
}

// Handshake holds one party's state across a single FHMQV exchange.
type Handshake struct {
	role Role

	longPriv [32]byte
	longPub  edwards.Affine
	ephPriv  [32]byte
	ephPub   edwards.Affine

	remoteLongPub edwards.Affine
	remoteEphPub  edwards.Affine
	haveRemote    bool
}

// New creates a handshake for the given role, deriving the long-term
// public key from privkey and generating a fresh clamped ephemeral
// keypair.
func New(role Role, privkey [32]byte) (*Handshake, error) {
	longPriv := clamp(privkey)
	var ephRaw [32]byte
	if _, err := rand.Read(ephRaw[:]); err != nil {
		return nil, cryptxerr.Wrap(cryptxerr.InvalidKey, "generate ephemeral key", err)
	}
	ephPriv := clamp(ephRaw)

	return &Handshake{
		role:     role,
		longPriv: longPriv,
		longPub:  edwards.ScalarMul(edwards.G, longPriv),
		ephPriv:  ephPriv,
		ephPub:   edwards.ScalarMul(edwards.G, ephPriv),
	}, nil
}

// Identity returns the compressed long-term public key.
func (h *Handshake) Identity() [32]byte { return edwards.Compress(h.longPub) }

// Ephemeral returns the compressed ephemeral public key to send to the peer.
func (h *Handshake) Ephemeral() [32]byte { return edwards.Compress(h.ephPub) }

// SetRemote validates and records the peer's identity and ephemeral
// public keys. If pin is non-nil, the received identity is overridden
// by the pinned value before any further computation — this makes
// impersonation by the peer impossible when the pin matches the true
// identity, and produces a mismatched shared secret (not a crash)
// otherwise.
func (h *Handshake) SetRemote(identity, ephemeral [32]byte, pin *[32]byte) error {
	if pin != nil {
		identity = *pin
	}

	longPub, ok := edwards.Decompress(identity)
	if !ok {
		return cryptxerr.New(cryptxerr.InvalidPoint, "remote identity key does not decompress")
	}
	if edwards.CofactorCheck(longPub) {
		return cryptxerr.New(cryptxerr.SmallOrderAttack, "remote identity key has small order")
	}

	ephPub, ok := edwards.Decompress(ephemeral)
	if !ok {
		return cryptxerr.New(cryptxerr.InvalidPoint, "remote ephemeral key does not decompress")
	}
	if edwards.CofactorCheck(ephPub) {
		return cryptxerr.New(cryptxerr.SmallOrderAttack, "remote ephemeral key has small order")
	}

	h.remoteLongPub = longPub
	h.remoteEphPub = ephPub
	h.haveRemote = true
	return nil
}

func hashScalar(parts ...[32]byte) scalar.Elem {
	buf := make([]byte, 0, 32*len(parts))
	for _, p := range parts {
		buf = append(buf, p[:]...)
	}
	digest := sha256x.Sum256(buf)
	return scalar.FromBytes(digest)
}

// Derive completes the exchange and returns the 32-byte shared
// secret, the first 16 bytes of which form the record layer's cipher
// key and the last 16 bytes its MAC key.
func (h *Handshake) Derive() ([32]byte, error) {
	if !h.haveRemote {
		return [32]byte{}, cryptxerr.New(cryptxerr.NoExchange, "remote public material not set")
	}

	var A, B, X, Y edwards.Affine
	switch h.role {
	case Initiator:
		A, X = h.longPub, h.ephPub
		B, Y = h.remoteLongPub, h.remoteEphPub
	case Responder:
		B, Y = h.longPub, h.ephPub
		A, X = h.remoteLongPub, h.remoteEphPub
	}

	cA, cB := edwards.Compress(A), edwards.Compress(B)
	cX, cY := edwards.Compress(X), edwards.Compress(Y)

	d := hashScalar(cX, cY, cA, cB)
	e := hashScalar(cY, cX, cA, cB)

	var s scalar.Elem
	var p edwards.Affine
	switch h.role {
	case Initiator:
		a := scalar.FromBytes(h.longPriv)
		x := scalar.FromBytes(h.ephPriv)
		s = scalar.Add(x, scalar.Mul(d, a))
		p = edwards.AddAffine(Y, edwards.ScalarMul(B, e.ToBytes()))
	case Responder:
		b := scalar.FromBytes(h.longPriv)
		y := scalar.FromBytes(h.ephPriv)
		s = scalar.Add(y, scalar.Mul(e, b))
		p = edwards.AddAffine(X, edwards.ScalarMul(A, d.ToBytes()))
	}

	k := edwards.ScalarMul(p, s.ToBytes())
	ck := edwards.Compress(k)

	buf := make([]byte, 0, 32*5)
	buf = append(buf, ck[:]...)
	buf = append(buf, cA[:]...)
	buf = append(buf, cB[:]...)
	buf = append(buf, cX[:]...)
	buf = append(buf, cY[:]...)

	return sha256x.Sum256(buf), nil
}

// SplitKeys splits a 32-byte shared secret into the record layer's
// 16-byte cipher key and 16-byte MAC key.
func SplitKeys(shared [32]byte) (cipherKey, macKey [16]byte) {
	copy(cipherKey[:], shared[0:16])
	copy(macKey[:], shared[16:32])
	return
}
