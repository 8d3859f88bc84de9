// Package sign implements the Schnorr/ElGamal-style signature scheme
// used for identity attestation over the Edwards group.
package sign

import (
	"github.com/pomoke/cryptx/edwards"
	"github.com/pomoke/cryptx/scalar"
	"github.com/pomoke/cryptx/sha256x"
)

// PublicKey returns the compressed public key sk*G for a private scalar.
func PublicKey(sk [32]byte) [32]byte {
	return edwards.Compress(edwards.ScalarMul(edwards.G, sk))
}

// Sign produces a signature (R, s) over msg under the scalar sk.
// k = SHA256(msg||sk); R = k*G; h = SHA256(msg||compress(R)||compress(sk*G));
// s = k + h*sk mod n.
func Sign(sk [32]byte, msg []byte) (r [32]byte, s [32]byte) {
	pubC := PublicKey(sk)

	kBuf := make([]byte, 0, len(msg)+32)
	kBuf = append(kBuf, msg...)
	kBuf = append(kBuf, sk[:]...)
	kDigest := sha256x.Sum256(kBuf)
	k := scalar.FromBytes(kDigest)

	rPoint := edwards.ScalarMul(edwards.G, k.ToBytes())
	rC := edwards.Compress(rPoint)

	hBuf := make([]byte, 0, len(msg)+64)
	hBuf = append(hBuf, msg...)
	hBuf = append(hBuf, rC[:]...)
	hBuf = append(hBuf, pubC[:]...)
	hDigest := sha256x.Sum256(hBuf)
	h := scalar.FromBytes(hDigest)

	skScalar := scalar.FromBytes(sk)
	sVal := scalar.Add(k, scalar.Mul(h, skScalar))

	return rC, sVal.ToBytes()
}

// Verify checks a signature (rBytes, sBytes) over msg under the
// compressed public key pk. It never panics, returning false on any
// malformed input (including an rBytes or pk that fails to
// decompress).
func Verify(pk [32]byte, msg []byte, rBytes [32]byte, sBytes [32]byte) bool {
	pub, ok := edwards.Decompress(pk)
	if !ok {
		return false
	}
	rPoint, ok := edwards.Decompress(rBytes)
	if !ok {
		return false
	}

	hBuf := make([]byte, 0, len(msg)+64)
	hBuf = append(hBuf, msg...)
	hBuf = append(hBuf, rBytes[:]...)
	hBuf = append(hBuf, pk[:]...)
	hDigest := sha256x.Sum256(hBuf)
	h := scalar.FromBytes(hDigest)

	lhs := edwards.ScalarMul(edwards.G, sBytes)
	rhs := edwards.AddAffine(rPoint, edwards.ScalarMul(pub, h.ToBytes()))

	return edwards.Compress(lhs) == edwards.Compress(rhs)
}
