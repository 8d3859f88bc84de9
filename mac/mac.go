// Package mac implements the tunnel's bespoke keyed MAC: not HMAC, but
// a secret-prefix MAC over a one-time subkey derived from the key and
// a per-message nonce. Because the nonce used by the record layer is
// the record's own encrypted header (unique per serial), this
// construction is acceptable for that use even though it is weaker in
// general than HMAC.
package mac

import (
	"crypto/subtle"

	"github.com/pomoke/cryptx/sha256x"
)

// Compute returns SHA256(SHA256(key||nonce) || payload).
func Compute(key [16]byte, nonce [16]byte, payload []byte) [32]byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, key[:]...)
	buf = append(buf, nonce[:]...)
	subkey := sha256x.Sum256(buf)

	buf2 := make([]byte, 0, 32+len(payload))
	buf2 = append(buf2, subkey[:]...)
	buf2 = append(buf2, payload...)
	return sha256x.Sum256(buf2)
}

// Verify recomputes the tag and compares in constant time.
func Verify(key [16]byte, nonce [16]byte, payload []byte, tag [32]byte) bool {
	got := Compute(key, nonce, payload)
	return subtle.ConstantTimeCompare(got[:], tag[:]) == 1
}
