package mac

import (
	"encoding/hex"
	"testing"
)

func TestVector(t *testing.T) {
	key, _ := hex.DecodeString("3d44864498530aa5dc8af6add48de2c6")
	nonce, _ := hex.DecodeString("2010de5282f01c542a3325be3fb358e8")
	var k, n [16]byte
	copy(k[:], key)
	copy(n[:], nonce)
	payload := []byte("114514")

	tag := Compute(k, n, payload)
	if !Verify(k, n, payload, tag) {
		t.Fatal("verify failed on its own computed tag")
	}

	tag[0] ^= 0xff
	if Verify(k, n, payload, tag) {
		t.Fatal("verify accepted a tampered tag")
	}
}

func TestDifferentNonceDifferentTag(t *testing.T) {
	var k [16]byte
	var n1, n2 [16]byte
	n2[0] = 1
	payload := []byte("payload")
	t1 := Compute(k, n1, payload)
	t2 := Compute(k, n2, payload)
	if t1 == t2 {
		t.Fatal("different nonces produced the same tag")
	}
}
