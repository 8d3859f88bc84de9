package aesblock

import (
	"encoding/hex"
	"testing"
)

func hexBytes16(t *testing.T, s string) [16]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	var out [16]byte
	copy(out[:], b)
	return out
}

func TestKeySchedule(t *testing.T) {
	key := hexBytes16(t, "000102030405060708090a0b0c0d0e0f")
	rk := KeySchedule(key)
	if rk[0] != key {
		t.Fatal("round-key[0] must equal the original key")
	}
	want1 := hexBytes16(t, "d6aa74fdd2af72fadaa678f1d6ab76fe")
	if rk[1] != want1 {
		t.Fatalf("round-key[1]: got %x want %x", rk[1], want1)
	}
	want10 := hexBytes16(t, "13111d7fe3944a17f307a78b4d2b30c5")
	if rk[10] != want10 {
		t.Fatalf("round-key[10]: got %x want %x", rk[10], want10)
	}
}

func TestEncryptDecryptBlock(t *testing.T) {
	key := hexBytes16(t, "000102030405060708090a0b0c0d0e0f")
	plaintext := hexBytes16(t, "00112233445566778899aabbccddeeff")
	want := hexBytes16(t, "69c4e0d86a7b0430d8cdb78070b4c55a")

	rk := KeySchedule(key)
	ct := EncryptBlock(rk, plaintext)
	if ct != want {
		t.Fatalf("encrypt: got %x want %x", ct, want)
	}

	pt := DecryptBlock(rk, ct)
	if pt != plaintext {
		t.Fatalf("decrypt: got %x want %x", pt, plaintext)
	}
}

func TestGmulIdentity(t *testing.T) {
	for a := 0; a < 256; a++ {
		if gmul(byte(a), 1) != byte(a) {
			t.Fatalf("gmul(%d,1) != %d", a, a)
		}
	}
}

func TestSBoxIsInvolutionPair(t *testing.T) {
	for i := 0; i < 256; i++ {
		if rsBox[sBox[i]] != byte(i) {
			t.Fatalf("rsBox[sBox[%d]] != %d", i, i)
		}
	}
}
