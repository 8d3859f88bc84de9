package record

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/pomoke/cryptx/cryptxerr"
)

func keys(t *testing.T, aesHex, macHex string) (ck, mk [16]byte) {
	t.Helper()
	a, err := hex.DecodeString(aesHex)
	if err != nil {
		t.Fatalf("bad aes hex: %v", err)
	}
	m, err := hex.DecodeString(macHex)
	if err != nil {
		t.Fatalf("bad mac hex: %v", err)
	}
	copy(ck[:], a)
	copy(mk[:], m)
	return
}

func TestRecordLayerSmokeAndReplay(t *testing.T) {
	ck, mk := keys(t, "277c6a6de132a226fefb1c469df53446", "240dc26508f0c9fc65f83138782ad919")
	sender := New(ck, mk)
	payload := []byte("abcdefghijklmnopqrstuvwxyz01234567890!@#$%^&*()")

	rec := sender.Encrypt(payload)

	receiver := New(ck, mk)
	got, err := receiver.Decrypt(rec)
	if err != nil {
		t.Fatalf("first decrypt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round-trip mismatch: got %q want %q", got, payload)
	}

	_, err = receiver.Decrypt(rec)
	if err == nil {
		t.Fatal("expected ReplayAttack on second decrypt of same record")
	}
	var cerr *cryptxerr.Error
	if !errors.As(err, &cerr) || cerr.Kind != cryptxerr.ReplayAttack {
		t.Fatalf("expected ReplayAttack, got %v", err)
	}
}

func TestRoundTripVariousLengths(t *testing.T) {
	ck, mk := keys(t, "00112233445566778899aabbccddeeff", "ffeeddccbbaa99887766554433221100")
	for _, n := range []int{0, 1, 15, 16, 17, 64, 1024} {
		sender := New(ck, mk)
		receiver := New(ck, mk)
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i)
		}
		rec := sender.Encrypt(payload)
		got, err := receiver.Decrypt(rec)
		if err != nil {
			t.Fatalf("len %d: decrypt: %v", n, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("len %d: round-trip mismatch", n)
		}
	}
}

func TestSamePlaintextDifferentCiphertext(t *testing.T) {
	ck, mk := keys(t, "277c6a6de132a226fefb1c469df53446", "240dc26508f0c9fc65f83138782ad919")
	sender := New(ck, mk)
	payload := []byte("repeat me")
	r1 := sender.Encrypt(payload)
	r2 := sender.Encrypt(payload)
	if bytes.Equal(r1, r2) {
		t.Fatal("encrypting the same plaintext twice produced identical ciphertext")
	}
}

func TestTamperedRecordFailsMAC(t *testing.T) {
	ck, mk := keys(t, "277c6a6de132a226fefb1c469df53446", "240dc26508f0c9fc65f83138782ad919")
	sender := New(ck, mk)
	receiver := New(ck, mk)
	rec := sender.Encrypt([]byte("tamper test"))
	rec[20] ^= 0xff

	_, err := receiver.Decrypt(rec)
	if err == nil {
		t.Fatal("expected HMACFailed on tampered record")
	}
	var cerr *cryptxerr.Error
	if !errors.As(err, &cerr) || cerr.Kind != cryptxerr.HMACFailed {
		t.Fatalf("expected HMACFailed, got %v", err)
	}
}
