// Package record implements the tunnel's record layer: a
// Mac-then-Encrypt-over-XOR framing that combines AES-128 and the
// bespoke mac package into an anti-replay, length-aware packet format.
//
// Record layout (little-endian throughout):
//
//	offset   size   field
//	0        16     encrypted_header  = AES-ENC(k, H)
//	16       16*n   encrypted_payload = per-block XOR-then-encrypt stream
//	16+16n   32     tag               = MAC(mac_key, encrypted_header, encrypted_header||encrypted_payload)
//
// H is 16 bytes: serial:u64 | size:u32 | start_counter:u32. Per block
// i the transform is ciphertext_i = AES_ENC(k, plaintext_i XOR C_i)
// where C_i = serial:u64 | size:u32 | (start_counter+i):u32 — plaintext
// is XORed with the counter block BEFORE encryption, which is not
// textbook CTR (where the cipher is applied to the counter alone) but
// is still an invertible, per-block-unique transform given a
// per-session-unique counter. This quirk is preserved exactly for wire
// compatibility rather than "fixed" to standard CTR.
package record

import (
	"encoding/binary"

	"github.com/pomoke/cryptx/aesblock"
	"github.com/pomoke/cryptx/cryptxerr"
	"github.com/pomoke/cryptx/mac"
)

// MaxIntegrityErrors is the number of consecutive MAC failures at which
// a session using this record layer must be aborted.
const MaxIntegrityErrors = 5

// State holds one direction's record-layer keys and counters. A State
// must be exclusively owned by a single direction's forwarder; there
// is no internal locking.
type State struct {
	cipherKey [16]byte
	macKey    [16]byte
	roundKeys aesblock.RoundKeys

	sendSerial    uint64
	sendCounter   uint32
	recvSerial    uint64
	integrityErrs int
}

// New constructs record-layer state from the 16-byte cipher key and
// 16-byte MAC key produced by splitting the handshake's shared secret.
// A freshly constructed State always starts at serial 0 (the first
// send increments it to 1, the first valid serial per the design).
func New(cipherKey, macKey [16]byte) *State {
	return &State{
		cipherKey: cipherKey,
		macKey:    macKey,
		roundKeys: aesblock.KeySchedule(cipherKey),
	}
}

// ExhaustedIntegrityBudget reports whether consecutive MAC failures
// have reached MaxIntegrityErrors, at which point the owning session
// must abort rather than continue tolerating failures.
func (s *State) ExhaustedIntegrityBudget() bool {
	return s.integrityErrs >= MaxIntegrityErrors
}

func header(serial uint64, size uint32, startCounter uint32) [16]byte {
	var h [16]byte
	binary.LittleEndian.PutUint64(h[0:8], serial)
	binary.LittleEndian.PutUint32(h[8:12], size)
	binary.LittleEndian.PutUint32(h[12:16], startCounter)
	return h
}

func counterBlock(serial uint64, size uint32, counter uint32) [16]byte {
	return header(serial, size, counter)
}

func xorBlock(a, b [16]byte) [16]byte {
	var o [16]byte
	for i := range o {
		o[i] = a[i] ^ b[i]
	}
	return o
}

// Encrypt produces one framed record over plaintext.
func (s *State) Encrypt(plaintext []byte) []byte {
	s.sendSerial++
	serial := s.sendSerial
	size := uint32(len(plaintext))

	nBlocks := (len(plaintext) + 15) / 16
	if nBlocks == 0 {
		nBlocks = 1 // header still covers a zero-length payload of one padded block
	}
	padded := make([]byte, nBlocks*16)
	copy(padded, plaintext)

	startCounter := s.sendCounter
	s.sendCounter += uint32(nBlocks)

	h := header(serial, size, startCounter)
	encHeader := aesblock.EncryptBlock(s.roundKeys, h)

	out := make([]byte, 16+len(padded)+32)
	copy(out[0:16], encHeader[:])

	for i := 0; i < nBlocks; i++ {
		var block [16]byte
		copy(block[:], padded[16*i:16*i+16])
		c := counterBlock(serial, size, startCounter+uint32(i))
		xored := xorBlock(block, c)
		ct := aesblock.EncryptBlock(s.roundKeys, xored)
		copy(out[16+16*i:16+16*i+16], ct[:])
	}

	tag := mac.Compute(s.macKey, encHeader, out[:16+len(padded)])
	copy(out[16+len(padded):], tag[:])
	return out
}

// Decrypt validates and decrypts one framed record, enforcing
// strictly-increasing serials. err is a *cryptxerr.Error describing why
// on a malformed record, MAC failure, or replay.
func (s *State) Decrypt(record []byte) (plaintext []byte, err error) {
	if len(record) < 16+32 || (len(record)-16-32)%16 != 0 {
		return nil, cryptxerr.New(cryptxerr.InvalidCipherText, "record too short or misaligned")
	}
	encHeader := record[0:16]
	body := record[0 : len(record)-32]
	tag := record[len(record)-32:]

	var tagArr [32]byte
	copy(tagArr[:], tag)
	var encHeaderArr [16]byte
	copy(encHeaderArr[:], encHeader)

	if !mac.Verify(s.macKey, encHeaderArr, body, tagArr) {
		s.integrityErrs++
		if s.integrityErrs >= MaxIntegrityErrors {
			return nil, cryptxerr.New(cryptxerr.HMACFailed, "integrity error budget exhausted")
		}
		return nil, cryptxerr.New(cryptxerr.HMACFailed, "mac mismatch")
	}

	h := aesblock.DecryptBlock(s.roundKeys, encHeaderArr)
	serial := binary.LittleEndian.Uint64(h[0:8])
	size := binary.LittleEndian.Uint32(h[8:12])
	startCounter := binary.LittleEndian.Uint32(h[12:16])

	if serial <= s.recvSerial {
		return nil, cryptxerr.New(cryptxerr.ReplayAttack, "serial not strictly increasing")
	}

	ciphertext := record[16 : len(record)-32]
	nBlocks := len(ciphertext) / 16
	out := make([]byte, nBlocks*16)
	for i := 0; i < nBlocks; i++ {
		var ct [16]byte
		copy(ct[:], ciphertext[16*i:16*i+16])
		dec := aesblock.DecryptBlock(s.roundKeys, ct)
		c := counterBlock(serial, size, startCounter+uint32(i))
		block := xorBlock(dec, c)
		copy(out[16*i:16*i+16], block[:])
	}

	if int(size) > len(out) {
		return nil, cryptxerr.New(cryptxerr.InvalidCipherText, "declared size exceeds payload")
	}

	s.recvSerial = serial
	s.integrityErrs = 0
	return out[:size], nil
}
