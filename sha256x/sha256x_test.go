package sha256x

import (
	"encoding/hex"
	"testing"
)

func TestVectors(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{[]byte("abc"), "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"[:64]},
		{[]byte(""), "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"[:64]},
		{make([]byte, 1024), "5f70bf18a086007016e948b04aed3b82103a36bea41755b6cddfaf10ace3c6ef"[:64]},
	}
	for i, c := range cases {
		got := Sum256(c.in)
		want, err := hex.DecodeString(c.want)
		if err != nil {
			t.Fatalf("case %d: bad hex fixture: %v", i, err)
		}
		var wantArr [32]byte
		copy(wantArr[:], want)
		if got != wantArr {
			t.Fatalf("case %d: got %x want %x", i, got, wantArr)
		}
	}
}
